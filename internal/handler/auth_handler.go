package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"finflow-identity/internal/model"
	"finflow-identity/internal/service"
	"finflow-identity/pkg/apierror"
)

type AuthHandler struct {
	auth     *service.AuthService
	accounts *service.AccountService
	otp      *service.OtpService
}

func NewAuthHandler(auth *service.AuthService, accounts *service.AccountService, otp *service.OtpService) *AuthHandler {
	return &AuthHandler{auth: auth, accounts: accounts, otp: otp}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	tokens, err := h.auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		writeError(w, apierror.New("BAD_REQUEST", "refresh_token is required", "refresh_token", http.StatusBadRequest))
		return
	}

	tokens, err := h.auth.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

// Logout always responds 200. Revoking an already expired or garbled token
// is not an error the client can act on.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	h.auth.Logout(r.Context(), payload.Token)

	writeSuccess(w, http.StatusOK, map[string]string{"message": "logged out"}, nil)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	user, err := h.accounts.Register(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, user, nil)
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.GoogleLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.IDToken = strings.TrimSpace(payload.IDToken)
	if payload.IDToken == "" {
		writeError(w, apierror.New("BAD_REQUEST", "id_token is required", "id_token", http.StatusBadRequest))
		return
	}

	tokens, err := h.auth.GoogleLogin(r.Context(), payload.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) SendOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SendOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	purpose, err := service.ParsePurpose(payload.Purpose)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid otp purpose", "purpose", http.StatusBadRequest))
		return
	}

	if err := h.otp.SendOtp(r.Context(), payload.Email, purpose); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "otp sent"}, nil)
}

func (h *AuthHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	purpose, err := service.ParsePurpose(payload.Purpose)
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid otp purpose", "purpose", http.StatusBadRequest))
		return
	}

	exchangeToken, err := h.otp.VerifyOtp(r.Context(), payload.Email, payload.Otp, purpose)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := model.VerifyOtpResponse{Message: "otp verified"}
	switch purpose {
	case service.PurposeRegister:
		resp.RegistrationToken = exchangeToken
	case service.PurposeResetPassword:
		resp.ResetToken = exchangeToken
	}

	writeSuccess(w, http.StatusOK, resp, nil)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"message": "password updated"}, nil)
}

func (h *AuthHandler) CheckExistence(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CheckUserExistenceRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payload.Email = strings.TrimSpace(payload.Email)
	if payload.Email == "" {
		writeError(w, apierror.New("BAD_REQUEST", "email is required", "email", http.StatusBadRequest))
		return
	}

	exists, err := h.accounts.CheckUserExistence(r.Context(), payload.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.CheckUserExistenceResponse{Exists: exists}, nil)
}
