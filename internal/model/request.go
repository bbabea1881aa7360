package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	Token string `json:"token"`
}

type RegisterRequest struct {
	Username          string `json:"username"`
	Password          string `json:"password"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	DOB               string `json:"dob"`
	RegistrationToken string `json:"registration_token"`
}

type SendOtpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type VerifyOtpRequest struct {
	Email   string `json:"email"`
	Otp     string `json:"otp"`
	Purpose string `json:"purpose"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ResetToken      string `json:"reset_token"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token"`
}

type CheckUserExistenceRequest struct {
	Email string `json:"email"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
}

type ToggleBiometricRequest struct {
	Enabled bool `json:"enabled"`
}
