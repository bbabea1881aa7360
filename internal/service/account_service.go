package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finflow-identity/internal/model"
	"finflow-identity/internal/repository"
	"finflow-identity/internal/token"
)

// AccountService covers the account lifecycle outside of credential
// exchange: OTP-gated registration and password reset, existence probes,
// and profile maintenance.
type AccountService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	codec *token.Codec
}

func NewAccountService(users repository.UserRepository, roles repository.RoleRepository, codec *token.Codec) *AccountService {
	return &AccountService{users: users, roles: roles, codec: codec}
}

// Register completes an OTP-verified registration. The registration token
// must be unexpired, of registration type, and bound to the same email the
// request carries.
func (s *AccountService) Register(ctx context.Context, req model.RegisterRequest) (model.UserSummary, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return model.UserSummary{}, fmt.Errorf("%w: username, email and password are required", model.ErrInvalidInput)
	}

	if taken, err := s.users.ExistsByUsername(ctx, username); err != nil {
		return model.UserSummary{}, err
	} else if taken {
		return model.UserSummary{}, model.ErrUsernameAlreadyExists
	}

	if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
		return model.UserSummary{}, err
	} else if taken {
		return model.UserSummary{}, model.ErrEmailAlreadyExists
	}

	if err := s.verifyExchangeToken(req.RegistrationToken, token.TypeRegistration, email); err != nil {
		return model.UserSummary{}, err
	}

	if exists, err := s.roles.Exists(ctx, RoleUser); err != nil {
		return model.UserSummary{}, err
	} else if !exists {
		return model.UserSummary{}, model.ErrRoleNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return model.UserSummary{}, fmt.Errorf("hash password: %w", err)
	}

	dob, err := parseDOB(req.DOB)
	if err != nil {
		return model.UserSummary{}, err
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		DOB:          dob,
		Roles:        []string{RoleUser},
		IsActive:     true,
		Verified:     true,
		RegisterDate: time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return model.UserSummary{}, err
	}

	slog.Info("user registered", "username", created.Username)
	return created.Summary(), nil
}

// ResetPassword completes an OTP-verified password reset. The reset token's
// subject names the account being reset.
func (s *AccountService) ResetPassword(ctx context.Context, req model.ResetPasswordRequest) error {
	if req.Password == "" || req.Password != req.ConfirmPassword {
		return fmt.Errorf("%w: passwords do not match", model.ErrInvalidInput)
	}

	claims, err := s.codec.Verify(req.ResetToken)
	if err != nil {
		return model.ErrInvalidToken
	}
	if claims.Type != string(token.TypeResetPassword) {
		return model.ErrInvalidToken
	}

	user, err := s.users.FindByEmail(ctx, claims.Subject)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}

	slog.Info("password reset", "username", user.Username)
	return nil
}

// CheckUserExistence reports whether an email is already registered.
func (s *AccountService) CheckUserExistence(ctx context.Context, email string) (bool, error) {
	return s.users.ExistsByEmail(ctx, strings.TrimSpace(email))
}

func (s *AccountService) GetProfile(ctx context.Context, username string) (model.User, error) {
	return s.users.FindByUsername(ctx, username)
}

func (s *AccountService) UpdateProfile(ctx context.Context, username string, req model.UpdateProfileRequest) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return model.User{}, err
	}

	dob, err := parseDOB(req.DOB)
	if err != nil {
		return model.User{}, err
	}
	if dob == nil {
		dob = user.DOB
	}

	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		firstName = user.FirstName
	}
	lastName := strings.TrimSpace(req.LastName)
	if lastName == "" {
		lastName = user.LastName
	}

	if err := s.users.UpdateProfile(ctx, user.ID, firstName, lastName, dob); err != nil {
		return model.User{}, err
	}

	return s.users.FindByUsername(ctx, username)
}

func (s *AccountService) ToggleBiometric(ctx context.Context, username string, enabled bool) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return err
	}
	return s.users.SetBiometric(ctx, user.ID, enabled)
}

func (s *AccountService) verifyExchangeToken(raw string, expected token.Type, email string) error {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return model.ErrInvalidToken
	}
	if claims.Type != string(expected) {
		return model.ErrInvalidToken
	}
	if !strings.EqualFold(claims.Subject, email) {
		return model.ErrInvalidToken
	}
	return nil
}

func parseDOB(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, fmt.Errorf("%w: dob must be YYYY-MM-DD", model.ErrInvalidInput)
	}
	return &parsed, nil
}
