package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"finflow-identity/internal/mailer"
	"finflow-identity/internal/model"
	"finflow-identity/internal/otp"
	"finflow-identity/internal/repository"
	"finflow-identity/internal/token"
)

// Purpose is what a pending one-time code authorizes.
type Purpose string

const (
	PurposeRegister      Purpose = "REGISTER"
	PurposeResetPassword Purpose = "RESET_PASSWORD"
)

func ParsePurpose(raw string) (Purpose, error) {
	switch Purpose(raw) {
	case PurposeRegister:
		return PurposeRegister, nil
	case PurposeResetPassword:
		return PurposeResetPassword, nil
	default:
		return "", fmt.Errorf("%w: unknown otp purpose %q", model.ErrInvalidInput, raw)
	}
}

// exchangeTokenType maps a purpose to the single-purpose token minted on
// successful verification. The mapping is exhaustive; adding a purpose
// without extending it is a bug surfaced at verify time.
func exchangeTokenType(purpose Purpose) (token.Type, error) {
	switch purpose {
	case PurposeRegister:
		return token.TypeRegistration, nil
	case PurposeResetPassword:
		return token.TypeResetPassword, nil
	default:
		return "", fmt.Errorf("no exchange token type for purpose %q", purpose)
	}
}

// OtpService runs the one-time-code state machine: Absent -> Pending ->
// consumed or expired. At most one pending entry per email; a new send
// replaces any prior entry.
type OtpService struct {
	users    repository.UserRepository
	store    otp.Store
	codec    *token.Codec
	mail     mailer.Mailer
	otpTTL   time.Duration
	tokenTTL time.Duration
}

func NewOtpService(
	users repository.UserRepository,
	store otp.Store,
	codec *token.Codec,
	mail mailer.Mailer,
	otpTTL time.Duration,
	tokenTTL time.Duration,
) *OtpService {
	return &OtpService{
		users:    users,
		store:    store,
		codec:    codec,
		mail:     mail,
		otpTTL:   otpTTL,
		tokenTTL: tokenTTL,
	}
}

// SendOtp generates and stores a pending code for the email, then emits the
// notification. Registration requires the email to be unused; password
// reset requires it to belong to an existing user.
func (s *OtpService) SendOtp(ctx context.Context, email string, purpose Purpose) error {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}

	switch purpose {
	case PurposeRegister:
		if exists {
			return model.ErrEmailAlreadyExists
		}
	case PurposeResetPassword:
		if !exists {
			return model.ErrUserNotFound
		}
	default:
		return fmt.Errorf("%w: unknown otp purpose %q", model.ErrInvalidInput, purpose)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	if err := s.store.Set(ctx, email, entryValue(purpose, code), s.otpTTL); err != nil {
		return err
	}

	// Delivery is fire-and-forget: a mail failure neither blocks the caller
	// nor rolls back the stored code.
	go s.deliver(email, code)

	slog.Info("otp issued", "email", email, "purpose", purpose)
	return nil
}

// VerifyOtp consumes a pending code and mints the single-purpose exchange
// token that the downstream register/reset operation requires. Every
// failure mode reports invalid credentials so the endpoint cannot be used
// as an oracle.
func (s *OtpService) VerifyOtp(ctx context.Context, email string, code string, purpose Purpose) (string, error) {
	typ, err := exchangeTokenType(purpose)
	if err != nil {
		return "", err
	}

	consumed, err := s.store.CompareAndDelete(ctx, email, entryValue(purpose, code))
	if err != nil {
		return "", err
	}
	if !consumed {
		return "", model.ErrInvalidCredentials
	}

	exchange, err := s.codec.Issue(email, "", typ, s.tokenTTL)
	if err != nil {
		return "", err
	}

	slog.Info("otp verified", "email", email, "purpose", purpose)
	return exchange, nil
}

func (s *OtpService) deliver(email string, code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	subject := "FinFlow Verification Code"
	body := fmt.Sprintf("Your verification code is: %s\n\nThis code expires in %d minutes.",
		code, int(s.otpTTL.Minutes()))

	if err := s.mail.Send(ctx, email, subject, body); err != nil {
		slog.Error("failed to deliver otp email", "email", email, "error", err)
	}
}

// entryValue is the stored form of a pending entry; binding the purpose
// into the value makes a correct code fail verification under the wrong
// purpose.
func entryValue(purpose Purpose, code string) string {
	return string(purpose) + ":" + code
}

// generateCode draws a uniformly random 6-digit code, zero-padded.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
