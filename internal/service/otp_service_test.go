package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"finflow-identity/internal/model"
	"finflow-identity/internal/otp"
	"finflow-identity/internal/token"
)

func newOtpFixture(t *testing.T, users ...model.User) (*OtpService, *otp.MemoryStore, *fakeMailer, *token.Codec) {
	t.Helper()

	codec := newTestCodec(t)
	store := otp.NewMemoryStore()
	mail := &fakeMailer{}
	svc := NewOtpService(newFakeUserRepo(users...), store, codec, mail, 5*time.Minute, 15*time.Minute)
	return svc, store, mail, codec
}

// pendingCode reads the stored code back out so tests can verify it without
// intercepting mail delivery.
func pendingCode(t *testing.T, store *otp.MemoryStore, email string) string {
	t.Helper()

	value, err := store.Get(context.Background(), email)
	require.NoError(t, err)

	parts := strings.SplitN(value, ":", 2)
	require.Len(t, parts, 2)
	return parts[1]
}

func TestParsePurpose(t *testing.T) {
	t.Parallel()

	purpose, err := ParsePurpose("REGISTER")
	require.NoError(t, err)
	require.Equal(t, PurposeRegister, purpose)

	purpose, err = ParsePurpose("RESET_PASSWORD")
	require.NoError(t, err)
	require.Equal(t, PurposeResetPassword, purpose)

	_, err = ParsePurpose("register")
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = ParsePurpose("")
	require.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSendOtp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("registration requires an unused email", func(t *testing.T) {
		svc, store, _, _ := newOtpFixture(t, testUser(t, "secret"))

		err := svc.SendOtp(ctx, "alice@example.com", PurposeRegister)
		require.ErrorIs(t, err, model.ErrEmailAlreadyExists)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		code := pendingCode(t, store, "new@example.com")
		require.Len(t, code, 6)
	})

	t.Run("password reset requires an existing user", func(t *testing.T) {
		svc, _, _, _ := newOtpFixture(t, testUser(t, "secret"))

		err := svc.SendOtp(ctx, "ghost@example.com", PurposeResetPassword)
		require.ErrorIs(t, err, model.ErrUserNotFound)

		require.NoError(t, svc.SendOtp(ctx, "alice@example.com", PurposeResetPassword))
	})

	t.Run("a second send replaces the pending code", func(t *testing.T) {
		svc, store, _, _ := newOtpFixture(t)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		first := pendingCode(t, store, "new@example.com")

		// Retry until the freshly drawn code differs; collisions are possible
		// but vanish after a few attempts.
		var second string
		for i := 0; i < 20; i++ {
			require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
			second = pendingCode(t, store, "new@example.com")
			if second != first {
				break
			}
		}
		require.NotEqual(t, first, second)
	})

	t.Run("delivers the code by mail", func(t *testing.T) {
		svc, store, mail, _ := newOtpFixture(t)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		code := pendingCode(t, store, "new@example.com")

		require.Eventually(t, func() bool {
			mail.mu.Lock()
			defer mail.mu.Unlock()
			return len(mail.sent) == 1
		}, 2*time.Second, 10*time.Millisecond)

		mail.mu.Lock()
		defer mail.mu.Unlock()
		require.Equal(t, "new@example.com", mail.sent[0].to)
		require.Contains(t, mail.sent[0].body, code)
	})
}

func TestVerifyOtp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("consumes the code and mints a registration token", func(t *testing.T) {
		svc, store, _, codec := newOtpFixture(t)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		code := pendingCode(t, store, "new@example.com")

		exchange, err := svc.VerifyOtp(ctx, "new@example.com", code, PurposeRegister)
		require.NoError(t, err)

		claims, err := codec.Verify(exchange)
		require.NoError(t, err)
		require.Equal(t, "new@example.com", claims.Subject)
		require.Equal(t, string(token.TypeRegistration), claims.Type)
	})

	t.Run("reset purpose mints a reset token", func(t *testing.T) {
		svc, store, _, codec := newOtpFixture(t, testUser(t, "secret"))

		require.NoError(t, svc.SendOtp(ctx, "alice@example.com", PurposeResetPassword))
		code := pendingCode(t, store, "alice@example.com")

		exchange, err := svc.VerifyOtp(ctx, "alice@example.com", code, PurposeResetPassword)
		require.NoError(t, err)

		claims, err := codec.Verify(exchange)
		require.NoError(t, err)
		require.Equal(t, string(token.TypeResetPassword), claims.Type)
	})

	t.Run("a code is single use", func(t *testing.T) {
		svc, store, _, _ := newOtpFixture(t)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		code := pendingCode(t, store, "new@example.com")

		_, err := svc.VerifyOtp(ctx, "new@example.com", code, PurposeRegister)
		require.NoError(t, err)

		_, err = svc.VerifyOtp(ctx, "new@example.com", code, PurposeRegister)
		require.ErrorIs(t, err, model.ErrInvalidCredentials)
	})

	t.Run("a correct code fails under the wrong purpose and stays pending", func(t *testing.T) {
		svc, store, _, _ := newOtpFixture(t, testUser(t, "secret"))

		require.NoError(t, svc.SendOtp(ctx, "alice@example.com", PurposeResetPassword))
		code := pendingCode(t, store, "alice@example.com")

		_, err := svc.VerifyOtp(ctx, "alice@example.com", code, PurposeRegister)
		require.ErrorIs(t, err, model.ErrInvalidCredentials)

		_, err = svc.VerifyOtp(ctx, "alice@example.com", code, PurposeResetPassword)
		require.NoError(t, err)
	})

	t.Run("wrong code and absent entry look identical", func(t *testing.T) {
		svc, store, _, _ := newOtpFixture(t)

		_, absentErr := svc.VerifyOtp(ctx, "new@example.com", "123456", PurposeRegister)
		require.ErrorIs(t, absentErr, model.ErrInvalidCredentials)

		require.NoError(t, svc.SendOtp(ctx, "new@example.com", PurposeRegister))
		code := pendingCode(t, store, "new@example.com")
		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, wrongErr := svc.VerifyOtp(ctx, "new@example.com", wrong, PurposeRegister)
		require.ErrorIs(t, wrongErr, model.ErrInvalidCredentials)
	})
}
