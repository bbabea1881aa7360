package service

import (
	"context"
	"errors"
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

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"

	bcryptCost = 12
)

// AuthService orchestrates login, refresh rotation, logout and social
// login. It holds no mutable state of its own; revocations go to the
// blacklist repository and everything else is stateless token arithmetic.
type AuthService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	blacklist  repository.InvalidatedTokenRepository
	codec      *token.Codec
	google     GoogleVerifier
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	blacklist repository.InvalidatedTokenRepository,
	codec *token.Codec,
	google GoogleVerifier,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		roles:      roles,
		blacklist:  blacklist,
		codec:      codec,
		google:     google,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Login authenticates a username-or-email plus password. Unknown user and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, identifier string, password string) (model.TokenPair, error) {
	user, err := s.resolveUser(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.TokenPair{}, model.ErrInvalidCredentials
		}
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, model.ErrInvalidCredentials
	}

	if !user.IsActive {
		return model.TokenPair{}, model.ErrAccountDisabled
	}

	if err := s.users.SetLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		slog.Warn("failed to record last login", "user", user.Username, "error", err)
	}

	return s.issueTokenPair(user)
}

// Refresh rotates a refresh token. The presented token is blacklisted the
// moment new tokens are minted, so it can never be replayed even while
// still unexpired. Scope is recomputed from the user's current roles so
// role revocation takes effect within one refresh cycle.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("check refresh token blacklist: %w", err)
	}
	if revoked {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	if claims.Type != string(token.TypeRefresh) {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	user, err := s.users.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return model.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	return s.issueTokenPair(user)
}

// Logout blacklists the presented token's jti. The token is parsed without
// expiry validation so an already-expired token is still blacklisted, and a
// token that cannot be parsed at all is simply ignored: logout always
// succeeds from the caller's viewpoint.
func (s *AuthService) Logout(ctx context.Context, raw string) {
	jti, expiry, err := s.codec.ExtractUnverified(raw)
	if err != nil {
		slog.Warn("logout received unparseable token", "error", err)
		return
	}

	if err := s.blacklist.Revoke(ctx, jti, expiry); err != nil {
		slog.Error("failed to blacklist token on logout", "jti", jti, "error", err)
		return
	}

	slog.Info("token invalidated", "jti", jti)
}

// GoogleLogin exchanges a verified Google identity for a token pair,
// creating the user on first sight. Repeated calls with the same verified
// email reuse the existing user.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (model.TokenPair, error) {
	// A nil verifier means google login is not configured; the route still
	// exists, so reject instead of dereferencing.
	if s.google == nil {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	profile, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	user, err := s.users.FindByEmail(ctx, profile.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		user, err = s.createGoogleUser(ctx, profile)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	return s.issueTokenPair(user)
}

func (s *AuthService) createGoogleUser(ctx context.Context, profile GoogleProfile) (model.User, error) {
	exists, err := s.roles.Exists(ctx, RoleUser)
	if err != nil {
		return model.User{}, err
	}
	if !exists {
		return model.User{}, model.ErrRoleNotFound
	}

	// Unusable placeholder password; these accounts authenticate via Google.
	placeholder, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash placeholder password: %w", err)
	}

	user := model.User{
		ID:           uuid.NewString(),
		Username:     profile.Email,
		Email:        profile.Email,
		PasswordHash: string(placeholder),
		FirstName:    profile.GivenName,
		LastName:     profile.FamilyName,
		Roles:        []string{RoleUser},
		IsActive:     true,
		Verified:     true,
		RegisterDate: time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return model.User{}, err
	}

	slog.Info("created user from google identity", "username", created.Username)
	return created, nil
}

// ValidateAccess verifies an access token end to end: signature, expiry,
// token type and blacklist absence. Used by the auth middleware.
func (s *AuthService) ValidateAccess(ctx context.Context, raw string) (*model.AuthClaims, error) {
	claims, err := s.codec.Verify(raw)
	if err != nil {
		return nil, model.ErrInvalidToken
	}

	if claims.Type != string(token.TypeAccess) {
		return nil, model.ErrInvalidToken
	}

	revoked, err := s.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check access token blacklist: %w", err)
	}
	if revoked {
		return nil, model.ErrInvalidToken
	}

	return &model.AuthClaims{
		Subject: claims.Subject,
		Scope:   claims.Scope,
		Type:    claims.Type,
		TokenID: claims.ID,
	}, nil
}

func (s *AuthService) resolveUser(ctx context.Context, identifier string) (model.User, error) {
	user, err := s.users.FindByUsername(ctx, identifier)
	if errors.Is(err, model.ErrUserNotFound) {
		return s.users.FindByEmail(ctx, identifier)
	}
	return user, err
}

func (s *AuthService) issueTokenPair(user model.User) (model.TokenPair, error) {
	scope := buildScope(user)

	accessToken, err := s.codec.Issue(user.Username, scope, token.TypeAccess, s.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	refreshToken, err := s.codec.Issue(user.Username, scope, token.TypeRefresh, s.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(s.accessTTL.Seconds()),
		RefreshTokenExpiresIn: int64(s.refreshTTL.Seconds()),
		User:                  user.Summary(),
	}, nil
}

// buildScope joins the user's role names into the space-separated authority
// list embedded in tokens.
func buildScope(user model.User) string {
	return strings.Join(user.Roles, " ")
}
