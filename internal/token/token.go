package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"finflow-identity/internal/keys"
	"finflow-identity/internal/model"
)

// Type discriminates what a signed token is allowed to be used for.
type Type string

const (
	TypeAccess        Type = "access"
	TypeRefresh       Type = "refresh"
	TypeRegistration  Type = "REGISTRATION_TOKEN"
	TypeResetPassword Type = "RESET_PASSWORD_TOKEN"
)

var (
	// ErrTokenExpired and ErrTokenMalformed are distinguishable internally;
	// both unwrap to model.ErrInvalidToken at the boundary.
	ErrTokenExpired   = fmt.Errorf("%w: expired", model.ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed or bad signature", model.ErrInvalidToken)
)

// Claims is the flat claim set carried by every token this service issues.
// Consumers ignore unknown additional claims.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

// Codec signs and verifies compact RS256 tokens against the process keypair.
type Codec struct {
	keys   *keys.Provider
	issuer string
}

func NewCodec(provider *keys.Provider, issuer string) *Codec {
	if issuer == "" {
		issuer = "self"
	}
	return &Codec{keys: provider, issuer: issuer}
}

// Issue signs a token binding subject, scope and type. Pure function of its
// inputs, the clock and the key; nothing is persisted.
func (c *Codec) Issue(subject string, scope string, typ Type, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := Claims{
		Scope: scope,
		Type:  string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.keys.Private())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature and expiry and returns the decoded claims.
func (c *Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.keys.Public(), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !parsed.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// ExtractUnverified pulls the jti and expiry out of a token without
// validating the signature or expiry. Logout uses this so that an already
// expired token can still be blacklisted proactively.
func (c *Codec) ExtractUnverified(raw string) (jti string, expiry time.Time, err error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return "", time.Time{}, ErrTokenMalformed
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return "", time.Time{}, ErrTokenMalformed
	}

	return claims.ID, claims.ExpiresAt.Time, nil
}
