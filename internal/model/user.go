package model

import "time"

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	DOB          *time.Time `json:"dob,omitempty"`
	Roles        []string   `json:"roles"`
	IsActive     bool       `json:"is_active"`
	Verified     bool       `json:"account_verified"`
	Biometric    bool       `json:"is_biometric_enabled"`
	RegisterDate time.Time  `json:"register_date"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type Role struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UserSummary is the user shape embedded in auth responses.
type UserSummary struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Roles     []string `json:"roles"`
}

// AuthClaims is the decoded view of an access token, attached to the
// request context by the auth middleware.
type AuthClaims struct {
	Subject string `json:"sub"`
	Scope   string `json:"scope"`
	Type    string `json:"type"`
	TokenID string `json:"jti"`
}

type TokenPair struct {
	AccessToken           string      `json:"access_token"`
	RefreshToken          string      `json:"refresh_token"`
	TokenType             string      `json:"token_type"`
	ExpiresIn             int64       `json:"expires_in"`
	RefreshTokenExpiresIn int64       `json:"refresh_token_expires_in"`
	User                  UserSummary `json:"user"`
}

func (u User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     u.Roles,
	}
}
