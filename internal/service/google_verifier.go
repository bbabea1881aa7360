package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"finflow-identity/internal/model"
)

const defaultTokeninfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleProfile is the identity extracted from a verified Google ID token.
type GoogleProfile struct {
	Email      string
	GivenName  string
	FamilyName string
}

// GoogleVerifier checks a third-party identity assertion out-of-band.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (GoogleProfile, error)
}

// TokeninfoVerifier validates Google ID tokens against Google's tokeninfo
// endpoint and checks the audience matches the configured client ID.
type TokeninfoVerifier struct {
	clientID   string
	endpoint   string
	httpClient *http.Client
}

func NewTokeninfoVerifier(clientID string) *TokeninfoVerifier {
	return &TokeninfoVerifier{
		clientID:   clientID,
		endpoint:   defaultTokeninfoURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint overrides the tokeninfo URL, for tests.
func (v *TokeninfoVerifier) WithEndpoint(endpoint string) *TokeninfoVerifier {
	v.endpoint = endpoint
	return v
}

type tokeninfoResponse struct {
	Audience      string `json:"aud"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (v *TokeninfoVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	endpoint := v.endpoint + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("call tokeninfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GoogleProfile{}, model.ErrInvalidToken
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("read tokeninfo response: %w", err)
	}

	var info tokeninfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return GoogleProfile{}, fmt.Errorf("decode tokeninfo response: %w", err)
	}

	if info.Audience != v.clientID || info.Email == "" {
		return GoogleProfile{}, model.ErrInvalidToken
	}

	return GoogleProfile{
		Email:      info.Email,
		GivenName:  info.GivenName,
		FamilyName: info.FamilyName,
	}, nil
}
