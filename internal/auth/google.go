package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/models"
)

// Overridable in tests.
var (
	tokenURL    = "https://oauth2.googleapis.com/token"
	userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// ErrInvalidCode is returned when Google rejects the authorization code.
var ErrInvalidCode = errors.New("oauth: invalid or expired code")

// GoogleVerifier exchanges Google OAuth authorization codes for an identity.
type GoogleVerifier struct {
	clientID     string
	clientSecret string
	redirectURI  string
	httpClient   *http.Client
	logger       *zap.SugaredLogger
}

// NewGoogleVerifier creates a Google OAuth verifier.
func NewGoogleVerifier(clientID, clientSecret, redirectURI string, logger *zap.SugaredLogger) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// Configured reports whether client credentials are present.
func (v *GoogleVerifier) Configured() bool {
	return v.clientID != "" && v.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type userinfoResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// VerifyCode exchanges code for the signed-in user's identity. The Google
// account id becomes the dashboard uid.
func (v *GoogleVerifier) VerifyCode(ctx context.Context, code string) (models.Identity, error) {
	accessToken, err := v.exchangeCode(ctx, code)
	if err != nil {
		return models.Identity{}, err
	}

	info, err := v.fetchUserinfo(ctx, accessToken)
	if err != nil {
		return models.Identity{}, err
	}
	if !info.VerifiedEmail {
		return models.Identity{}, fmt.Errorf("oauth: email not verified")
	}

	v.logger.Debugw("Google sign-in verified", "email", info.Email)
	return models.Identity{UID: info.ID, Email: info.Email, Name: info.Name}, nil
}

func (v *GoogleVerifier) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("client_id", v.clientID)
	data.Set("client_secret", v.clientSecret)
	data.Set("redirect_uri", v.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Errorw("Google token exchange failed", "error", err)
		return "", fmt.Errorf("oauth: google unavailable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oauth: failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		v.logger.Errorw("Google token exchange failed", "status", resp.StatusCode)
		if resp.StatusCode == http.StatusBadRequest {
			return "", ErrInvalidCode
		}
		return "", fmt.Errorf("oauth: google unavailable")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", fmt.Errorf("oauth: invalid token response")
	}
	return tr.AccessToken, nil
}

func (v *GoogleVerifier) fetchUserinfo(ctx context.Context, accessToken string) (*userinfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Errorw("Google userinfo failed", "error", err)
		return nil, fmt.Errorf("oauth: failed to fetch user info")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Errorw("Google userinfo failed", "status", resp.StatusCode)
		return nil, fmt.Errorf("oauth: failed to fetch user info")
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth: invalid userinfo response")
	}
	if info.ID == "" || info.Email == "" {
		return nil, fmt.Errorf("oauth: invalid userinfo response")
	}
	return &info, nil
}
