package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGoogle points the package endpoints at a test server for the duration of t.
func fakeGoogle(t *testing.T, tokenStatus int, info map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		if tokenStatus != http.StatusOK {
			w.WriteHeader(tokenStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at-" + r.PostForm.Get("code"), "token_type": "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)

	prevToken, prevInfo := tokenURL, userinfoURL
	tokenURL, userinfoURL = srv.URL+"/token", srv.URL+"/userinfo"
	t.Cleanup(func() {
		tokenURL, userinfoURL = prevToken, prevInfo
		srv.Close()
	})
}

func newTestVerifier() *GoogleVerifier {
	return NewGoogleVerifier("client", "secret", "http://localhost/callback", zap.NewNop().Sugar())
}

func TestGoogleVerifier_VerifyCode(t *testing.T) {
	fakeGoogle(t, http.StatusOK, map[string]any{
		"id": "g-123", "email": "ana@example.com", "verified_email": true, "name": "Ana",
	})

	id, err := newTestVerifier().VerifyCode(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "g-123", id.UID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "Ana", id.Name)
}

func TestGoogleVerifier_InvalidCode(t *testing.T) {
	fakeGoogle(t, http.StatusBadRequest, nil)

	_, err := newTestVerifier().VerifyCode(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestGoogleVerifier_UnverifiedEmail(t *testing.T) {
	fakeGoogle(t, http.StatusOK, map[string]any{
		"id": "g-123", "email": "ana@example.com", "verified_email": false,
	})

	_, err := newTestVerifier().VerifyCode(context.Background(), "good")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCode)
}

func TestGoogleVerifier_Configured(t *testing.T) {
	assert.True(t, newTestVerifier().Configured())
	assert.False(t, NewGoogleVerifier("", "", "", zap.NewNop().Sugar()).Configured())
}
