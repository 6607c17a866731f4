package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

type staticTokens map[string]string

func (s staticTokens) Validate(token string) (string, error) {
	if uid, ok := s[token]; ok {
		return uid, nil
	}
	return "", errors.New("bad token")
}

type staticProfiles map[string]models.Responsible

func (s staticProfiles) Get(_ context.Context, uid string) (models.Responsible, error) {
	if r, ok := s[uid]; ok {
		return r, nil
	}
	if uid == "offline" {
		return models.Responsible{}, errors.New("dial tcp: connection refused")
	}
	return models.Responsible{}, fmt.Errorf("responsible %s: %w", uid, services.ErrNotFound)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestRequireAuth(t *testing.T) {
	tokens := staticTokens{"good": "uid-1"}
	var seen string
	h := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.UIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "bearer", header: "Bearer good", want: http.StatusNoContent},
		{name: "query token for streams", query: "?access_token=good", want: http.StatusNoContent},
		{name: "missing", want: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer forged", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/problems"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				assert.Equal(t, "uid-1", seen)
			}
		})
	}
}

func TestRequireResponsible(t *testing.T) {
	profiles := staticProfiles{
		"resp":    {ID: "resp", IsResponsible: true, Municipality: "Belas"},
		"citizen": {ID: "citizen", IsResponsible: false},
	}
	var got models.Responsible
	h := RequireResponsible(profiles, zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.ResponsibleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(uid, locale string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := i18n.WithLocale(req.Context(), locale)
		if uid != "" {
			ctx = auth.WithUID(ctx, uid)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	rec := serve("resp", i18n.PtBR)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Belas", got.Municipality)

	rec = serve("citizen", i18n.PtBR)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Acesso negado: Apenas responsáveis podem acessar este painel.", errorBody(t, rec))

	rec = serve("unknown", i18n.EnUS)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, errorBody(t, rec), "Access denied")

	rec = serve("offline", i18n.PtBR)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Erro ao carregar problemas", errorBody(t, rec))

	rec = serve("", i18n.PtBR)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLocale(t *testing.T) {
	var got string
	h := Locale(i18n.EnUS)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = i18n.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, i18n.EnUS, got, "fallback without hints")

	req = httptest.NewRequest(http.MethodGet, "/?lang=pt-BR", nil)
	req.Header.Set("Accept-Language", "en")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, i18n.PtBR, got, "query wins over header")
	assert.Equal(t, i18n.PtBR, rec.Header().Get("Content-Language"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders()(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestStructuredLogger_KeepsFlusher(t *testing.T) {
	var flushed bool
	h := StructuredLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		f.Flush()
		flushed = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.True(t, flushed)
	assert.True(t, rec.Flushed)
}

func TestMemoryLimiter(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "new window")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("redis down")
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewMemoryLimiter(1, time.Minute), zap.NewNop().Sugar())(http.HandlerFunc(okHandler))

	serve := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, serve().Code)
	rec := serve()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Rate limit exceeded", errorBody(t, rec))

	open := RateLimit(failingLimiter{}, zap.NewNop().Sugar())(http.HandlerFunc(okHandler))
	rec = httptest.NewRecorder()
	open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "limiter failure lets requests through")
}
