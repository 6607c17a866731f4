package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
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

type fakeAccounts struct {
	profiles map[string]models.Responsible
	password string
	ensured  []models.Identity
}

func (f *fakeAccounts) Authenticate(_ context.Context, email, password string) (models.Responsible, error) {
	r, ok := f.profiles[email]
	if !ok || password != f.password {
		return models.Responsible{}, services.ErrUnauthorized
	}
	return r, nil
}

func (f *fakeAccounts) EnsureProfile(_ context.Context, id models.Identity) (models.Responsible, error) {
	f.ensured = append(f.ensured, id)
	if r, ok := f.profiles[id.Email]; ok {
		return r, nil
	}
	return models.Responsible{ID: id.UID, Email: id.Email, IsResponsible: true, Municipality: services.DefaultMunicipality}, nil
}

type fakeVerifier struct {
	configured bool
	err        error
}

func (f fakeVerifier) Configured() bool { return f.configured }

func (f fakeVerifier) VerifyCode(_ context.Context, code string) (models.Identity, error) {
	if f.err != nil {
		return models.Identity{}, f.err
	}
	return models.Identity{UID: "g-" + code, Email: code + "@example.com"}, nil
}

func newAuthHandler(accounts *fakeAccounts, google CodeVerifier) *AuthHandler {
	return NewAuthHandler(accounts, google, auth.NewJWTManager("test", "fixa-admin", time.Hour), zap.NewNop().Sugar())
}

func postJSON(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(i18n.WithLocale(req.Context(), i18n.PtBR))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	accounts := &fakeAccounts{
		password: "s3cret",
		profiles: map[string]models.Responsible{
			"ana@example.com":  {ID: "uid-1", Email: "ana@example.com", IsResponsible: true},
			"joao@example.com": {ID: "uid-2", Email: "joao@example.com", IsResponsible: false},
		},
	}
	h := newAuthHandler(accounts, nil)

	rec := postJSON(h.Login, `{"email":"ana@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "uid-1", session.Profile.ID)

	uid, err := auth.NewJWTManager("test", "fixa-admin", time.Hour).Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)

	rec = postJSON(h.Login, `{"email":"ana@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(h.Login, `{"email":"joao@example.com","password":"s3cret"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acesso negado")

	rec = postJSON(h.Login, `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGoogleLogin(t *testing.T) {
	tests := []struct {
		name     string
		verifier CodeVerifier
		body     string
		want     int
	}{
		{name: "not configured", verifier: fakeVerifier{}, body: `{"code":"x"}`, want: http.StatusNotImplemented},
		{name: "missing code", verifier: fakeVerifier{configured: true}, body: `{}`, want: http.StatusBadRequest},
		{name: "rejected code", verifier: fakeVerifier{configured: true, err: auth.ErrInvalidCode}, body: `{"code":"x"}`, want: http.StatusUnauthorized},
		{name: "google down", verifier: fakeVerifier{configured: true, err: errors.New("oauth: google unavailable")}, body: `{"code":"x"}`, want: http.StatusBadGateway},
		{name: "first login", verifier: fakeVerifier{configured: true}, body: `{"code":"maria"}`, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accounts := &fakeAccounts{}
			rec := postJSON(newAuthHandler(accounts, tt.verifier).Google, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				require.Len(t, accounts.ensured, 1)
				assert.Equal(t, "g-maria", accounts.ensured[0].UID)
				assert.Contains(t, rec.Body.String(), `"municipality":"Belas"`)
			}
		})
	}
}

func TestMe(t *testing.T) {
	h := newAuthHandler(&fakeAccounts{}, nil)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(auth.WithResponsible(req.Context(), models.Responsible{ID: "uid-1", Name: "Ana"}))
	rec = httptest.NewRecorder()
	h.Me(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"nome":"Ana"`)
}
