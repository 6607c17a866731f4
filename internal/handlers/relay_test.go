package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/services"
)

func newRelayServer(t *testing.T, upstream http.HandlerFunc) (http.Handler, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	client := services.NewRelayClient(srv.URL, "instance1", "secret", time.Second)
	relay := NewRelayHandler(services.NewRelay(client, zap.NewNop().Sugar()), zap.NewNop().Sugar())
	return NewRelayRouter(relay, zap.NewNop()), &calls
}

const validRelayBody = `{"phoneNumber":"+244 923 000 111","problemId":"p1","problemTitle":"Buraco","newStatus":"Resolvido"}`

func postRelay(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRelay_Success(t *testing.T) {
	var sent map[string]string
	h, calls := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &sent)
		_, _ = w.Write([]byte(`{"sent":"true"}`))
	})

	for _, path := range []string{"/", "/sendWhatsAppNotification"} {
		rec := postRelay(h, path, validRelayBody)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"message":"Notificação enviada com sucesso","data":{"sent":"true"}}`, rec.Body.String())
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	assert.Equal(t, 2, *calls)
	assert.Equal(t, "+244923000111", sent["to"])
	assert.Equal(t, "secret", sent["token"])
}

func TestRelay_MissingFields(t *testing.T) {
	h, calls := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := postRelay(h, "/", `{"problemId":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"missing required fields: newStatus, phoneNumber, problemTitle"}`, rec.Body.String())
	assert.Zero(t, *calls)
}

func TestRelay_InvalidJSON(t *testing.T) {
	h, calls := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := postRelay(h, "/", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, *calls)
}

func TestRelay_UpstreamFailure(t *testing.T) {
	h, calls := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Wrong token"}`))
	})

	rec := postRelay(h, "/", validRelayBody)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, strings.HasPrefix(body["error"], "failed to send notification: "))
	assert.Contains(t, body["error"], "Wrong token")
	assert.Equal(t, 1, *calls, "no retry")
}

func TestRelay_MethodNotAllowed(t *testing.T) {
	h, _ := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestRelay_Preflight(t *testing.T) {
	h, _ := newRelayServer(t, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
