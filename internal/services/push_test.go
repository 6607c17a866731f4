package services

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/i18n"
)

var errMessagingDown = errors.New("messaging service unavailable")

type fakePrompter struct {
	granted  bool
	failures int
	token    string
	calls    int
}

func (p *fakePrompter) RequestPermission(context.Context) (bool, error) { return p.granted, nil }

func (p *fakePrompter) AcquireToken(context.Context, string) (string, error) {
	p.calls++
	if p.calls <= p.failures {
		return "", errMessagingDown
	}
	return p.token, nil
}

func newTestRegistrar(t *testing.T, mock pgxmock.PgxPoolIface, hub *Hub) *PushRegistrar {
	t.Helper()
	return NewPushRegistrar(mock, NewToastNotifier(hub), PushPolicy{VAPIDKey: "vapid", Attempts: 3}, zap.NewNop().Sugar())
}

func TestPushRegistrar_DeniedPermission(t *testing.T) {
	mock := newMockPool(t)
	r := newTestRegistrar(t, mock, NewHub())

	p := &fakePrompter{granted: false}
	status := r.Enable(context.Background(), "me", i18n.PtBR, p)

	assert.Equal(t, PushDisabled, status.State)
	assert.Equal(t, "Notificações desativadas", status.Label)
	assert.Zero(t, p.calls, "no token requested without permission")
}

func TestPushRegistrar_SucceedsAfterRetry(t *testing.T) {
	mock := newMockPool(t)
	r := newTestRegistrar(t, mock, NewHub())

	mock.ExpectExec(`INSERT INTO push_tokens .* ON CONFLICT \(token\)`).
		WithArgs("tok-1", "me").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	status := r.Enable(context.Background(), "me", i18n.EnUS, &fakePrompter{granted: true, failures: 1, token: "tok-1"})

	assert.Equal(t, PushActive, status.State)
	assert.Equal(t, "Notifications active", status.Label)
	assert.Equal(t, "tok-1", status.Token)
	assert.Equal(t, 2, status.Attempt)
}

func TestPushRegistrar_GivesUpWithWarningToast(t *testing.T) {
	mock := newMockPool(t)
	hub := NewHub()
	toasts, cancel := hub.Subscribe("me")
	defer cancel()
	r := newTestRegistrar(t, mock, hub)

	p := &fakePrompter{granted: true, failures: 3, token: "never"}
	status := r.Enable(context.Background(), "me", i18n.PtBR, p)

	assert.Equal(t, PushDisabled, status.State)
	assert.Equal(t, 3, status.Attempt)
	assert.Equal(t, 3, p.calls)

	require.Len(t, toasts, 1)
	ev := <-toasts
	require.NotNil(t, ev.Toast)
	assert.Equal(t, "warning", ev.Toast.Level)
}

func TestPushRegistrar_StoreFailureCountsAsAttempt(t *testing.T) {
	mock := newMockPool(t)
	r := NewPushRegistrar(mock, nil, PushPolicy{Attempts: 2}, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO push_tokens`).
			WithArgs("tok", "me").
			WillReturnError(errors.New("db down"))
	}

	status := r.Enable(context.Background(), "me", i18n.PtBR, BrowserGrant{Permission: "granted", Token: "tok"})
	assert.Equal(t, PushDisabled, status.State)
	assert.Equal(t, 2, status.Attempt)
}

func TestPushRegistrar_MissingTokenIsNotRetried(t *testing.T) {
	mock := newMockPool(t)
	hub := NewHub()
	toasts, cancel := hub.Subscribe("me")
	defer cancel()
	r := NewPushRegistrar(mock, NewToastNotifier(hub), PushPolicy{Attempts: 3, Delay: time.Hour}, zap.NewNop().Sugar())

	start := time.Now()
	status := r.Enable(context.Background(), "me", i18n.EnUS, BrowserGrant{Permission: "granted"})

	assert.Equal(t, PushDisabled, status.State)
	assert.Equal(t, 1, status.Attempt)
	assert.Less(t, time.Since(start), time.Minute, "no wait between attempts")
	assert.Len(t, toasts, 1)
}

func TestBrowserGrant(t *testing.T) {
	ok, _ := BrowserGrant{Permission: "Granted"}.RequestPermission(context.Background())
	assert.True(t, ok)

	ok, _ = BrowserGrant{Permission: "denied"}.RequestPermission(context.Background())
	assert.False(t, ok)

	_, err := BrowserGrant{Token: "  "}.AcquireToken(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoToken)

	tok, err := BrowserGrant{Token: " abc "}.AcquireToken(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
}
