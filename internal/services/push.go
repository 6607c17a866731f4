package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/database"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
)

// Push status values.
const (
	PushActive   = "active"
	PushDisabled = "disabled"
)

// ErrNoToken is returned by a Prompter that could not produce a push token.
var ErrNoToken = errors.New("no push token")

// Prompter asks the user for notification permission and obtains a push token.
type Prompter interface {
	RequestPermission(ctx context.Context) (bool, error)
	AcquireToken(ctx context.Context, vapidKey string) (string, error)
}

// PushPolicy configures token acquisition.
type PushPolicy struct {
	VAPIDKey string        `json:"vapidKey"`
	Attempts int           `json:"attempts"`
	Delay    time.Duration `json:"-"`
}

// PushRegistrar enables push notifications for a viewer. Failure only ever
// downgrades the visible status; it never blocks the dashboard.
type PushRegistrar struct {
	db     database.Querier
	toasts *ToastNotifier
	policy PushPolicy
	logger *zap.SugaredLogger
}

// NewPushRegistrar creates a new push registrar
func NewPushRegistrar(db database.Querier, toasts *ToastNotifier, policy PushPolicy, logger *zap.SugaredLogger) *PushRegistrar {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &PushRegistrar{db: db, toasts: toasts, policy: policy, logger: logger}
}

// Policy returns the acquisition policy advertised to clients.
func (r *PushRegistrar) Policy() PushPolicy { return r.policy }

// Enable runs the permission prompt and, once granted, acquires and stores a
// token under the retry policy. When every attempt fails the viewer gets a
// warning toast and the status is disabled.
func (r *PushRegistrar) Enable(ctx context.Context, viewerID, locale string, p Prompter) models.PushStatus {
	disabled := models.PushStatus{State: PushDisabled, Label: i18n.Translate(locale, "notificationsDisabled")}

	granted, err := p.RequestPermission(ctx)
	if err != nil || !granted {
		r.logger.Infow("Push permission not granted", "viewer", viewerID, "error", err)
		return disabled
	}

	var token string
	attempts := 0
	err = Retry(ctx, r.policy.Attempts, r.policy.Delay, func(ctx context.Context, attempt int) error {
		attempts = attempt
		t, err := p.AcquireToken(ctx, r.policy.VAPIDKey)
		if errors.Is(err, ErrNoToken) {
			// Asking again yields the same answer.
			r.logger.Warnw("Push token missing", "viewer", viewerID, "attempt", attempt)
			return Permanent(err)
		}
		if err != nil {
			r.logger.Warnw("Push token attempt failed", "viewer", viewerID, "attempt", attempt, "error", err)
			return err
		}
		if err := r.store(ctx, viewerID, t); err != nil {
			r.logger.Warnw("Push token store failed", "viewer", viewerID, "attempt", attempt, "error", err)
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		r.logger.Errorw("Push registration gave up", "viewer", viewerID, "attempts", attempts, "error", err)
		if r.toasts != nil {
			r.toasts.Notify(viewerID, "warning", disabled.Label)
		}
		disabled.Attempt = attempts
		return disabled
	}

	r.logger.Infow("Push notifications enabled", "viewer", viewerID, "attempts", attempts)
	return models.PushStatus{
		State:   PushActive,
		Label:   i18n.Translate(locale, "notificationsActive"),
		Token:   token,
		Attempt: attempts,
	}
}

func (r *PushRegistrar) store(ctx context.Context, viewerID, token string) error {
	query, args, err := database.SQL.
		Insert("push_tokens").
		Columns("token", "responsible_id").
		Values(token, viewerID).
		Suffix("ON CONFLICT (token) DO UPDATE SET responsible_id = EXCLUDED.responsible_id, updated_at = NOW()").
		ToSql()
	if err != nil {
		return fmt.Errorf("build push token upsert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("store push token: %w", err)
	}
	return nil
}

// BrowserGrant is the outcome of a prompt that already ran in the browser.
type BrowserGrant struct {
	Permission string
	Token      string
}

// RequestPermission reports the browser's answer.
func (g BrowserGrant) RequestPermission(context.Context) (bool, error) {
	return strings.EqualFold(g.Permission, "granted"), nil
}

// AcquireToken returns the token the browser obtained.
func (g BrowserGrant) AcquireToken(context.Context, string) (string, error) {
	if strings.TrimSpace(g.Token) == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(g.Token), nil
}
