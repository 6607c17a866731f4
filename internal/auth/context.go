package auth

import (
	"context"

	"github.com/emanueledman/fixa-admin/internal/models"
)

type ctxKey int

const (
	uidKey ctxKey = iota
	responsibleKey
)

// WithUID stores the authenticated uid.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, uidKey, uid)
}

// UIDFromContext returns the authenticated uid, or "" for anonymous requests.
func UIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(uidKey).(string)
	return uid
}

// WithResponsible stores the verified responsible profile.
func WithResponsible(ctx context.Context, r models.Responsible) context.Context {
	return context.WithValue(ctx, responsibleKey, r)
}

// ResponsibleFromContext returns the profile placed by the responsible check.
func ResponsibleFromContext(ctx context.Context) (models.Responsible, bool) {
	r, ok := ctx.Value(responsibleKey).(models.Responsible)
	return r, ok
}
