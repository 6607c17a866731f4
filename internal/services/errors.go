// Package services contains business logic layers.
// Services are called by handlers and interact with the database.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("version conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("not a responsible")
	ErrReportUnavailable = errors.New("report unavailable")
	ErrUpstream          = errors.New("upstream failure")
)

// ValidationError is a local rejection raised before any write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UpstreamError carries the detail of a failed call to a third-party API.
type UpstreamError struct {
	StatusCode int
	Detail     string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("upstream unreachable: %s", e.Detail)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return ErrUpstream }

// mapError converts pgx errors to service errors.
// Context cancellation passes through untouched.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w", entity, id, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", entity, id, err)
}
