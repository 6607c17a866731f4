package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// DefaultReportWindow is used when ?days= is absent.
const DefaultReportWindow = 30

// ReportBuilder produces report aggregates.
type ReportBuilder interface {
	Build(ctx context.Context, viewerID string, windowDays int) (models.ReportAggregate, error)
}

// ReportHandler serves the chart data of the reports page.
type ReportHandler struct {
	reports ReportBuilder
	logger  *zap.SugaredLogger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ReportBuilder, logger *zap.SugaredLogger) *ReportHandler {
	return &ReportHandler{reports: reports, logger: logger}
}

// Get handles GET /api/v1/reports?days=N. A failed query yields 503 with the
// localized error, never an all-zero aggregate.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())

	days := DefaultReportWindow
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "days must be a number")
			return
		}
		days = n
	}

	agg, err := h.reports.Build(r.Context(), auth.UIDFromContext(r.Context()), days)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrReportUnavailable):
			respondError(w, http.StatusServiceUnavailable, i18n.Translate(locale, "errorReports"))
		default:
			h.logger.Errorw("Report failed", "error", err)
			respondError(w, http.StatusInternalServerError, i18n.Translate(locale, "errorReports"))
		}
		return
	}
	respondJSON(w, http.StatusOK, agg)
}
