package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// PushHandler handles browser push registration
type PushHandler struct {
	registrar *services.PushRegistrar
	logger    *zap.SugaredLogger
}

// NewPushHandler creates a new push handler
func NewPushHandler(registrar *services.PushRegistrar, logger *zap.SugaredLogger) *PushHandler {
	return &PushHandler{registrar: registrar, logger: logger}
}

type pushConfigResponse struct {
	VAPIDKey string `json:"vapidKey"`
	Attempts int    `json:"attempts"`
	DelayMs  int64  `json:"delayMs"`
}

// Config handles GET /api/v1/push/config
func (h *PushHandler) Config(w http.ResponseWriter, r *http.Request) {
	p := h.registrar.Policy()
	respondJSON(w, http.StatusOK, pushConfigResponse{
		VAPIDKey: p.VAPIDKey,
		Attempts: p.Attempts,
		DelayMs:  p.Delay.Milliseconds(),
	})
}

type pushRegisterRequest struct {
	Permission string `json:"permission"`
	Token      string `json:"token"`
}

// Register handles POST /api/v1/push/tokens. The answer is always 200 with
// the resulting status; a failed registration only disables notifications.
func (h *PushHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req pushRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Permission == "" && req.Token != "" {
		req.Permission = "granted"
	}

	status := h.registrar.Enable(r.Context(),
		auth.UIDFromContext(r.Context()),
		i18n.FromContext(r.Context()),
		services.BrowserGrant{Permission: req.Permission, Token: req.Token},
	)
	respondJSON(w, http.StatusOK, status)
}
