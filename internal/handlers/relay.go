package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// RelayHandler exposes the WhatsApp notification relay
type RelayHandler struct {
	relay  *services.Relay
	logger *zap.SugaredLogger
}

// NewRelayHandler creates a new relay handler
func NewRelayHandler(relay *services.Relay, logger *zap.SugaredLogger) *RelayHandler {
	return &RelayHandler{relay: relay, logger: logger}
}

type relayResponse struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Send handles POST /api/v1/notify/whatsapp
func (h *RelayHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.RelayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	data, err := h.relay.Forward(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to send notification: "+err.Error())
		return
	}

	locale := i18n.Negotiate(req.Language)
	respondJSON(w, http.StatusOK, relayResponse{Message: i18n.Translate(locale, "relay.sent"), Data: data})
}
