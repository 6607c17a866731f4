package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/auth"
	"github.com/emanueledman/fixa-admin/internal/dashboard"
	"github.com/emanueledman/fixa-admin/internal/i18n"
	"github.com/emanueledman/fixa-admin/internal/models"
	"github.com/emanueledman/fixa-admin/internal/services"
)

// ProblemStore is what the problem endpoints need from the problem service.
type ProblemStore interface {
	ListByResponsible(ctx context.Context, viewerID string) ([]models.Problem, error)
	Get(ctx context.Context, viewerID, id string) (models.Problem, error)
	UpdateStatus(ctx context.Context, viewerID, id, status string, expectedVersion *int64) (models.Problem, error)
	UpdateFields(ctx context.Context, viewerID, id string, patch models.ProblemPatch, expectedVersion *int64) (models.Problem, error)
}

// NameResolver turns a uid into the name shown on cards.
type NameResolver interface {
	DisplayName(ctx context.Context, uid, locale string) (string, error)
}

// Nudger schedules a fresh snapshot for a viewer.
type Nudger interface {
	Nudge(viewerID string)
}

// ProblemOptions configures paths and presentation of the problem endpoints.
type ProblemOptions struct {
	PageSize   int
	Location   *time.Location
	ListPath   string
	ViewPath   string
	ActionPath string
	Heartbeat  time.Duration
}

// ProblemHandler serves the problems list, its HTML fragment, the realtime
// stream and the mutation endpoints.
type ProblemHandler struct {
	problems ProblemStore
	names    NameResolver
	hub      *services.Hub
	feed     Nudger
	toasts   *services.ToastNotifier
	opts     ProblemOptions
	logger   *zap.SugaredLogger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewProblemHandler creates a new problem handler
func NewProblemHandler(problems ProblemStore, names NameResolver, hub *services.Hub, feed Nudger,
	toasts *services.ToastNotifier, opts ProblemOptions, logger *zap.SugaredLogger) *ProblemHandler {
	if opts.PageSize <= 0 {
		opts.PageSize = dashboard.DefaultPageSize
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 25 * time.Second
	}
	return &ProblemHandler{
		problems: problems,
		names:    names,
		hub:      hub,
		feed:     feed,
		toasts:   toasts,
		opts:     opts,
		logger:   logger,
		closing:  make(chan struct{}),
	}
}

// CloseStreams ends every open event stream. It is registered with
// http.Server.RegisterOnShutdown so Shutdown does not wait on streams.
func (h *ProblemHandler) CloseStreams() {
	h.closeOnce.Do(func() { close(h.closing) })
}

type listResponse struct {
	dashboard.ListView
	Items []models.Problem `json:"items"`
}

func stateFromQuery(r *http.Request) dashboard.State {
	q := r.URL.Query()
	state := dashboard.DecodeState(q)
	if strings.EqualFold(q.Get("action"), "clear") {
		state = state.Apply(dashboard.FiltersCleared{})
	}
	return state
}

func (h *ProblemHandler) renderer(ctx context.Context, uid, locale, basePath string) dashboard.Renderer {
	name, err := h.names.DisplayName(ctx, uid, locale)
	if err != nil {
		h.logger.Warnw("Display name lookup failed", "uid", uid, "error", err)
		name = ""
	}
	return dashboard.Renderer{
		Locale:          locale,
		Location:        h.opts.Location,
		ResponsibleName: name,
		BasePath:        basePath,
		ActionPath:      h.opts.ActionPath,
	}
}

// load builds the viewer's view for the request state. Records are always
// read with the authenticated uid, never a client-supplied owner.
func (h *ProblemHandler) load(r *http.Request, basePath string) (*dashboard.View, dashboard.ListView, dashboard.Page, error) {
	ctx := r.Context()
	uid := auth.UIDFromContext(ctx)
	locale := i18n.FromContext(ctx)

	records, err := h.problems.ListByResponsible(ctx, uid)
	if err != nil {
		return nil, dashboard.ListView{}, dashboard.Page{}, err
	}

	view := dashboard.NewView(stateFromQuery(r), h.opts.PageSize)
	view.Replace(records)
	page := view.Current()
	lv := h.renderer(ctx, uid, locale, basePath).Build(page, view.State(), len(records))
	return view, lv, page, nil
}

// List handles GET /api/v1/problems
func (h *ProblemHandler) List(w http.ResponseWriter, r *http.Request) {
	_, lv, page, err := h.load(r, h.opts.ListPath)
	if err != nil {
		h.logger.Errorw("Failed to list problems", "uid", auth.UIDFromContext(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, i18n.Translate(i18n.FromContext(r.Context()), "errorLoading"))
		return
	}
	respondJSON(w, http.StatusOK, listResponse{ListView: lv, Items: page.Items})
}

// View handles GET /api/v1/problems/view and returns the rendered HTML fragment.
func (h *ProblemHandler) View(w http.ResponseWriter, r *http.Request) {
	locale := i18n.FromContext(r.Context())
	_, lv, _, err := h.load(r, h.opts.ViewPath)
	if err != nil {
		h.logger.Errorw("Failed to render problems", "uid", auth.UIDFromContext(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, i18n.Translate(locale, "errorLoading"))
		return
	}

	var buf bytes.Buffer
	if err := (dashboard.Renderer{Locale: locale}).RenderHTML(&buf, lv); err != nil {
		h.logger.Errorw("Template render failed", "error", err)
		respondError(w, http.StatusInternalServerError, i18n.Translate(locale, "errorLoading"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Get handles GET /api/v1/problems/{id}
func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := auth.UIDFromContext(r.Context())
	p, err := h.problems.Get(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Problem not found")
			return
		}
		h.logger.Errorw("Failed to get problem", "error", err)
		respondError(w, http.StatusInternalServerError, i18n.Translate(i18n.FromContext(r.Context()), "errorLoading"))
		return
	}
	w.Header().Set("ETag", strconv.FormatInt(p.Version, 10))
	respondJSON(w, http.StatusOK, p)
}

type mutationResponse struct {
	Problem models.Problem `json:"problem"`
	Toast   models.Toast   `json:"toast"`
}

// expectedVersion reads an optional If-Match header.
func expectedVersion(r *http.Request) (*int64, error) {
	v := strings.Trim(strings.TrimSpace(r.Header.Get("If-Match")), `"`)
	if v == "" || v == "*" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, &services.ValidationError{Field: "If-Match", Message: "must be a problem version"}
	}
	return &n, nil
}

// UpdateStatus handles PATCH /api/v1/problems/{id}/status
func (h *ProblemHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.mutationFailed(w, r, &services.ValidationError{Message: "invalid request body"})
		return
	}
	version, err := expectedVersion(r)
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}

	uid := auth.UIDFromContext(r.Context())
	p, err := h.problems.UpdateStatus(r.Context(), uid, chi.URLParam(r, "id"), req.Status, version)
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.mutationDone(w, r, p, "statusUpdated")
}

// Update handles PATCH /api/v1/problems/{id}
func (h *ProblemHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.ProblemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.mutationFailed(w, r, &services.ValidationError{Message: "invalid request body"})
		return
	}
	version, err := expectedVersion(r)
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}

	uid := auth.UIDFromContext(r.Context())
	p, err := h.problems.UpdateFields(r.Context(), uid, chi.URLParam(r, "id"), patch, version)
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.mutationDone(w, r, p, "problemUpdated")
}

func (h *ProblemHandler) mutationDone(w http.ResponseWriter, r *http.Request, p models.Problem, key string) {
	uid := auth.UIDFromContext(r.Context())
	toast := h.toasts.Notify(uid, "success", i18n.Translate(i18n.FromContext(r.Context()), key))
	if h.feed != nil {
		h.feed.Nudge(uid)
	}
	w.Header().Set("ETag", strconv.FormatInt(p.Version, 10))
	respondJSON(w, http.StatusOK, mutationResponse{Problem: p, Toast: toast})
}

// mutationFailed reports a failed write as "errorUpdate + detail", both in the
// response and as a toast on the viewer's streams.
func (h *ProblemHandler) mutationFailed(w http.ResponseWriter, r *http.Request, err error) {
	uid := auth.UIDFromContext(r.Context())
	locale := i18n.FromContext(r.Context())

	status := statusFor(err)
	var msg string
	switch status {
	case http.StatusConflict:
		msg = i18n.Translate(locale, "conflict")
	case http.StatusNotFound:
		msg = i18n.Translate(locale, "errorUpdate") + "problem not found"
	case http.StatusInternalServerError:
		h.logger.Errorw("Problem update failed", "uid", uid, "problem_id", chi.URLParam(r, "id"), "error", err)
		msg = i18n.Translate(locale, "errorUpdate") + "internal error"
	default:
		msg = i18n.Translate(locale, "errorUpdate") + validationDetail(err)
	}

	h.toasts.Notify(uid, "danger", msg)
	respondError(w, status, msg)
}

func validationDetail(err error) string {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

// Stream handles GET /api/v1/problems/stream. The stream owns one View: it
// sends the rendered page on attach, re-renders on every snapshot and emits a
// new_problem event for ids it has not seen before.
func (h *ProblemHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "stream unsupported")
		return
	}

	ctx := r.Context()
	uid := auth.UIDFromContext(ctx)
	locale := i18n.FromContext(ctx)

	events, cancel := h.hub.Subscribe(uid)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	view := dashboard.NewView(stateFromQuery(r), h.opts.PageSize)
	renderer := h.renderer(ctx, uid, locale, h.opts.ViewPath)
	seen := make(map[string]struct{})
	primed := false

	send := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Errorw("Stream payload encode failed", "event", event, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}
	render := func() {
		page := view.Current()
		lv := renderer.Build(page, view.State(), len(view.Records()))
		var buf bytes.Buffer
		if err := renderer.RenderHTML(&buf, lv); err != nil {
			h.logger.Errorw("Stream render failed", "error", err)
			return
		}
		send("page", map[string]any{"html": buf.String(), "view": lv})
	}

	records, err := h.problems.ListByResponsible(ctx, uid)
	if err != nil {
		h.logger.Errorw("Stream initial load failed", "uid", uid, "error", err)
		send("error", map[string]string{"error": i18n.Translate(locale, "errorLoading")})
	} else {
		for _, p := range records {
			seen[p.ID] = struct{}{}
		}
		primed = true
		view.Replace(records)
		render()
	}

	ticker := time.NewTicker(h.opts.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closing:
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case services.EventSnapshot:
				for _, p := range ev.Problems {
					if _, known := seen[p.ID]; known {
						continue
					}
					seen[p.ID] = struct{}{}
					if !primed {
						continue
					}
					send("new_problem", newProblemEvent(p, locale))
				}
				primed = true
				view.Replace(ev.Problems)
				render()
			case services.EventToast:
				send("toast", ev.Toast)
			}
		}
	}
}

// newProblemEvent is the payload of a new_problem event. Body is the
// notification text: title and description with placeholders for blanks.
func newProblemEvent(p models.Problem, locale string) map[string]string {
	title := p.Title
	if strings.TrimSpace(title) == "" {
		title = i18n.Translate(locale, "empty.title")
	}
	description := p.Description
	if strings.TrimSpace(description) == "" {
		description = i18n.Translate(locale, "empty.description")
	}
	return map[string]string{
		"id":          p.ID,
		"title":       p.Title,
		"description": p.Description,
		"message":     i18n.Translate(locale, "newProblem"),
		"body":        title + " - " + description,
	}
}
