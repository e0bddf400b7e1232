// Package handler serves the latest timeline run to a presentation layer.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civitas/internal/timeline/store"
	dErrors "civitas/pkg/domain-errors"
	"civitas/pkg/platform/httputil"
	"civitas/pkg/platform/sentinel"
)

// Handler exposes read-only timeline endpoints.
type Handler struct {
	reader store.Reader
	logger *slog.Logger
}

func New(reader store.Reader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{reader: reader, logger: logger}
}

// Register registers the timeline routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/events", h.handleEvents)
		r.Get("/snapshots", h.handleIndex)
		r.Get("/snapshots/{file}", h.handleSnapshot)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reader.Events(r.Context())
	if err != nil {
		h.writeError(w, r, err, "events")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	index, err := h.reader.Index(r.Context())
	if err != nil {
		h.writeError(w, r, err, "snapshot index")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, index)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reader.Snapshot(r.Context(), chi.URLParam(r, "file"))
	if err != nil {
		h.writeError(w, r, err, "snapshot")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, what+" not found"))
	case dErrors.HasCode(err, dErrors.CodeBadRequest):
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(r.Context(), "failed to load "+what, "error", err.Error())
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load "+what))
	}
}
