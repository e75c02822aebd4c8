package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// SyncRunner runs one media synchronization
type SyncRunner interface {
	Execute(ctx context.Context) error
}

// AdminHandler exposes maintenance operations
type AdminHandler struct {
	service mediacontent.Service
	sync    SyncRunner
}

// NewAdminHandler creates a new admin handler. sync may be nil, in which case
// the sync route is not registered.
func NewAdminHandler(service mediacontent.Service, sync SyncRunner) *AdminHandler {
	return &AdminHandler{service: service, sync: sync}
}

// Routes returns the routes for admin operations
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.sync != nil {
		r.Post("/sync", h.Sync)
	}
	r.Delete("/assets", h.DeleteAsset)
	return r
}

// DeleteAsset removes the asset at the media-relative path given by the
// path query parameter.
func (h *AdminHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimLeft(r.URL.Query().Get("path"), "/")
	if path == "" {
		renderError(w, r, http.StatusBadRequest, "path query parameter is required")
		return
	}

	err := h.service.DeleteAsset(r.Context(), path)
	switch {
	case errors.Is(err, mediacontent.ErrAssetNotFound):
		renderError(w, r, http.StatusNotFound, "asset not found")
	case err != nil:
		slog.Error("Failed to delete asset", "path", path, "error", err)
		renderError(w, r, http.StatusInternalServerError, "failed to delete asset")
	default:
		render.NoContent(w, r)
	}
}

// SyncResponse is the response body of a successful synchronization
type SyncResponse struct {
	Status string `json:"status"`
}

// Sync synchronizes the media directory with the asset database
func (h *AdminHandler) Sync(w http.ResponseWriter, r *http.Request) {
	err := h.sync.Execute(r.Context())
	if err == nil {
		slog.Info("Media synchronization finished")
		render.JSON(w, r, SyncResponse{Status: "ok"})
		return
	}

	slog.Error("Media synchronization failed", "error", err)
	resp := ErrorResponse{
		Error:     err.Error(),
		RequestID: RequestIDFromContext(r.Context()),
	}
	var runErr *mediacontent.SyncRunError
	if errors.As(err, &runErr) {
		resp.FailedPaths = runErr.Paths()
	}
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp)
}
