package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/media-content/pkg/mediacontent"
)

const maxSearchLimit = 200

// AssetHandler serves asset lookups and searches
type AssetHandler struct {
	service mediacontent.Service
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(service mediacontent.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Routes returns the routes for assets
func (h *AssetHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.SearchAssets)
	r.Get("/{id}", h.GetAsset)
	r.Get("/{id}/usage", h.GetAssetUsage)

	return r
}

// SearchAssets matches assets by title substring or exact keyword
func (h *AssetHandler) SearchAssets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := intParam(query.Get("limit"), 50)
	if err != nil || limit < 0 {
		renderError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := intParam(query.Get("offset"), 0)
	if err != nil || offset < 0 {
		renderError(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}
	if limit == 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	assets, err := h.service.SearchAssets(r.Context(), mediacontent.AssetSearch{
		Query:  query.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("Failed to search assets", "query", query.Get("search"), "error", err)
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		resp = append(resp, newAssetResponse(asset, nil))
	}
	render.JSON(w, r, resp)
}

// GetAsset returns an asset with its keywords
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	asset, err := h.service.GetAsset(r.Context(), id)
	if err != nil {
		h.renderLookupError(w, r, id, err)
		return
	}
	keywords, err := h.service.GetAssetKeywords(r.Context(), id)
	if err != nil {
		h.renderLookupError(w, r, id, err)
		return
	}

	render.JSON(w, r, newAssetResponse(asset, keywords))
}

// GetAssetUsage lists the content fields referencing an asset
func (h *AssetHandler) GetAssetUsage(w http.ResponseWriter, r *http.Request) {
	id, ok := assetID(w, r)
	if !ok {
		return
	}

	relations, err := h.service.GetContentUsingAsset(r.Context(), id)
	if err != nil {
		h.renderLookupError(w, r, id, err)
		return
	}

	render.JSON(w, r, newRelationResponses(relations))
}

func (h *AssetHandler) renderLookupError(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	if errors.Is(err, mediacontent.ErrAssetNotFound) {
		renderError(w, r, http.StatusNotFound, "Asset not found")
		return
	}
	slog.Error("Failed to get asset", "asset_id", id, "error", err)
	renderError(w, r, http.StatusInternalServerError, err.Error())
}

func assetID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "Invalid asset ID")
		return uuid.Nil, false
	}
	return id, true
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
