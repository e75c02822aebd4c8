package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// ContentHandler receives content saves and reports the assets they use
type ContentHandler struct {
	service mediacontent.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service mediacontent.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// Routes returns the routes for content
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Put("/{contentType}/{entityID}", h.SaveContent)
	r.Get("/{contentType}/{entityID}/fields/{field}/assets", h.GetFieldAssets)

	return r
}

// SaveContentRequest carries the saved field values of one entity. A null
// value clears the field. When Original is present, only fields whose value
// differs from it are reconciled.
type SaveContentRequest struct {
	Fields   map[string]*string `json:"fields"`
	Original map[string]*string `json:"original,omitempty"`
}

// SaveContent reconciles the asset relations of the watched fields in the body
func (h *ContentHandler) SaveContent(w http.ResponseWriter, r *http.Request) {
	contentType := mediacontent.ContentType(chi.URLParam(r, "contentType"))
	entityID := chi.URLParam(r, "entityID")

	var req SaveContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Invalid content body", "content_type", contentType, "entity_id", entityID, "error", err)
		renderError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	watched := h.service.WatchedFields(contentType)
	if len(watched) == 0 {
		renderError(w, r, http.StatusNotFound, "Unknown content type: "+string(contentType))
		return
	}

	var err error
	if req.Original != nil {
		err = h.service.HandleSave(r.Context(), contentType, &mediacontent.ChangeSet{
			EntityID: entityID,
			Original: req.Original,
			Current:  req.Fields,
		})
	} else {
		snapshot := make(mediacontent.ContentSnapshot)
		for _, field := range watched {
			if value, ok := req.Fields[field]; ok {
				snapshot[field] = value
			}
		}
		if len(snapshot) > 0 {
			err = h.service.ProcessContent(r.Context(), entityID, snapshot, contentType)
		}
	}

	if err != nil {
		slog.Error("Failed to process content", "content_type", contentType, "entity_id", entityID, "error", err)
		if errors.Is(err, mediacontent.ErrInvalidContentType) {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.NoContent(w, r)
}

// GetFieldAssets lists the relations of one content field
func (h *ContentHandler) GetFieldAssets(w http.ResponseWriter, r *http.Request) {
	identity := mediacontent.ContentIdentity{
		Type:     mediacontent.ContentType(chi.URLParam(r, "contentType")),
		EntityID: chi.URLParam(r, "entityID"),
		Field:    chi.URLParam(r, "field"),
	}

	relations, err := h.service.GetAssetsUsedInContent(r.Context(), identity)
	if err != nil {
		slog.Error("Failed to get content assets", "content_type", identity.Type, "entity_id", identity.EntityID, "field", identity.Field, "error", err)
		renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	render.JSON(w, r, newRelationResponses(relations))
}
