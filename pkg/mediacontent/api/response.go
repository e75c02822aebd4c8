package api

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error       string   `json:"error"`
	RequestID   string   `json:"request_id,omitempty"`
	FailedPaths []string `json:"failed_paths,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{
		Error:     message,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// AssetResponse is the response body for an asset
type AssetResponse struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Size        int64     `json:"size"`
	Keywords    []string  `json:"keywords,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newAssetResponse(asset *mediacontent.Asset, keywords []string) AssetResponse {
	return AssetResponse{
		ID:          asset.ID.String(),
		Path:        asset.Path,
		Title:       asset.Title,
		Description: asset.Description,
		Source:      asset.Source,
		Hash:        asset.Hash,
		ContentType: asset.ContentType,
		Width:       asset.Width,
		Height:      asset.Height,
		Size:        asset.Size,
		Keywords:    keywords,
		CreatedAt:   asset.CreatedAt,
		UpdatedAt:   asset.UpdatedAt,
	}
}

// RelationResponse is the response body for an asset/content relation
type RelationResponse struct {
	AssetID     string    `json:"asset_id"`
	ContentType string    `json:"content_type"`
	EntityID    string    `json:"entity_id"`
	Field       string    `json:"field"`
	CreatedAt   time.Time `json:"created_at"`
}

func newRelationResponses(relations []*mediacontent.Relation) []RelationResponse {
	resp := make([]RelationResponse, 0, len(relations))
	for _, rel := range relations {
		resp = append(resp, RelationResponse{
			AssetID:     rel.AssetID.String(),
			ContentType: string(rel.Content.Type),
			EntityID:    rel.Content.EntityID,
			Field:       rel.Content.Field,
			CreatedAt:   rel.CreatedAt,
		})
	}
	return resp
}
