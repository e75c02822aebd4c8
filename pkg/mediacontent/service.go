package mediacontent

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the media-content library
type Service interface {
	// Content relation operations
	ProcessContent(ctx context.Context, entityID string, snapshot ContentSnapshot, contentType ContentType) error
	HandleSave(ctx context.Context, contentType ContentType, entity Entity) error
	GetAssetsUsedInContent(ctx context.Context, identity ContentIdentity) ([]*Relation, error)
	GetContentUsingAsset(ctx context.Context, assetID uuid.UUID) ([]*Relation, error)
	WatchedFields(contentType ContentType) []string

	// Asset operations
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	SearchAssets(ctx context.Context, search AssetSearch) ([]*Asset, error)
	GetAssetKeywords(ctx context.Context, id uuid.UUID) ([]string, error)
	// DeleteAsset removes the asset stored at a media-relative path together
	// with its keywords and content relations.
	DeleteAsset(ctx context.Context, path string) error
}

// DefaultContentFields returns the fields watched for each built-in content type
func DefaultContentFields() map[ContentType][]string {
	return map[ContentType][]string{
		ContentTypeCatalogProduct:  {"description", "short_description"},
		ContentTypeCatalogCategory: {"description"},
		ContentTypeCMSBlock:        {"content"},
	}
}
