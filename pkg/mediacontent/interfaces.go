package mediacontent

import (
	"context"
	"io"
	"iter"

	"github.com/google/uuid"
)

// AssetExtractor finds the assets referenced by a piece of content.
type AssetExtractor interface {
	// Extract returns the referenced assets keyed by asset ID. It must be
	// deterministic for the same content and have no side effects.
	Extract(ctx context.Context, content string) (map[uuid.UUID]*Asset, error)
}

// RelationStore persists asset-to-content relations.
type RelationStore interface {
	// GetRelations returns the relations recorded for one content field keyed by asset ID
	GetRelations(ctx context.Context, identity ContentIdentity) (map[uuid.UUID]*Relation, error)

	// Assign records that the asset is referenced by the content field. Fails with ErrCouldNotSave.
	Assign(ctx context.Context, assetID uuid.UUID, identity ContentIdentity) error

	// Unassign removes the relation. Fails with ErrCouldNotDelete.
	Unassign(ctx context.Context, assetID uuid.UUID, identity ContentIdentity) error

	// ListRelationsByAsset returns every content field that references the asset
	ListRelationsByAsset(ctx context.Context, assetID uuid.UUID) ([]*Relation, error)
}

// AssetRepository persists asset records and their keywords.
type AssetRepository interface {
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	GetAssetByPath(ctx context.Context, path string) (*Asset, error)
	SaveAsset(ctx context.Context, asset *Asset) error
	DeleteAssetByPath(ctx context.Context, path string) error

	// Keyword operations
	SetKeywords(ctx context.Context, assetID uuid.UUID, keywords []string) error
	GetKeywords(ctx context.Context, assetID uuid.UUID) ([]string, error)

	// SearchAssets matches titles by substring and keywords by exact equality
	SearchAssets(ctx context.Context, search AssetSearch) ([]*Asset, error)
}

// Repository combines relation and asset persistence.
type Repository interface {
	RelationStore
	AssetRepository
}

// MediaDirectory is a read-only handle on the media root.
type MediaDirectory interface {
	// AbsolutePath returns the root that walked paths are rooted at
	AbsolutePath() string

	// RelativePath expresses a full path relative to the root. It fails if
	// the path lies outside the root.
	RelativePath(path string) (string, error)

	// Open opens a file by its path relative to the root
	Open(ctx context.Context, relativePath string) (io.ReadCloser, error)
}

// DirectoryWalker produces the files under a root lazily. Walk order is not
// guaranteed to be stable. Each call walks from scratch.
type DirectoryWalker interface {
	Walk(ctx context.Context, root string) iter.Seq2[FileEntry, error]
}

// PruningWalker is a DirectoryWalker that can leave out whole directories.
// skipDir receives the full path of each directory below root; when it
// returns true nothing inside that directory is read or yielded.
type PruningWalker interface {
	DirectoryWalker
	WalkPruned(ctx context.Context, root string, skipDir func(path string) bool) iter.Seq2[FileEntry, error]
}
