package mediacontent

import (
	"time"

	"github.com/google/uuid"
)

// ContentType identifies the kind of entity that owns a content field.
type ContentType string

// Content types watched out of the box. New types are added by registering
// their fields with a Dispatcher.
const (
	ContentTypeCatalogProduct  ContentType = "catalog_product"
	ContentTypeCatalogCategory ContentType = "catalog_category"
	ContentTypeCMSBlock        ContentType = "cms_block"
)

// Asset source constants
const (
	AssetSourceLocal = "Local"
)

// Asset represents a media file known to the asset database.
type Asset struct {
	ID          uuid.UUID `json:"id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source,omitempty"`
	Hash        string    `json:"hash,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ContentIdentity addresses one field of one content entity.
type ContentIdentity struct {
	Type     ContentType `json:"type"`
	EntityID string      `json:"entity_id"`
	Field    string      `json:"field"`
}

// Relation records that an asset is referenced by a content field.
// At most one relation exists per (AssetID, ContentIdentity).
type Relation struct {
	AssetID   uuid.UUID       `json:"asset_id"`
	Content   ContentIdentity `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// ContentSnapshot maps a field name to its new content. A nil value means the
// field was cleared.
type ContentSnapshot map[string]*string

// FileEntry is one file produced by a DirectoryWalker.
type FileEntry struct {
	// Path is the full path of the file, rooted at the media directory's
	// absolute path.
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// AssetSearch holds the parameters of an asset search.
type AssetSearch struct {
	// Query matches asset titles by substring, or keywords by exact equality.
	Query  string
	Limit  int
	Offset int
}

// StringPtr returns a pointer to s, for building ContentSnapshot values.
func StringPtr(s string) *string {
	return &s
}
