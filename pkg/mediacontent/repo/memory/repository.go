package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// Repository implements mediacontent.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	assets       map[uuid.UUID]*mediacontent.Asset
	assetsByPath map[string]uuid.UUID
	keywords     map[uuid.UUID][]string
	relations    map[mediacontent.ContentIdentity]map[uuid.UUID]*mediacontent.Relation
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		assets:       make(map[uuid.UUID]*mediacontent.Asset),
		assetsByPath: make(map[string]uuid.UUID),
		keywords:     make(map[uuid.UUID][]string),
		relations:    make(map[mediacontent.ContentIdentity]map[uuid.UUID]*mediacontent.Relation),
	}
}

// Relation operations

func (r *Repository) GetRelations(ctx context.Context, identity mediacontent.ContentIdentity) (map[uuid.UUID]*mediacontent.Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[uuid.UUID]*mediacontent.Relation, len(r.relations[identity]))
	for id, rel := range r.relations[identity] {
		relCopy := *rel
		result[id] = &relCopy
	}
	return result, nil
}

func (r *Repository) Assign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[assetID]; !exists {
		return fmt.Errorf("%w: asset %s does not exist", mediacontent.ErrCouldNotSave, assetID)
	}

	set, ok := r.relations[identity]
	if !ok {
		set = make(map[uuid.UUID]*mediacontent.Relation)
		r.relations[identity] = set
	}
	if _, exists := set[assetID]; exists {
		return nil
	}
	set[assetID] = &mediacontent.Relation{
		AssetID:   assetID,
		Content:   identity,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.relations[identity]
	delete(set, assetID)
	if len(set) == 0 {
		delete(r.relations, identity)
	}
	return nil
}

func (r *Repository) ListRelationsByAsset(ctx context.Context, assetID uuid.UUID) ([]*mediacontent.Relation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*mediacontent.Relation
	for _, set := range r.relations {
		if rel, ok := set[assetID]; ok {
			relCopy := *rel
			result = append(result, &relCopy)
		}
	}
	return result, nil
}

// Asset operations

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediacontent.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[id]
	if !exists {
		return nil, mediacontent.ErrAssetNotFound
	}
	assetCopy := *asset
	return &assetCopy, nil
}

func (r *Repository) GetAssetByPath(ctx context.Context, path string) (*mediacontent.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.assetsByPath[path]
	if !exists {
		return nil, mediacontent.ErrAssetNotFound
	}
	assetCopy := *r.assets[id]
	return &assetCopy, nil
}

// SaveAsset inserts or updates an asset. Assets are unique by path: saving a
// new ID for a known path updates the existing record and keeps its ID.
func (r *Repository) SaveAsset(ctx context.Context, asset *mediacontent.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existingID, ok := r.assetsByPath[asset.Path]; ok && existingID != asset.ID {
		asset.ID = existingID
		asset.CreatedAt = r.assets[existingID].CreatedAt
	}
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	if existing, ok := r.assets[asset.ID]; ok {
		if existing.Path != asset.Path {
			delete(r.assetsByPath, existing.Path)
		}
		asset.CreatedAt = existing.CreatedAt
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	asset.UpdatedAt = now

	assetCopy := *asset
	r.assets[asset.ID] = &assetCopy
	r.assetsByPath[asset.Path] = asset.ID
	return nil
}

// DeleteAssetByPath removes the asset with its keywords and relations
func (r *Repository) DeleteAssetByPath(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, exists := r.assetsByPath[path]
	if !exists {
		return mediacontent.ErrAssetNotFound
	}
	delete(r.assetsByPath, path)
	delete(r.assets, id)
	delete(r.keywords, id)
	for identity, set := range r.relations {
		delete(set, id)
		if len(set) == 0 {
			delete(r.relations, identity)
		}
	}
	return nil
}

// Keyword operations

func (r *Repository) SetKeywords(ctx context.Context, assetID uuid.UUID, keywords []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.assets[assetID]; !exists {
		return mediacontent.ErrAssetNotFound
	}
	var unique []string
	seen := make(map[string]bool)
	for _, k := range keywords {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, k)
	}
	sort.Strings(unique)
	r.keywords[assetID] = unique
	return nil
}

func (r *Repository) GetKeywords(ctx context.Context, assetID uuid.UUID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.assets[assetID]; !exists {
		return nil, mediacontent.ErrAssetNotFound
	}
	return append([]string(nil), r.keywords[assetID]...), nil
}

// SearchAssets matches titles containing the query (case-insensitive) or
// keywords equal to the query. An empty query matches every asset.
func (r *Repository) SearchAssets(ctx context.Context, search mediacontent.AssetSearch) ([]*mediacontent.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(search.Query)
	var result []*mediacontent.Asset
	for id, asset := range r.assets {
		if query != "" && !strings.Contains(strings.ToLower(asset.Title), query) && !hasKeyword(r.keywords[id], search.Query) {
			continue
		}
		assetCopy := *asset
		result = append(result, &assetCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return bytes.Compare(result[i].ID[:], result[j].ID[:]) < 0
	})

	if search.Offset > 0 {
		if search.Offset >= len(result) {
			return nil, nil
		}
		result = result[search.Offset:]
	}
	if search.Limit > 0 && len(result) > search.Limit {
		result = result[:search.Limit]
	}
	return result, nil
}

func hasKeyword(keywords []string, query string) bool {
	for _, k := range keywords {
		if k == query {
			return true
		}
	}
	return false
}
