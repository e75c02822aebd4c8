package mediacontent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Reconciler keeps the relations stored for content fields equal to the set of
// assets referenced by the fields' current content.
//
// Execute is not transactional across fields: when one field fails the others
// may already be updated. Every call diffs against the stored state, so a
// retry converges.
type Reconciler struct {
	extractor   AssetExtractor
	store       RelationStore
	logger      *slog.Logger
	concurrency int
}

// ReconcilerOption configures a Reconciler
type ReconcilerOption func(*Reconciler)

// WithReconcilerLogger sets the logger used for critical failures
func WithReconcilerLogger(logger *slog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithReconcilerConcurrency sets how many fields of one entity are processed at once
func WithReconcilerConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewReconciler creates a Reconciler over the given extractor and store
func NewReconciler(extractor AssetExtractor, store RelationStore, options ...ReconcilerOption) (*Reconciler, error) {
	if extractor == nil {
		return nil, fmt.Errorf("asset extractor is required")
	}
	if store == nil {
		return nil, fmt.Errorf("relation store is required")
	}

	r := &Reconciler{
		extractor:   extractor,
		store:       store,
		logger:      slog.Default(),
		concurrency: 1,
	}
	for _, option := range options {
		option(r)
	}
	return r, nil
}

// Execute reconciles every field in snapshot for the given entity. Any failure
// is logged at LevelCritical and returned as an *IntegrationError wrapping the
// root cause.
func (r *Reconciler) Execute(ctx context.Context, entityID string, snapshot ContentSnapshot, contentType ContentType) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, field := range slices.Sorted(maps.Keys(snapshot)) {
		identity := ContentIdentity{Type: contentType, EntityID: entityID, Field: field}
		content := snapshot[field]
		g.Go(func() error {
			return r.updateRelations(gctx, identity, content)
		})
	}

	if err := g.Wait(); err != nil {
		r.logger.Log(ctx, LevelCritical, "Failed to process media content relations",
			"content_type", contentType, "entity_id", entityID, "error", err)
		return &IntegrationError{
			ContentType: contentType,
			EntityID:    entityID,
			Err:         err,
		}
	}
	return nil
}

// updateRelations assigns newly referenced assets and unassigns assets no
// longer referenced by the field. Assets present on both sides are untouched.
func (r *Reconciler) updateRelations(ctx context.Context, identity ContentIdentity, content *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	relations, err := r.store.GetRelations(ctx, identity)
	if err != nil {
		return fmt.Errorf("failed to get relations for %s/%s/%s: %w", identity.Type, identity.EntityID, identity.Field, err)
	}

	var referenced map[uuid.UUID]*Asset
	if content != nil {
		referenced, err = r.extractor.Extract(ctx, *content)
		if err != nil {
			return &ExtractionError{Identity: identity, Err: err}
		}
	}

	for _, assetID := range sortedIDs(referenced) {
		if _, ok := relations[assetID]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.store.Assign(ctx, assetID, identity); err != nil {
			return &RelationError{Op: "assign", AssetID: assetID, Identity: identity, Err: err}
		}
		r.logger.Debug("Asset assigned", "asset_id", assetID, "content_type", identity.Type,
			"entity_id", identity.EntityID, "field", identity.Field)
	}

	for _, assetID := range sortedIDs(relations) {
		if _, ok := referenced[assetID]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.store.Unassign(ctx, assetID, identity); err != nil {
			return &RelationError{Op: "unassign", AssetID: assetID, Identity: identity, Err: err}
		}
		r.logger.Debug("Asset unassigned", "asset_id", assetID, "content_type", identity.Type,
			"entity_id", identity.EntityID, "field", identity.Field)
	}

	return nil
}

func sortedIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	return slices.SortedFunc(maps.Keys(m), func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
}
