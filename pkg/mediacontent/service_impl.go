package mediacontent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	repository       Repository
	extractor        AssetExtractor
	mediaURLPrefix   string
	contentFields    map[ContentType][]string
	logger           *slog.Logger
	fieldConcurrency int

	reconciler *Reconciler
	dispatcher *Dispatcher
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithExtractor replaces the default markup extractor
func WithExtractor(extractor AssetExtractor) Option {
	return func(s *service) {
		s.extractor = extractor
	}
}

// WithMediaURLPrefix sets the public prefix media is served under
func WithMediaURLPrefix(prefix string) Option {
	return func(s *service) {
		s.mediaURLPrefix = prefix
	}
}

// WithContentFields sets the watched fields per content type, replacing the defaults
func WithContentFields(fields map[ContentType][]string) Option {
	return func(s *service) {
		s.contentFields = fields
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithFieldConcurrency sets how many fields of one entity are reconciled at once
func WithFieldConcurrency(n int) Option {
	return func(s *service) {
		s.fieldConcurrency = n
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		logger:           slog.Default(),
		fieldConcurrency: 1,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.extractor == nil {
		s.extractor = NewMarkupExtractor(s.repository, s.mediaURLPrefix)
	}
	if s.contentFields == nil {
		s.contentFields = DefaultContentFields()
	}

	reconciler, err := NewReconciler(s.extractor, s.repository,
		WithReconcilerLogger(s.logger),
		WithReconcilerConcurrency(s.fieldConcurrency),
	)
	if err != nil {
		return nil, err
	}
	s.reconciler = reconciler

	s.dispatcher = NewDispatcher(reconciler)
	for contentType, fields := range s.contentFields {
		s.dispatcher.Register(contentType, fields...)
	}

	return s, nil
}

// Content relation operations

func (s *service) ProcessContent(ctx context.Context, entityID string, snapshot ContentSnapshot, contentType ContentType) error {
	return s.reconciler.Execute(ctx, entityID, snapshot, contentType)
}

func (s *service) HandleSave(ctx context.Context, contentType ContentType, entity Entity) error {
	return s.dispatcher.OnSave(ctx, contentType, entity)
}

func (s *service) GetAssetsUsedInContent(ctx context.Context, identity ContentIdentity) ([]*Relation, error) {
	relations, err := s.repository.GetRelations(ctx, identity)
	if err != nil {
		return nil, err
	}
	result := make([]*Relation, 0, len(relations))
	for _, id := range sortedIDs(relations) {
		result = append(result, relations[id])
	}
	return result, nil
}

func (s *service) GetContentUsingAsset(ctx context.Context, assetID uuid.UUID) ([]*Relation, error) {
	if _, err := s.repository.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	relations, err := s.repository.ListRelationsByAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(relations, compareRelations)
	return relations, nil
}

func (s *service) WatchedFields(contentType ContentType) []string {
	return s.dispatcher.Fields(contentType)
}

// Asset operations

func (s *service) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	return s.repository.GetAsset(ctx, id)
}

func (s *service) SearchAssets(ctx context.Context, search AssetSearch) ([]*Asset, error) {
	return s.repository.SearchAssets(ctx, search)
}

func (s *service) GetAssetKeywords(ctx context.Context, id uuid.UUID) ([]string, error) {
	return s.repository.GetKeywords(ctx, id)
}

func (s *service) DeleteAsset(ctx context.Context, path string) error {
	if err := s.repository.DeleteAssetByPath(ctx, path); err != nil {
		return err
	}
	s.logger.Info("Deleted media asset", "path", path)
	return nil
}

func compareRelations(a, b *Relation) int {
	if c := strings.Compare(string(a.Content.Type), string(b.Content.Type)); c != 0 {
		return c
	}
	if c := strings.Compare(a.Content.EntityID, b.Content.EntityID); c != 0 {
		return c
	}
	if c := strings.Compare(a.Content.Field, b.Content.Field); c != 0 {
		return c
	}
	return bytes.Compare(a.AssetID[:], b.AssetID[:])
}
