package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/mediasync"
	"github.com/tendant/media-content/pkg/mediacontent/repo/memory"
	repopg "github.com/tendant/media-content/pkg/mediacontent/repo/postgres"
	reposqlite "github.com/tendant/media-content/pkg/mediacontent/repo/sqlite"
	fsstorage "github.com/tendant/media-content/pkg/mediacontent/storage/fs"
	s3storage "github.com/tendant/media-content/pkg/mediacontent/storage/s3"
)

// Database types
const (
	DatabaseMemory   = "memory"
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Media directory types
const (
	MediaFilesystem = "fs"
	MediaS3         = "s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:                 "8080",
		Environment:          "development",
		DatabaseType:         DatabaseMemory,
		MediaType:            MediaFilesystem,
		MediaDir:             "./media",
		MediaURLPrefix:       "/media/",
		ExcludedDirectories:  mediasync.DefaultExcludedDirectories(),
		ContentFields:        mediacontent.DefaultContentFields(),
		SyncWorkers:          1,
		ReconcileConcurrency: 1,
		S3:                   S3Config{Region: "us-east-1"},
	}
}

// ServerConfig represents configuration for the media content service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres", "sqlite"
	DBSchema     string // Postgres schema to use
	SQLitePath   string

	// Media directory configuration
	MediaType      string // "fs", "s3"
	MediaDir       string
	MediaURLPrefix string
	S3             S3Config

	// Synchronization and reconciliation
	ExcludedDirectories  []string
	ContentFields        map[mediacontent.ContentType][]string
	SyncWorkers          int
	ReconcileConcurrency int

	// Authentication
	JWTSecret    string
	APIKeySHA256 string
}

// S3Config locates a media tree in a bucket
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.DatabaseType {
	case DatabaseMemory:
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database_url is required when using postgres")
		}
	case DatabaseSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite path is required when using sqlite")
		}
	default:
		return fmt.Errorf("database_type must be 'memory', 'postgres' or 'sqlite', got: %s", c.DatabaseType)
	}

	switch c.MediaType {
	case MediaFilesystem:
		if c.MediaDir == "" {
			return errors.New("media directory is required")
		}
	case MediaS3:
		if c.S3.Bucket == "" {
			return errors.New("S3 bucket is required for s3 media")
		}
	default:
		return fmt.Errorf("media type must be 'fs' or 's3', got: %s", c.MediaType)
	}

	if c.SyncWorkers < 1 {
		return fmt.Errorf("sync workers must be positive, got: %d", c.SyncWorkers)
	}
	if c.ReconcileConcurrency < 1 {
		return fmt.Errorf("reconcile concurrency must be positive, got: %d", c.ReconcileConcurrency)
	}
	for contentType, fields := range c.ContentFields {
		if contentType == "" || len(fields) == 0 {
			return fmt.Errorf("content type %q must watch at least one field", contentType)
		}
	}
	return nil
}

// MediaStore is a media directory that can also be walked
type MediaStore interface {
	mediacontent.MediaDirectory
	mediacontent.DirectoryWalker
}

// Components holds everything built from a ServerConfig
type Components struct {
	Repository   mediacontent.Repository
	Service      mediacontent.Service
	Media        MediaStore
	Synchronizer *mediasync.Synchronizer

	closers []func() error
}

// Close releases database connections
func (c *Components) Close() error {
	var errs []error
	for _, closeFn := range slices.Backward(c.closers) {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// Build creates the repository, service, media directory and synchronizer
func (c *ServerConfig) Build(ctx context.Context, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	components := &Components{}

	repo, closeRepo, err := c.BuildRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	components.Repository = repo
	if closeRepo != nil {
		components.closers = append(components.closers, closeRepo)
	}

	components.Service, err = c.BuildService(repo, logger)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build service: %w", err)
	}

	components.Media, err = c.BuildMediaStore()
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build media directory: %w", err)
	}

	components.Synchronizer, err = c.BuildSynchronizer(components.Media, repo, logger)
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("failed to build synchronizer: %w", err)
	}
	return components, nil
}

// BuildService creates a Service on top of repo
func (c *ServerConfig) BuildService(repo mediacontent.Repository, logger *slog.Logger) (mediacontent.Service, error) {
	return mediacontent.New(
		mediacontent.WithRepository(repo),
		mediacontent.WithMediaURLPrefix(c.MediaURLPrefix),
		mediacontent.WithContentFields(c.ContentFields),
		mediacontent.WithFieldConcurrency(c.ReconcileConcurrency),
		mediacontent.WithLogger(logger),
	)
}

// BuildSynchronizer creates a Synchronizer whose pool writes asset records to repo
func (c *ServerConfig) BuildSynchronizer(media MediaStore, repo mediacontent.AssetRepository, logger *slog.Logger) (*mediasync.Synchronizer, error) {
	pool := mediasync.NewPool(mediasync.NewAssetFilesSynchronizer(media, repo))
	return mediasync.New(mediasync.StaticDirectory(media), media, pool,
		mediasync.WithExcludedDirectories(c.ExcludedDirectories...),
		mediasync.WithWorkers(c.SyncWorkers),
		mediasync.WithLogger(logger),
	)
}

// BuildMediaStore opens the configured media directory
func (c *ServerConfig) BuildMediaStore() (MediaStore, error) {
	switch c.MediaType {
	case MediaFilesystem:
		return fsstorage.New(fsstorage.Config{BaseDir: c.MediaDir})
	case MediaS3:
		return s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			Prefix:          c.S3.Prefix,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported media type: %s", c.MediaType)
	}
}

// BuildRepository creates a Repository based on the configuration. The
// returned close function is nil for the memory repository.
func (c *ServerConfig) BuildRepository(ctx context.Context) (mediacontent.Repository, func() error, error) {
	switch c.DatabaseType {
	case DatabaseMemory:
		return memory.New(), nil, nil
	case DatabaseSQLite:
		repo, err := reposqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case DatabasePostgres:
		pool, err := newPostgresPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		repo := repopg.NewWithPool(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, func() error { pool.Close(); return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func newPostgresPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, errors.New("database_url is required for postgres")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// ParseContentFields parses "type=field1|field2;type2=field3"
func ParseContentFields(s string) (map[mediacontent.ContentType][]string, error) {
	result := make(map[mediacontent.ContentType][]string)
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		contentType, list, ok := strings.Cut(entry, "=")
		contentType = strings.TrimSpace(contentType)
		if !ok || contentType == "" {
			return nil, fmt.Errorf("invalid content fields entry %q (want type=field1|field2)", entry)
		}
		var fields []string
		for _, f := range strings.Split(list, "|") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("content type %q has no fields", contentType)
		}
		ct := mediacontent.ContentType(contentType)
		result[ct] = append(result[ct], fields...)
	}
	return result, nil
}
