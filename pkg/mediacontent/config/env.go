package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfig is the environment surface of the server. Unset variables keep
// the programmatic defaults.
type EnvConfig struct {
	Port        string `env:"PORT" env-description:"Server port"`
	Environment string `env:"ENVIRONMENT" env-description:"development, production or testing"`

	DatabaseURL string `env:"DATABASE_URL" env-description:"memory, postgres://..., or sqlite://path"`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres schema"`

	MediaURL            string   `env:"MEDIA_URL" env-description:"file:///abs/path or s3://bucket/prefix"`
	MediaURLPrefix      string   `env:"MEDIA_URL_PREFIX" env-description:"URL prefix of media references in markup"`
	ExcludedDirectories []string `env:"EXCLUDED_DIRECTORIES" env-separator:"," env-description:"Media subdirectories skipped by synchronization"`
	ContentFields       string   `env:"CONTENT_FIELDS" env-description:"Watched fields as type=f1|f2;type2=f3"`

	SyncWorkers          int `env:"SYNC_WORKERS" env-description:"Files synchronized at once"`
	ReconcileConcurrency int `env:"RECONCILE_CONCURRENCY" env-description:"Fields reconciled at once"`

	JWTSecret    string `env:"JWT_SECRET" env-description:"HS256 secret guarding admin routes"`
	APIKeySHA256 string `env:"API_KEY_SHA256" env-description:"SHA-256 of the API key"`

	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	AWSEndpoint        string `env:"AWS_S3_ENDPOINT"`
	AWSUsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE"`
}

// LoadServerConfig loads defaults overridden by the environment
func LoadServerConfig(opts ...Option) (*ServerConfig, error) {
	return Load(append([]Option{WithEnv()}, opts...)...)
}

// WithEnv applies environment variable overrides.
//
// Database:
//
//	DATABASE_URL - "memory" (default), "postgres://..." / "postgresql://...",
//	               or "sqlite://path/to/media.db" ("sqlite://:memory:" for tests)
//
// Media:
//
//	MEDIA_URL - "file:///path/to/media" or "s3://bucket/prefix"
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var env EnvConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

func (e EnvConfig) apply(c *ServerConfig) error {
	if e.Port != "" {
		c.Port = e.Port
	}
	if e.Environment != "" {
		c.Environment = e.Environment
	}

	if err := applyDatabaseURL(e.DatabaseURL, c); err != nil {
		return err
	}
	if e.DBSchema != "" {
		c.DBSchema = e.DBSchema
	}

	if err := applyMediaURL(e.MediaURL, c); err != nil {
		return err
	}
	if e.MediaURLPrefix != "" {
		c.MediaURLPrefix = e.MediaURLPrefix
	}
	if len(e.ExcludedDirectories) > 0 {
		c.ExcludedDirectories = e.ExcludedDirectories
	}
	if e.ContentFields != "" {
		fields, err := ParseContentFields(e.ContentFields)
		if err != nil {
			return fmt.Errorf("invalid CONTENT_FIELDS: %w", err)
		}
		c.ContentFields = fields
	}

	if e.SyncWorkers != 0 {
		c.SyncWorkers = e.SyncWorkers
	}
	if e.ReconcileConcurrency != 0 {
		c.ReconcileConcurrency = e.ReconcileConcurrency
	}
	if e.JWTSecret != "" {
		c.JWTSecret = e.JWTSecret
	}
	if e.APIKeySHA256 != "" {
		c.APIKeySHA256 = e.APIKeySHA256
	}

	if e.AWSRegion != "" {
		c.S3.Region = e.AWSRegion
	}
	if e.AWSAccessKeyID != "" {
		c.S3.AccessKeyID = e.AWSAccessKeyID
	}
	if e.AWSSecretAccessKey != "" {
		c.S3.SecretAccessKey = e.AWSSecretAccessKey
	}
	if e.AWSEndpoint != "" {
		c.S3.Endpoint = e.AWSEndpoint
		c.S3.UsePathStyle = e.AWSUsePathStyle
	}
	return nil
}

// applyDatabaseURL detects the database type from the URL scheme
func applyDatabaseURL(dbURL string, c *ServerConfig) error {
	switch {
	case dbURL == "":
		return nil
	case dbURL == "memory":
		c.DatabaseType = DatabaseMemory
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		c.DatabaseType = DatabasePostgres
		c.DatabaseURL = dbURL
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty in DATABASE_URL")
		}
		c.DatabaseType = DatabaseSQLite
		c.SQLitePath = path
		c.DatabaseURL = ""
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory', 'postgres://...' or 'sqlite://...')", dbURL)
	}
	return nil
}

// applyMediaURL configures the media directory from its URL
func applyMediaURL(mediaURL string, c *ServerConfig) error {
	switch {
	case mediaURL == "":
		return nil
	case strings.HasPrefix(mediaURL, "file://"):
		path := strings.TrimPrefix(mediaURL, "file://")
		if path == "" {
			return fmt.Errorf("filesystem path cannot be empty in MEDIA_URL")
		}
		c.MediaType = MediaFilesystem
		c.MediaDir = path
	case strings.HasPrefix(mediaURL, "s3://"):
		u, err := url.Parse(mediaURL)
		if err != nil {
			return fmt.Errorf("invalid MEDIA_URL: %w", err)
		}
		if u.Host == "" {
			return fmt.Errorf("S3 bucket name cannot be empty in MEDIA_URL")
		}
		c.MediaType = MediaS3
		c.S3.Bucket = u.Host
		c.S3.Prefix = strings.Trim(u.Path, "/")
		if region := u.Query().Get("region"); region != "" {
			c.S3.Region = region
		}
	default:
		return fmt.Errorf("unsupported MEDIA_URL format: %s (use 'file://...' or 's3://...')", mediaURL)
	}
	return nil
}
