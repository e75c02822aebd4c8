package config

import (
	"fmt"

	"github.com/tendant/media-content/pkg/mediacontent"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithDatabase configures a memory or postgres database
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		if dbType != DatabaseMemory && dbType != DatabasePostgres {
			return fmt.Errorf("database type must be 'memory' or 'postgres', got: %s", dbType)
		}
		if dbType == DatabasePostgres && url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithSQLite stores assets and relations in a SQLite file
func WithSQLite(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			return fmt.Errorf("sqlite path cannot be empty")
		}
		c.DatabaseType = DatabaseSQLite
		c.SQLitePath = path
		return nil
	}
}

// WithMediaDirectory synchronizes a local media directory
func WithMediaDirectory(dir string) Option {
	return func(c *ServerConfig) error {
		if dir == "" {
			return fmt.Errorf("media directory cannot be empty")
		}
		c.MediaType = MediaFilesystem
		c.MediaDir = dir
		return nil
	}
}

// WithS3Media synchronizes a media tree stored under a bucket prefix
func WithS3Media(bucket, prefix, region string) Option {
	return func(c *ServerConfig) error {
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.MediaType = MediaS3
		c.S3.Bucket = bucket
		c.S3.Prefix = prefix
		c.S3.Region = region
		return nil
	}
}

// WithS3Credentials sets AWS credentials for S3 media
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom S3 endpoint (for MinIO, LocalStack, etc.)
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithMediaURLPrefix sets the URL prefix of media references in markup
func WithMediaURLPrefix(prefix string) Option {
	return func(c *ServerConfig) error {
		c.MediaURLPrefix = prefix
		return nil
	}
}

// WithExcludedDirectories replaces the excluded media subdirectories
func WithExcludedDirectories(dirs ...string) Option {
	return func(c *ServerConfig) error {
		c.ExcludedDirectories = dirs
		return nil
	}
}

// WithContentFields replaces the watched fields per content type
func WithContentFields(fields map[mediacontent.ContentType][]string) Option {
	return func(c *ServerConfig) error {
		if len(fields) == 0 {
			return fmt.Errorf("at least one content type must be watched")
		}
		c.ContentFields = fields
		return nil
	}
}

// WithSyncWorkers sets how many files are synchronized at once
func WithSyncWorkers(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("sync workers must be positive, got: %d", n)
		}
		c.SyncWorkers = n
		return nil
	}
}

// WithReconcileConcurrency sets how many fields are reconciled at once
func WithReconcileConcurrency(n int) Option {
	return func(c *ServerConfig) error {
		if n <= 0 {
			return fmt.Errorf("reconcile concurrency must be positive, got: %d", n)
		}
		c.ReconcileConcurrency = n
		return nil
	}
}

// WithJWTSecret guards admin routes with HS256 tokens
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithAPIKeySHA256 sets the SHA-256 of the API key accepted by the server
func WithAPIKeySHA256(sum string) Option {
	return func(c *ServerConfig) error {
		c.APIKeySHA256 = sum
		return nil
	}
}

// WithDefaults resets the configuration to library defaults
func WithDefaults() Option {
	return func(c *ServerConfig) error {
		*c = defaults()
		return nil
	}
}
