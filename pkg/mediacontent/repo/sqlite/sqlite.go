package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/media-content/pkg/mediacontent"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Fixed-width UTC timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository implements mediacontent.Repository on a SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and runs pending
// migrations. Pass ":memory:" for an in-memory database.
func Open(path string) (*Repository, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}

	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return r, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := r.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// parseMigrationVersion extracts the leading number of "001_media.sql".
func parseMigrationVersion(name string) (int, error) {
	prefix, _, ok := strings.Cut(name, "_")
	if !ok {
		return 0, fmt.Errorf("invalid migration file name %q", name)
	}
	version, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("invalid migration version in %q: %w", name, err)
	}
	return version, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Relation operations

func (r *Repository) GetRelations(ctx context.Context, identity mediacontent.ContentIdentity) (map[uuid.UUID]*mediacontent.Relation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, content_type, entity_id, field, created_at
		FROM media_content_asset
		WHERE content_type = ? AND entity_id = ? AND field = ?`,
		string(identity.Type), identity.EntityID, identity.Field)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	relations, err := scanRelations(rows)
	if err != nil {
		return nil, err
	}
	result := make(map[uuid.UUID]*mediacontent.Relation, len(relations))
	for _, rel := range relations {
		result[rel.AssetID] = rel
	}
	return result, nil
}

func (r *Repository) Assign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_content_asset (asset_id, content_type, entity_id, field, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		assetID.String(), string(identity.Type), identity.EntityID, identity.Field, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("%w: relation for asset %s: %v", mediacontent.ErrCouldNotSave, assetID, err)
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM media_content_asset
		WHERE asset_id = ? AND content_type = ? AND entity_id = ? AND field = ?`,
		assetID.String(), string(identity.Type), identity.EntityID, identity.Field)
	if err != nil {
		return fmt.Errorf("%w: relation for asset %s: %v", mediacontent.ErrCouldNotDelete, assetID, err)
	}
	return nil
}

func (r *Repository) ListRelationsByAsset(ctx context.Context, assetID uuid.UUID) ([]*mediacontent.Relation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_id, content_type, entity_id, field, created_at
		FROM media_content_asset
		WHERE asset_id = ?`, assetID.String())
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()
	return scanRelations(rows)
}

func scanRelations(rows *sql.Rows) ([]*mediacontent.Relation, error) {
	var relations []*mediacontent.Relation
	for rows.Next() {
		var (
			rel         mediacontent.Relation
			contentType string
			createdAt   string
		)
		if err := rows.Scan(&rel.AssetID, &contentType, &rel.Content.EntityID, &rel.Content.Field, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing relation time: %w", err)
		}
		rel.Content.Type = mediacontent.ContentType(contentType)
		rel.CreatedAt = t
		relations = append(relations, &rel)
	}
	return relations, rows.Err()
}

// Asset operations

const assetColumns = `id, path, title, description, source, hash, content_type, width, height, size, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (*mediacontent.Asset, error) {
	var (
		a                    mediacontent.Asset
		createdAt, updatedAt string
	)
	err := row.Scan(&a.ID, &a.Path, &a.Title, &a.Description, &a.Source, &a.Hash,
		&a.ContentType, &a.Width, &a.Height, &a.Size, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, mediacontent.ErrAssetNotFound
		}
		return nil, fmt.Errorf("scanning asset: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing asset created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing asset updated_at: %w", err)
	}
	return &a, nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediacontent.Asset, error) {
	return scanAsset(r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_asset WHERE id = ?`, id.String()))
}

func (r *Repository) GetAssetByPath(ctx context.Context, path string) (*mediacontent.Asset, error) {
	return scanAsset(r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_asset WHERE path = ?`, path))
}

// SaveAsset inserts or updates an asset by path. The stored ID and creation
// time win over the ones passed in and are written back to asset.
func (r *Repository) SaveAsset(ctx context.Context, asset *mediacontent.Asset) error {
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}
	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}

	var id, createdAt string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO media_asset (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			source = excluded.source, hash = excluded.hash,
			content_type = excluded.content_type, width = excluded.width,
			height = excluded.height, size = excluded.size,
			updated_at = excluded.updated_at
		RETURNING id, created_at`,
		asset.ID.String(), asset.Path, asset.Title, asset.Description, asset.Source, asset.Hash,
		asset.ContentType, asset.Width, asset.Height, asset.Size, formatTime(asset.CreatedAt), formatTime(now),
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("%w: asset %s: %v", mediacontent.ErrCouldNotSave, asset.Path, err)
	}

	if asset.ID, err = uuid.Parse(id); err != nil {
		return fmt.Errorf("parsing asset id: %w", err)
	}
	if asset.CreatedAt, err = parseTime(createdAt); err != nil {
		return fmt.Errorf("parsing asset created_at: %w", err)
	}
	asset.UpdatedAt = now
	return nil
}

// DeleteAssetByPath removes the asset; keywords and relations cascade
func (r *Repository) DeleteAssetByPath(ctx context.Context, path string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media_asset WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("%w: asset %s: %v", mediacontent.ErrCouldNotDelete, path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: asset %s: %v", mediacontent.ErrCouldNotDelete, path, err)
	}
	if n == 0 {
		return mediacontent.ErrAssetNotFound
	}
	return nil
}

// Keyword operations

func (r *Repository) SetKeywords(ctx context.Context, assetID uuid.UUID, keywords []string) error {
	if _, err := r.GetAsset(ctx, assetID); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM media_asset_keyword WHERE asset_id = ?`, assetID.String()); err != nil {
		return fmt.Errorf("%w: keywords: %v", mediacontent.ErrCouldNotSave, err)
	}
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO media_asset_keyword (asset_id, keyword) VALUES (?, ?) ON CONFLICT DO NOTHING`,
			assetID.String(), k); err != nil {
			return fmt.Errorf("%w: keywords: %v", mediacontent.ErrCouldNotSave, err)
		}
	}
	return tx.Commit()
}

func (r *Repository) GetKeywords(ctx context.Context, assetID uuid.UUID) ([]string, error) {
	if _, err := r.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT keyword FROM media_asset_keyword WHERE asset_id = ? ORDER BY keyword`, assetID.String())
	if err != nil {
		return nil, fmt.Errorf("querying keywords: %w", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning keyword: %w", err)
		}
		keywords = append(keywords, k)
	}
	return keywords, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchAssets matches titles containing the query (case-insensitive for
// ASCII) or keywords equal to the query. An empty query matches every asset.
func (r *Repository) SearchAssets(ctx context.Context, search mediacontent.AssetSearch) ([]*mediacontent.Asset, error) {
	limit := -1
	if search.Limit > 0 {
		limit = search.Limit
	}
	offset := max(search.Offset, 0)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assetColumns+`
		FROM media_asset
		WHERE ?1 = ''
			OR title LIKE '%' || ?2 || '%' ESCAPE '\'
			OR id IN (SELECT asset_id FROM media_asset_keyword WHERE keyword = ?1)
		ORDER BY created_at DESC, id
		LIMIT ?3 OFFSET ?4`,
		search.Query, likeEscaper.Replace(search.Query), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching assets: %w", err)
	}
	defer rows.Close()

	var assets []*mediacontent.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}
