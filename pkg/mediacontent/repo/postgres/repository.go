package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/media-content/pkg/mediacontent"
)

//go:embed schema.sql
var schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements mediacontent.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the media tables when they do not exist yet
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "path") {
				return fmt.Errorf("%w: asset path already exists", mediacontent.ErrCouldNotSave)
			}
			return fmt.Errorf("%w: duplicate entry", mediacontent.ErrCouldNotSave)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced asset not found", mediacontent.ErrCouldNotSave)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", mediacontent.ErrCouldNotSave, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return mediacontent.ErrAssetNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// writeError classifies a failed write so that it always matches sentinel,
// whatever the underlying cause.
func (r *Repository) writeError(operation string, sentinel, err error) error {
	err = r.handlePostgresError(operation, err)
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Relation operations

func (r *Repository) GetRelations(ctx context.Context, identity mediacontent.ContentIdentity) (map[uuid.UUID]*mediacontent.Relation, error) {
	query := `
		SELECT asset_id, content_type, entity_id, field, created_at
		FROM media_content_asset
		WHERE content_type = $1 AND entity_id = $2 AND field = $3`

	rows, err := r.db.Query(ctx, query, string(identity.Type), identity.EntityID, identity.Field)
	if err != nil {
		return nil, r.handlePostgresError("get relations", err)
	}
	defer rows.Close()

	relations, err := scanRelations(rows)
	if err != nil {
		return nil, r.handlePostgresError("get relations", err)
	}

	result := make(map[uuid.UUID]*mediacontent.Relation, len(relations))
	for _, rel := range relations {
		result[rel.AssetID] = rel
	}
	return result, nil
}

func (r *Repository) Assign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	query := `
		INSERT INTO media_content_asset (asset_id, content_type, entity_id, field, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING`

	_, err := r.db.Exec(ctx, query, assetID, string(identity.Type), identity.EntityID, identity.Field, time.Now().UTC())
	if err != nil {
		return r.writeError("assign", mediacontent.ErrCouldNotSave, err)
	}
	return nil
}

func (r *Repository) Unassign(ctx context.Context, assetID uuid.UUID, identity mediacontent.ContentIdentity) error {
	query := `
		DELETE FROM media_content_asset
		WHERE asset_id = $1 AND content_type = $2 AND entity_id = $3 AND field = $4`

	_, err := r.db.Exec(ctx, query, assetID, string(identity.Type), identity.EntityID, identity.Field)
	if err != nil {
		return r.writeError("unassign", mediacontent.ErrCouldNotDelete, err)
	}
	return nil
}

func (r *Repository) ListRelationsByAsset(ctx context.Context, assetID uuid.UUID) ([]*mediacontent.Relation, error) {
	query := `
		SELECT asset_id, content_type, entity_id, field, created_at
		FROM media_content_asset
		WHERE asset_id = $1`

	rows, err := r.db.Query(ctx, query, assetID)
	if err != nil {
		return nil, r.handlePostgresError("list relations by asset", err)
	}
	defer rows.Close()

	relations, err := scanRelations(rows)
	if err != nil {
		return nil, r.handlePostgresError("list relations by asset", err)
	}
	return relations, nil
}

func scanRelations(rows pgx.Rows) ([]*mediacontent.Relation, error) {
	var relations []*mediacontent.Relation
	for rows.Next() {
		var rel mediacontent.Relation
		var contentType string
		if err := rows.Scan(&rel.AssetID, &contentType, &rel.Content.EntityID, &rel.Content.Field, &rel.CreatedAt); err != nil {
			return nil, err
		}
		rel.Content.Type = mediacontent.ContentType(contentType)
		relations = append(relations, &rel)
	}
	return relations, rows.Err()
}

// Asset operations

const assetColumns = `id, path, title, description, source, hash, content_type, width, height, size, created_at, updated_at`

func scanAsset(row pgx.Row) (*mediacontent.Asset, error) {
	var a mediacontent.Asset
	err := row.Scan(&a.ID, &a.Path, &a.Title, &a.Description, &a.Source, &a.Hash,
		&a.ContentType, &a.Width, &a.Height, &a.Size, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) GetAsset(ctx context.Context, id uuid.UUID) (*mediacontent.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_asset WHERE id = $1`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get asset", err)
	}
	return asset, nil
}

func (r *Repository) GetAssetByPath(ctx context.Context, path string) (*mediacontent.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM media_asset WHERE path = $1`

	asset, err := scanAsset(r.db.QueryRow(ctx, query, path))
	if err != nil {
		return nil, r.handlePostgresError("get asset by path", err)
	}
	return asset, nil
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

	query := `
		INSERT INTO media_asset (` + assetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (path) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description,
			source = EXCLUDED.source, hash = EXCLUDED.hash,
			content_type = EXCLUDED.content_type, width = EXCLUDED.width,
			height = EXCLUDED.height, size = EXCLUDED.size,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		asset.ID, asset.Path, asset.Title, asset.Description, asset.Source, asset.Hash,
		asset.ContentType, asset.Width, asset.Height, asset.Size, asset.CreatedAt, now,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	if err != nil {
		return r.writeError("save asset", mediacontent.ErrCouldNotSave, err)
	}
	return nil
}

// DeleteAssetByPath removes the asset; keywords and relations cascade
func (r *Repository) DeleteAssetByPath(ctx context.Context, path string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media_asset WHERE path = $1`, path)
	if err != nil {
		return r.writeError("delete asset", mediacontent.ErrCouldNotDelete, err)
	}
	if tag.RowsAffected() == 0 {
		return mediacontent.ErrAssetNotFound
	}
	return nil
}

// Keyword operations

func (r *Repository) SetKeywords(ctx context.Context, assetID uuid.UUID, keywords []string) error {
	if _, err := r.GetAsset(ctx, assetID); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM media_asset_keyword WHERE asset_id = $1`, assetID); err != nil {
			return err
		}
		for _, k := range keywords {
			if k == "" {
				continue
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO media_asset_keyword (asset_id, keyword) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				assetID, k)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.writeError("set keywords", mediacontent.ErrCouldNotSave, err)
	}
	return nil
}

func (r *Repository) GetKeywords(ctx context.Context, assetID uuid.UUID) ([]string, error) {
	if _, err := r.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT keyword FROM media_asset_keyword WHERE asset_id = $1 ORDER BY keyword`, assetID)
	if err != nil {
		return nil, r.handlePostgresError("get keywords", err)
	}
	defer rows.Close()

	var keywords []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, r.handlePostgresError("get keywords", err)
		}
		keywords = append(keywords, k)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("get keywords", err)
	}
	return keywords, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchAssets matches titles containing the query (case-insensitive) or
// keywords equal to the query. An empty query matches every asset.
func (r *Repository) SearchAssets(ctx context.Context, search mediacontent.AssetSearch) ([]*mediacontent.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM media_asset
		WHERE $1 = ''
			OR title ILIKE '%' || $2 || '%'
			OR id IN (SELECT asset_id FROM media_asset_keyword WHERE keyword = $1)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	var limit any
	if search.Limit > 0 {
		limit = search.Limit
	}
	offset := max(search.Offset, 0)

	rows, err := r.db.Query(ctx, query, search.Query, likeEscaper.Replace(search.Query), limit, offset)
	if err != nil {
		return nil, r.handlePostgresError("search assets", err)
	}
	defer rows.Close()

	var assets []*mediacontent.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, r.handlePostgresError("search assets", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("search assets", err)
	}
	return assets, nil
}
