package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/repo/repotest"
)

func TestHandlePostgresError(t *testing.T) {
	r := &Repository{}

	tests := []struct {
		name   string
		err    error
		target error
		msg    string
	}{
		{"unique path", &pgconn.PgError{Code: "23505", ConstraintName: "media_asset_path_key"}, mediacontent.ErrCouldNotSave, "asset path already exists"},
		{"foreign key", &pgconn.PgError{Code: "23503"}, mediacontent.ErrCouldNotSave, "referenced asset not found"},
		{"not null", &pgconn.PgError{Code: "23502", ColumnName: "path"}, mediacontent.ErrCouldNotSave, "required field path is missing"},
		{"missing table", &pgconn.PgError{Code: "42P01"}, nil, "database migration required"},
		{"no rows", pgx.ErrNoRows, mediacontent.ErrAssetNotFound, ""},
		{"other", errors.New("connection reset"), nil, "database error in op: connection reset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.handlePostgresError("op", tt.err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

// fakeDB fails every statement with err once a configured number of
// statements has succeeded. Rows returned before that scan as zero values.
type fakeDB struct {
	err       error
	okQueries int
	execs     []string
	rolled    bool
	committed bool
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

func (db *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	db.execs = append(db.execs, sql)
	if len(db.execs) > db.okQueries {
		return pgconn.CommandTag{}, db.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (db *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, db.err
}

func (db *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	if db.okQueries > 0 {
		return fakeRow{}
	}
	return fakeRow{err: db.err}
}

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return &fakeTx{db: db}, nil
}

// fakeTx routes statements to its fakeDB. Unused pgx.Tx methods panic.
type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return tx.db.Exec(ctx, sql, args...)
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.db.committed = true
	return nil
}

func (tx *fakeTx) Rollback(ctx context.Context) error {
	if !tx.db.committed {
		tx.db.rolled = true
	}
	return pgx.ErrTxClosed
}

func TestWriteFailuresAreClassified(t *testing.T) {
	ctx := context.Background()
	identity := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCMSBlock, EntityID: "1", Field: "content"}

	causes := map[string]error{
		"connection":    errors.New("connection reset by peer"),
		"serialization": &pgconn.PgError{Code: "40001", Message: "could not serialize access"},
		"unique":        &pgconn.PgError{Code: "23505", ConstraintName: "media_content_asset_pkey"},
	}

	for name, cause := range causes {
		t.Run(name, func(t *testing.T) {
			r := New(&fakeDB{err: cause})

			err := r.Assign(ctx, uuid.New(), identity)
			assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)
			assert.Equal(t, 1, strings.Count(err.Error(), mediacontent.ErrCouldNotSave.Error()))

			err = r.SaveAsset(ctx, &mediacontent.Asset{Path: "a.jpg"})
			assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)

			err = r.Unassign(ctx, uuid.New(), identity)
			assert.ErrorIs(t, err, mediacontent.ErrCouldNotDelete)

			err = r.DeleteAssetByPath(ctx, "a.jpg")
			assert.ErrorIs(t, err, mediacontent.ErrCouldNotDelete)
		})
	}

	t.Run("cause stays inspectable", func(t *testing.T) {
		cause := errors.New("connection reset by peer")
		r := New(&fakeDB{err: cause})
		err := r.Assign(ctx, uuid.New(), identity)
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)
	})
}

func TestSetKeywordsRollsBackOnFailure(t *testing.T) {
	// GetAsset and the DELETE succeed, the second INSERT fails.
	db := &fakeDB{err: errors.New("connection reset by peer"), okQueries: 2}
	r := New(db)

	err := r.SetKeywords(context.Background(), uuid.New(), []string{"a", "b", "c"})
	assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)
	assert.Len(t, db.execs, 3)
	assert.True(t, db.rolled)
	assert.False(t, db.committed)
}

func TestSetKeywordsCommits(t *testing.T) {
	db := &fakeDB{okQueries: 10}
	r := New(db)

	require.NoError(t, r.SetKeywords(context.Background(), uuid.New(), []string{"a", "", "b"}))
	assert.Len(t, db.execs, 3)
	assert.True(t, db.committed)
	assert.False(t, db.rolled)
}

func TestPostgresRepository_Contract(t *testing.T) {
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("Skipping postgres test: TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	repo := NewWithPool(pool)
	require.NoError(t, repo.Migrate(ctx))

	repotest.Run(t, func(t *testing.T) mediacontent.Repository {
		_, err := pool.Exec(ctx, `TRUNCATE media_content_asset, media_asset_keyword, media_asset`)
		require.NoError(t, err)
		return repo
	})
}
