package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/repo/repotest"
)

func TestSQLiteRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) mediacontent.Repository {
		repo, err := Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestOpen_ReappliesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "media.db")
	ctx := context.Background()

	repo, err := Open(path)
	require.NoError(t, err)
	asset := &mediacontent.Asset{Path: "a.png", Title: "a"}
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()

	var versions int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&versions))
	assert.Equal(t, 1, versions)

	got, err := repo.GetAssetByPath(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("001_media.sql")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = parseMigrationVersion("media.sql")
	assert.Error(t, err)
	_, err = parseMigrationVersion("abc_media.sql")
	assert.Error(t, err)
}
