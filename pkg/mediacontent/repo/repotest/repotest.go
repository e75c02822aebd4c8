// Package repotest holds behavior tests shared by every mediacontent.Repository
// implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
)

// Factory returns an empty repository
type Factory func(t *testing.T) mediacontent.Repository

// Run exercises a repository implementation against the common contract
func Run(t *testing.T, newRepo Factory) {
	t.Run("Assets", func(t *testing.T) { testAssets(t, newRepo(t)) })
	t.Run("Relations", func(t *testing.T) { testRelations(t, newRepo(t)) })
	t.Run("Keywords", func(t *testing.T) { testKeywords(t, newRepo(t)) })
	t.Run("Search", func(t *testing.T) { testSearch(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
}

func newAsset(path, title string, created time.Time) *mediacontent.Asset {
	return &mediacontent.Asset{
		Path:        path,
		Title:       title,
		Source:      mediacontent.AssetSourceLocal,
		Hash:        "hash-" + path,
		ContentType: "image/png",
		Width:       10,
		Height:      20,
		Size:        100,
		CreatedAt:   created,
	}
}

func testAssets(t *testing.T, repo mediacontent.Repository) {
	ctx := context.Background()

	_, err := repo.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)
	_, err = repo.GetAssetByPath(ctx, "missing.png")
	assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)

	asset := newAsset("wysiwyg/a.png", "a", time.Time{})
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NotEqual(t, uuid.Nil, asset.ID)

	got, err := repo.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "wysiwyg/a.png", got.Path)
	assert.Equal(t, "a", got.Title)
	assert.Equal(t, 10, got.Width)
	assert.Equal(t, 20, got.Height)
	assert.Equal(t, int64(100), got.Size)
	assert.False(t, got.CreatedAt.IsZero())

	byPath, err := repo.GetAssetByPath(ctx, "wysiwyg/a.png")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, byPath.ID)

	// saving the same path again updates the existing record
	update := newAsset("wysiwyg/a.png", "renamed", time.Time{})
	update.ID = uuid.New()
	update.Width = 30
	require.NoError(t, repo.SaveAsset(ctx, update))
	assert.Equal(t, asset.ID, update.ID)

	got, err = repo.GetAssetByPath(ctx, "wysiwyg/a.png")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, 30, got.Width)
}

func testRelations(t *testing.T, repo mediacontent.Repository) {
	ctx := context.Background()
	a := newAsset("a.png", "a", time.Time{})
	b := newAsset("b.png", "b", time.Time{})
	require.NoError(t, repo.SaveAsset(ctx, a))
	require.NoError(t, repo.SaveAsset(ctx, b))

	description := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCatalogProduct, EntityID: "42", Field: "description"}
	short := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCatalogProduct, EntityID: "42", Field: "short_description"}

	relations, err := repo.GetRelations(ctx, description)
	require.NoError(t, err)
	assert.Empty(t, relations)

	require.NoError(t, repo.Assign(ctx, a.ID, description))
	require.NoError(t, repo.Assign(ctx, a.ID, description))
	require.NoError(t, repo.Assign(ctx, b.ID, description))
	require.NoError(t, repo.Assign(ctx, a.ID, short))

	relations, err = repo.GetRelations(ctx, description)
	require.NoError(t, err)
	require.Len(t, relations, 2)
	assert.Equal(t, description, relations[a.ID].Content)
	assert.Equal(t, a.ID, relations[a.ID].AssetID)
	assert.Contains(t, relations, b.ID)

	usage, err := repo.ListRelationsByAsset(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, usage, 2)

	err = repo.Assign(ctx, uuid.New(), description)
	assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)

	require.NoError(t, repo.Unassign(ctx, a.ID, description))
	require.NoError(t, repo.Unassign(ctx, a.ID, description))

	relations, err = repo.GetRelations(ctx, description)
	require.NoError(t, err)
	assert.Len(t, relations, 1)
	assert.Contains(t, relations, b.ID)

	relations, err = repo.GetRelations(ctx, short)
	require.NoError(t, err)
	assert.Len(t, relations, 1)
}

func testKeywords(t *testing.T, repo mediacontent.Repository) {
	ctx := context.Background()

	err := repo.SetKeywords(ctx, uuid.New(), []string{"x"})
	assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)
	_, err = repo.GetKeywords(ctx, uuid.New())
	assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)

	asset := newAsset("a.png", "a", time.Time{})
	require.NoError(t, repo.SaveAsset(ctx, asset))

	keywords, err := repo.GetKeywords(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, keywords)

	require.NoError(t, repo.SetKeywords(ctx, asset.ID, []string{"sea", "beach", "sea", ""}))
	keywords, err = repo.GetKeywords(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"beach", "sea"}, keywords)

	require.NoError(t, repo.SetKeywords(ctx, asset.ID, []string{"mountain"}))
	keywords, err = repo.GetKeywords(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"mountain"}, keywords)
}

func testSearch(t *testing.T, repo mediacontent.Repository) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	nature := newAsset("nature.png", "Nature walk", base)
	city := newAsset("city.png", "City lights", base.Add(time.Hour))
	forest := newAsset("forest.png", "Forest", base.Add(2*time.Hour))
	percent := newAsset("sale.png", "100% off", base.Add(3*time.Hour))
	for _, a := range []*mediacontent.Asset{nature, city, forest, percent} {
		require.NoError(t, repo.SaveAsset(ctx, a))
	}
	require.NoError(t, repo.SetKeywords(ctx, forest.ID, []string{"nature"}))

	ids := func(assets []*mediacontent.Asset) []uuid.UUID {
		var out []uuid.UUID
		for _, a := range assets {
			out = append(out, a.ID)
		}
		return out
	}

	all, err := repo.SearchAssets(ctx, mediacontent.AssetSearch{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{percent.ID, forest.ID, city.ID, nature.ID}, ids(all))

	found, err := repo.SearchAssets(ctx, mediacontent.AssetSearch{Query: "nature"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{forest.ID, nature.ID}, ids(found))

	// keywords match exactly, titles by substring
	found, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Query: "natur"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{nature.ID}, ids(found))

	found, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Query: "LIGHTS"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{city.ID}, ids(found))

	found, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Query: "%"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{percent.ID}, ids(found))

	page, err := repo.SearchAssets(ctx, mediacontent.AssetSearch{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{forest.ID, city.ID}, ids(page))

	page, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testDelete(t *testing.T, repo mediacontent.Repository) {
	ctx := context.Background()
	asset := newAsset("gone.png", "gone", time.Time{})
	require.NoError(t, repo.SaveAsset(ctx, asset))
	require.NoError(t, repo.SetKeywords(ctx, asset.ID, []string{"x"}))

	identity := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCMSBlock, EntityID: "7", Field: "content"}
	require.NoError(t, repo.Assign(ctx, asset.ID, identity))

	require.NoError(t, repo.DeleteAssetByPath(ctx, "gone.png"))
	assert.ErrorIs(t, repo.DeleteAssetByPath(ctx, "gone.png"), mediacontent.ErrAssetNotFound)

	_, err := repo.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)

	relations, err := repo.GetRelations(ctx, identity)
	require.NoError(t, err)
	assert.Empty(t, relations)
}
