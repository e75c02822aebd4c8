package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/media-content/pkg/mediacontent"
	"github.com/tendant/media-content/pkg/mediacontent/repo/memory"
	"github.com/tendant/media-content/pkg/mediacontent/repo/repotest"
)

func TestMemoryRepository_AssetOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("SaveAsset assigns ID and timestamps", func(t *testing.T) {
		asset := &mediacontent.Asset{Path: "catalog/a.jpg", Title: "a"}
		require.NoError(t, repo.SaveAsset(ctx, asset))
		assert.NotEqual(t, uuid.Nil, asset.ID)
		assert.False(t, asset.CreatedAt.IsZero())

		retrieved, err := repo.GetAssetByPath(ctx, "catalog/a.jpg")
		require.NoError(t, err)
		assert.Equal(t, asset.ID, retrieved.ID)
	})

	t.Run("SaveAsset keeps ID for existing path", func(t *testing.T) {
		first := &mediacontent.Asset{ID: uuid.New(), Path: "catalog/b.jpg", Title: "b"}
		require.NoError(t, repo.SaveAsset(ctx, first))

		second := &mediacontent.Asset{ID: uuid.New(), Path: "catalog/b.jpg", Title: "b2"}
		require.NoError(t, repo.SaveAsset(ctx, second))
		assert.Equal(t, first.ID, second.ID)

		retrieved, err := repo.GetAsset(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "b2", retrieved.Title)
	})

	t.Run("GetAsset_NotFound", func(t *testing.T) {
		asset, err := repo.GetAsset(ctx, uuid.New())
		assert.Nil(t, asset)
		assert.Equal(t, mediacontent.ErrAssetNotFound, err)
	})

	t.Run("DeleteAssetByPath removes relations", func(t *testing.T) {
		asset := &mediacontent.Asset{ID: uuid.New(), Path: "catalog/c.jpg"}
		require.NoError(t, repo.SaveAsset(ctx, asset))
		identity := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCMSBlock, EntityID: "1", Field: "content"}
		require.NoError(t, repo.Assign(ctx, asset.ID, identity))

		require.NoError(t, repo.DeleteAssetByPath(ctx, "catalog/c.jpg"))
		_, err := repo.GetAssetByPath(ctx, "catalog/c.jpg")
		assert.ErrorIs(t, err, mediacontent.ErrAssetNotFound)

		relations, err := repo.GetRelations(ctx, identity)
		require.NoError(t, err)
		assert.Empty(t, relations)

		assert.ErrorIs(t, repo.DeleteAssetByPath(ctx, "catalog/c.jpg"), mediacontent.ErrAssetNotFound)
	})
}

func TestMemoryRepository_RelationOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	asset := &mediacontent.Asset{ID: uuid.New(), Path: "wysiwyg/a.png"}
	require.NoError(t, repo.SaveAsset(ctx, asset))
	identity := mediacontent.ContentIdentity{Type: mediacontent.ContentTypeCatalogProduct, EntityID: "5", Field: "description"}

	t.Run("Assign is unique per tuple", func(t *testing.T) {
		require.NoError(t, repo.Assign(ctx, asset.ID, identity))
		require.NoError(t, repo.Assign(ctx, asset.ID, identity))

		relations, err := repo.GetRelations(ctx, identity)
		require.NoError(t, err)
		require.Len(t, relations, 1)
		assert.Equal(t, identity, relations[asset.ID].Content)
	})

	t.Run("Assign unknown asset fails with ErrCouldNotSave", func(t *testing.T) {
		err := repo.Assign(ctx, uuid.New(), identity)
		assert.ErrorIs(t, err, mediacontent.ErrCouldNotSave)
	})

	t.Run("ListRelationsByAsset", func(t *testing.T) {
		other := identity
		other.Field = "short_description"
		require.NoError(t, repo.Assign(ctx, asset.ID, other))

		relations, err := repo.ListRelationsByAsset(ctx, asset.ID)
		require.NoError(t, err)
		assert.Len(t, relations, 2)
	})

	t.Run("Unassign", func(t *testing.T) {
		require.NoError(t, repo.Unassign(ctx, asset.ID, identity))
		relations, err := repo.GetRelations(ctx, identity)
		require.NoError(t, err)
		assert.Empty(t, relations)

		// unassigning a missing relation is not an error
		assert.NoError(t, repo.Unassign(ctx, asset.ID, identity))
	})
}

func TestMemoryRepository_Search(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	for i, title := range []string{"Red car", "Blue car", "Green tree"} {
		asset := &mediacontent.Asset{ID: uuid.New(), Path: string(rune('a'+i)) + ".jpg", Title: title}
		require.NoError(t, repo.SaveAsset(ctx, asset))
		if title == "Green tree" {
			require.NoError(t, repo.SetKeywords(ctx, asset.ID, []string{"car", "car", ""}))
		}
	}

	t.Run("title or exact keyword", func(t *testing.T) {
		assets, err := repo.SearchAssets(ctx, mediacontent.AssetSearch{Query: "car"})
		require.NoError(t, err)
		assert.Len(t, assets, 3)
	})

	t.Run("pagination", func(t *testing.T) {
		assets, err := repo.SearchAssets(ctx, mediacontent.AssetSearch{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, assets, 2)

		assets, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, assets, 1)

		assets, err = repo.SearchAssets(ctx, mediacontent.AssetSearch{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, assets)
	})

	t.Run("SetKeywords unknown asset", func(t *testing.T) {
		assert.ErrorIs(t, repo.SetKeywords(ctx, uuid.New(), []string{"x"}), mediacontent.ErrAssetNotFound)
	})
}

func TestMemoryRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) mediacontent.Repository {
		return memory.New()
	})
}
