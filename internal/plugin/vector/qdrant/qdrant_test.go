package qdrant_test

import (
	"context"
	"testing"

	"github.com/chirino/memory-service-sub009/internal/config"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	registryvector "github.com/chirino/memory-service-sub009/internal/registry/vector"
	"github.com/chirino/memory-service-sub009/internal/testutil/testqdrant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVectorStore(t *testing.T) (registryvector.VectorStore, context.Context) {
	t.Helper()
	addr := testqdrant.StartQdrant(t)

	cfg := config.DefaultConfig()
	cfg.VectorType = "qdrant"
	cfg.QdrantHost = addr
	cfg.VectorMigrateAtStart = true
	ctx := config.WithContext(context.Background(), &cfg)

	require.NoError(t, registrymigrate.RunAll(ctx))

	loader, err := registryvector.Select("qdrant")
	require.NoError(t, err)
	store, err := loader(ctx)
	require.NoError(t, err)
	return store, ctx
}

func randomEmbedding() []float32 {
	v := make([]float32, 384)
	for i := range v {
		v[i] = float32(i%7) / 7
	}
	return v
}

func TestQdrantStore_UpsertAndSearch(t *testing.T) {
	store, ctx := setupVectorStore(t)

	groupID := uuid.New()
	convID := uuid.New()
	entryID := uuid.New()

	err := store.Upsert(ctx, []registryvector.UpsertRequest{
		{
			EntryID:             entryID,
			ConversationID:      convID,
			ConversationGroupID: groupID,
			ModelName:           "test-model",
			Embedding:           randomEmbedding(),
		},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, randomEmbedding(), []uuid.UUID{groupID}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entryID, results[0].EntryID)
	assert.Equal(t, convID, results[0].ConversationID)
}

func TestQdrantStore_SearchWithUnknownGroupReturnsEmpty(t *testing.T) {
	store, ctx := setupVectorStore(t)

	results, err := store.Search(ctx, randomEmbedding(), []uuid.UUID{uuid.New()}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQdrantStore_DeleteByConversationGroupID(t *testing.T) {
	store, ctx := setupVectorStore(t)

	groupID := uuid.New()
	entryID := uuid.New()

	err := store.Upsert(ctx, []registryvector.UpsertRequest{
		{
			EntryID:             entryID,
			ConversationID:      uuid.New(),
			ConversationGroupID: groupID,
			ModelName:           "test-model",
			Embedding:           randomEmbedding(),
		},
	})
	require.NoError(t, err)

	err = store.DeleteByConversationGroupID(ctx, groupID)
	require.NoError(t, err)

	results, err := store.Search(ctx, randomEmbedding(), []uuid.UUID{groupID}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQdrantStore_SearchWithNoGroupsReturnsNil(t *testing.T) {
	store, ctx := setupVectorStore(t)

	results, err := store.Search(ctx, randomEmbedding(), nil, 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}
