package pgvector_test

import (
	"context"
	"testing"

	"github.com/chirino/memory-service-sub009/internal/config"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	registryvector "github.com/chirino/memory-service-sub009/internal/registry/vector"
	"github.com/chirino/memory-service-sub009/internal/testutil/testpg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupVectorStore(t *testing.T) (registryvector.VectorStore, context.Context) {
	t.Helper()
	dbURL := testpg.StartPostgres(t)

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.VectorType = "pgvector"
	cfg.VectorMigrateAtStart = true
	ctx := config.WithContext(context.Background(), &cfg)

	require.NoError(t, registrymigrate.RunAll(ctx))

	loader, err := registryvector.Select("pgvector")
	require.NoError(t, err)
	store, err := loader(ctx)
	require.NoError(t, err)
	return store, ctx
}

func TestPgvectorStore_UpsertAndSearch(t *testing.T) {
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
			Embedding:           []float32{1, 0, 0},
		},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0}, []uuid.UUID{groupID}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, entryID, results[0].EntryID)
	assert.Equal(t, convID, results[0].ConversationID)
}

func TestPgvectorStore_UpsertConflictUpdatesEmbedding(t *testing.T) {
	store, ctx := setupVectorStore(t)

	groupID := uuid.New()
	convID := uuid.New()
	entryID := uuid.New()

	err := store.Upsert(ctx, []registryvector.UpsertRequest{
		{EntryID: entryID, ConversationID: convID, ConversationGroupID: groupID, ModelName: "v1", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	err = store.Upsert(ctx, []registryvector.UpsertRequest{
		{EntryID: entryID, ConversationID: convID, ConversationGroupID: groupID, ModelName: "v2", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{0, 1, 0}, []uuid.UUID{groupID}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 0.001)
}

func TestPgvectorStore_DeleteByConversationGroupID(t *testing.T) {
	store, ctx := setupVectorStore(t)

	groupID := uuid.New()

	err := store.Upsert(ctx, []registryvector.UpsertRequest{
		{EntryID: uuid.New(), ConversationID: uuid.New(), ConversationGroupID: groupID, ModelName: "v1", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	err = store.DeleteByConversationGroupID(ctx, groupID)
	require.NoError(t, err)

	results, err := store.Search(ctx, []float32{1, 0, 0}, []uuid.UUID{groupID}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPgvectorStore_SearchWithNoGroupsReturnsNil(t *testing.T) {
	store, ctx := setupVectorStore(t)

	results, err := store.Search(ctx, []float32{1, 0, 0}, nil, 5)
	require.NoError(t, err)
	assert.Nil(t, results)
}
