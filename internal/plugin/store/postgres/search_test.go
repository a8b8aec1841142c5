package postgres_test

import (
	"encoding/json"
	"testing"

	registrystore "github.com/chirino/memory-service-sub009/internal/registry/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEntries_FulltextFindsIndexedContent(t *testing.T) {
	store, ctx := setupTestStore(t)

	conv, err := store.CreateConversation(ctx, "searcher", "Search Conv", nil, nil, nil)
	require.NoError(t, err)

	indexed := "the quick brown fox jumps over the lazy dog"
	_, err = store.AppendEntries(ctx, "searcher", conv.ID, []registrystore.CreateEntryRequest{
		{
			Content:        json.RawMessage(`[{"type":"text","text":"hello"}]`),
			ContentType:    "application/json",
			Channel:        "history",
			IndexedContent: &indexed,
		},
	}, nil, nil)
	require.NoError(t, err)

	results, err := store.SearchEntries(ctx, "searcher", registrystore.SearchQuery{
		Query: "fox",
		Type:  registrystore.SearchTypeFulltext,
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Len(t, results.Data, 1)
	assert.Equal(t, "fulltext", results.Data[0].Kind)
}

func TestSearchEntries_AutoFallsBackToFulltextWithoutVectorStore(t *testing.T) {
	store, ctx := setupTestStore(t)

	conv, err := store.CreateConversation(ctx, "searcher2", "Search Conv 2", nil, nil, nil)
	require.NoError(t, err)

	indexed := "a memorable afternoon at the aquarium"
	_, err = store.AppendEntries(ctx, "searcher2", conv.ID, []registrystore.CreateEntryRequest{
		{
			Content:        json.RawMessage(`[{"type":"text","text":"hi"}]`),
			ContentType:    "application/json",
			Channel:        "history",
			IndexedContent: &indexed,
		},
	}, nil, nil)
	require.NoError(t, err)

	// No vector store/embedder was attached to ctx by setupTestStore, so auto
	// mode must fall back to fulltext instead of erroring.
	results, err := store.SearchEntries(ctx, "searcher2", registrystore.SearchQuery{
		Query: "aquarium",
		Type:  registrystore.SearchTypeAuto,
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, results)
	require.Len(t, results.Data, 1)
	assert.Equal(t, "fulltext", results.Data[0].Kind)
}

func TestSearchEntries_NoMatchesReturnsEmptyResults(t *testing.T) {
	store, ctx := setupTestStore(t)

	_, err := store.CreateConversation(ctx, "searcher3", "Search Conv 3", nil, nil, nil)
	require.NoError(t, err)

	results, err := store.SearchEntries(ctx, "searcher3", registrystore.SearchQuery{
		Query: "nonexistentwordzzz",
		Type:  registrystore.SearchTypeFulltext,
		Limit: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, results)
	assert.Empty(t, results.Data)
}
