// Package vector declares the narrow boundary the core consumes for
// semantic search: upsert an embedding, delete a conversation group's
// embeddings, search by vector. Everything about how a given backend
// actually indexes and queries vectors is internal to its plugin.
package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// VectorSearchResult is one hit from a semantic Search call.
type VectorSearchResult struct {
	EntryID        uuid.UUID `json:"entryId"`
	ConversationID uuid.UUID `json:"conversationId"`
	Score          float64   `json:"score"`
}

// UpsertRequest is one entry's embedding, ready to be stored or replaced.
type UpsertRequest struct {
	ConversationGroupID uuid.UUID
	ConversationID      uuid.UUID
	EntryID             uuid.UUID
	Embedding           []float32
	ModelName           string
}

// VectorStore is the capability interface a semantic search backend
// implements. conversationGroupIDs scope every Search call to groups the
// caller is already known to have membership in — the boundary never makes
// its own access decisions.
type VectorStore interface {
	Search(ctx context.Context, embedding []float32, conversationGroupIDs []uuid.UUID, limit int) ([]VectorSearchResult, error)
	Upsert(ctx context.Context, entries []UpsertRequest) error
	DeleteByConversationGroupID(ctx context.Context, conversationGroupID uuid.UUID) error
	// IsEnabled reports whether this backend is configured and reachable.
	// The search orchestration in the store falls through to fulltext
	// whenever this is false.
	IsEnabled() bool
	Name() string
}

type vectorStoreKey struct{}

// WithVectorStoreContext attaches a VectorStore to ctx.
func WithVectorStoreContext(ctx context.Context, v VectorStore) context.Context {
	return context.WithValue(ctx, vectorStoreKey{}, v)
}

// VectorStoreFromContext retrieves the VectorStore attached by
// WithVectorStoreContext, or nil if none was attached.
func VectorStoreFromContext(ctx context.Context) VectorStore {
	v, _ := ctx.Value(vectorStoreKey{}).(VectorStore)
	return v
}

// Loader creates a VectorStore from config.
type Loader func(ctx context.Context) (VectorStore, error)

// Plugin represents a vector store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a vector store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered vector store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named vector store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown vector store %q; valid: %v", name, Names())
}
