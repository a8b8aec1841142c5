// Package embed declares the boundary to an embedding provider. The core
// only ever calls EmbedTexts from the background indexer; the provider's
// own batching, rate limiting, and model choice are none of its concern.
package embed

import (
	"context"
	"fmt"
)

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	// EmbedTexts embeds each text, preserving input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}

type embedderKey struct{}

// WithEmbedderContext attaches an Embedder to ctx.
func WithEmbedderContext(ctx context.Context, e Embedder) context.Context {
	return context.WithValue(ctx, embedderKey{}, e)
}

// EmbedderFromContext retrieves the Embedder attached by WithEmbedderContext,
// or nil if none was attached.
func EmbedderFromContext(ctx context.Context) Embedder {
	e, _ := ctx.Value(embedderKey{}).(Embedder)
	return e
}

// Loader creates an Embedder from config.
type Loader func(ctx context.Context) (Embedder, error)

// Plugin represents an embedder plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds an embedder plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered embedder plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named embedder plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown embedder %q; valid: %v", name, Names())
}
