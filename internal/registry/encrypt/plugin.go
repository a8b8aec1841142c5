// Package encrypt declares the SPI for at-rest encryption providers. Entry
// content and conversation titles pass through whichever provider is primary
// on the way in; on the way out, the MSEH envelope's provider id routes each
// ciphertext back to the provider that produced it, so providers may be
// swapped or added without invalidating rows written under an older one.
package encrypt

import (
	"context"
	"fmt"
	"io"

	"github.com/chirino/memory-service-sub009/internal/config"
)

// Provider implements one encryption-at-rest backend. Encrypt always
// produces an MSEH-wrapped ciphertext; Decrypt must be able to open whatever
// Encrypt produces for the provider's own ID.
type Provider interface {
	// ID is the identifier this provider writes into the MSEH header and
	// registers itself under (e.g. "plain", "dek", "vault").
	ID() string

	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)

	// EncryptStream writes the MSEH header to dst, then returns a
	// WriteCloser that encrypts bytes written to it and flushes the
	// authentication tag on Close.
	EncryptStream(dst io.Writer) (io.WriteCloser, error)

	// DecryptStream decrypts src given the header dataencryption.Service
	// already parsed from the envelope.
	DecryptStream(src io.Reader, header *Header) (io.Reader, error)
}

// Header is passed to DecryptStream after DataEncryptionService has parsed the
// MSEH envelope. Keeping it here avoids an import cycle with dataencryption.
type Header struct {
	Version    uint32
	ProviderID string
	Nonce      []byte
}

// Plugin bundles a provider name with its loader function.
type Plugin struct {
	Name   string
	Loader func(ctx context.Context, cfg *config.Config) (Provider, error)
}

var plugins []Plugin

// Register adds an encryption provider plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered provider names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the Plugin for the given name.
func Select(name string) (Plugin, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p, nil
		}
	}
	return Plugin{}, fmt.Errorf("unknown encryption provider %q; registered: %v", name, Names())
}
