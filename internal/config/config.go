package config

import (
	"context"
	"os"
	"strings"
	"time"
)

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

const (
	ModeProd    = "prod"
	ModeTesting = "testing"
)

// Config holds all configuration for the memory service core. Front-door
// concerns (listeners, OIDC, CORS) live with whatever transport embeds this
// package; they are not part of the engine's own configuration surface.
type Config struct {
	// Mode names the security mode: "prod" (default) or "testing". No code in
	// this module reads it; API-key and client-ID resolution is the same in
	// both modes.
	Mode string

	// Database
	DBURL                   string
	DatastoreMigrateAtStart bool
	DBMaxOpenConns          int
	DBMaxIdleConns          int

	// Cache backend type: "redis", "ristretto", or "none".
	CacheType     string
	RedisURL      string
	CacheEpochTTL time.Duration

	// Vector store type: "pgvector", "qdrant", or "" (disabled).
	VectorType           string
	VectorMigrateAtStart bool
	// Number of entries to embed and index per background indexer tick.
	VectorIndexerBatchSize int

	// Qdrant
	QdrantHost             string
	QdrantPort             int
	QdrantCollectionPrefix string
	QdrantCollectionName   string
	QdrantAPIKey           string
	QdrantUseTLS           bool
	QdrantStartupTimeout   time.Duration

	// Embedding type: "none" or "local".
	EmbedType string

	// Search feature toggles.
	SearchSemanticEnabled bool
	SearchFulltextEnabled bool

	// Security. APIKeys maps an API key value to the client ID it
	// authenticates (Java parity: MEMORY_SERVICE_API_KEYS_<CLIENT_ID>=<key>).
	APIKeys map[string]string

	// Encryption
	EncryptionProviders       string
	EncryptionVaultTransitKey string
	// EncryptionKMSKeyID is the AWS KMS key ID or ARN used by the "kms" provider.
	EncryptionKMSKeyID string
	// EncryptionKMSAccessKeyID/SecretAccessKey pin static credentials for the
	// "kms" provider instead of the default AWS credential chain — used
	// against local KMS-compatible endpoints (e.g. LocalStack) in dev/test.
	EncryptionKMSAccessKeyID     string
	EncryptionKMSSecretAccessKey string
	// EncryptionKey is a comma-separated list of AES keys for the "dek" provider.
	// The first key is primary (used for new encryptions); subsequent keys are
	// legacy (decryption-only, for zero-downtime key rotation).
	EncryptionKey string

	// Temporary file directory for the response resumer. Empty uses the
	// platform default temp directory.
	TempDir string

	// Eviction
	EvictionBatchSize  int
	EvictionBatchDelay int // milliseconds

	// How long to retain response-resumer temp files after the writer closes.
	ResumerTempFileRetention time.Duration
	// ResumerAdvertisedAddress is the host:port other instances use to reach
	// this one when redirecting a replay request via the locator store.
	ResumerAdvertisedAddress string

	// Admin. RequireJustification records whether the admin operations that
	// bypass access checks need an operator-supplied reason. It is set from
	// the require-justification flag; no code in this module checks it.
	RequireJustification bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:                     ModeProd,
		DatastoreMigrateAtStart:  true,
		DBMaxOpenConns:           25,
		DBMaxIdleConns:           5,
		CacheType:                "none",
		CacheEpochTTL:            10 * time.Minute,
		VectorType:               "",
		VectorMigrateAtStart:     true,
		VectorIndexerBatchSize:   500,
		EmbedType:                "local",
		SearchSemanticEnabled:    true,
		SearchFulltextEnabled:    true,
		EvictionBatchSize:        1000,
		EvictionBatchDelay:       100,
		ResumerTempFileRetention: 30 * time.Minute,
		QdrantHost:               "localhost",
		QdrantPort:               6334,
		QdrantCollectionPrefix:   "memory-service",
		QdrantStartupTimeout:     30 * time.Second,
		EncryptionProviders:      "plain",
	}
}

// ResolvedTempDir returns the configured temp directory or the platform default.
func (c *Config) ResolvedTempDir() string {
	if c == nil {
		return os.TempDir()
	}
	if dir := strings.TrimSpace(c.TempDir); dir != "" {
		return dir
	}
	return os.TempDir()
}
