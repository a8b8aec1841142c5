package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyJavaCompatFromEnv(t *testing.T) {
	t.Setenv("MEMORY_SERVICE_CACHE_EPOCH_TTL", "PT2H")
	t.Setenv("MEMORY_SERVICE_SEARCH_SEMANTIC_ENABLED", "false")
	t.Setenv("MEMORY_SERVICE_VECTOR_QDRANT_PORT", "7443")
	t.Setenv("MEMORY_SERVICE_VECTOR_QDRANT_HOST", "qdrant.example")
	t.Setenv("MEMORY_SERVICE_API_KEYS_AGENT_ONE", "secret-key-1,secret-key-2")

	cfg := DefaultConfig()
	err := cfg.ApplyJavaCompatFromEnv()
	require.NoError(t, err)

	require.Equal(t, 2*time.Hour, cfg.CacheEpochTTL)
	require.False(t, cfg.SearchSemanticEnabled)
	require.Equal(t, "qdrant.example", cfg.QdrantHost)
	require.Equal(t, 7443, cfg.QdrantPort)
	require.Equal(t, "agent_one", cfg.APIKeys["secret-key-1"])
	require.Equal(t, "agent_one", cfg.APIKeys["secret-key-2"])
}

func TestQdrantAddress_Defaults(t *testing.T) {
	var cfg Config
	require.Equal(t, "localhost:6334", cfg.QdrantAddress())
}

func TestQdrantAddress_UsesPortFromHostWhenProvided(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QdrantHost = "localhost:7443"
	cfg.QdrantPort = 6334

	require.Equal(t, "localhost:7443", cfg.QdrantAddress())
}

func TestQdrantAddress_UsesHostPortFromURLWhenProvided(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QdrantHost = "http://localhost:9443"
	cfg.QdrantPort = 6334

	require.Equal(t, "localhost:9443", cfg.QdrantAddress())
}

func TestParseDuration_GoAndISO8601(t *testing.T) {
	d, err := parseDuration("30s")
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, d)

	d, err = parseDuration("PT1H30M")
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, d)

	_, err = parseDuration("not-a-duration")
	require.Error(t, err)
}
