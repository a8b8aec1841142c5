package vault_test

import (
	"context"
	"testing"

	"github.com/chirino/memory-service-sub009/internal/config"
	registryencrypt "github.com/chirino/memory-service-sub009/internal/registry/encrypt"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	"github.com/chirino/memory-service-sub009/internal/testutil/testpg"
	"github.com/chirino/memory-service-sub009/internal/testutil/testvault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/vault"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/store/postgres"
)

func setupProvider(t *testing.T) registryencrypt.Provider {
	t.Helper()
	dbURL := testpg.StartPostgres(t)
	testvault.StartVault(t, "memory-service-entries")

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.EncryptionVaultTransitKey = "memory-service-entries"
	ctx := config.WithContext(context.Background(), &cfg)

	require.NoError(t, registrymigrate.RunAll(ctx))

	plugin, err := registryencrypt.Select("vault")
	require.NoError(t, err)
	provider, err := plugin.Loader(ctx, &cfg)
	require.NoError(t, err)
	return provider
}

func TestVaultProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider := setupProvider(t)

	plaintext := []byte("a secret memory entry")
	ciphertext, err := provider.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := provider.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestVaultProvider_BootstrapIsIdempotentAcrossInstances(t *testing.T) {
	dbURL := testpg.StartPostgres(t)
	testvault.StartVault(t, "memory-service-entries-2")

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.EncryptionVaultTransitKey = "memory-service-entries-2"
	ctx := config.WithContext(context.Background(), &cfg)
	require.NoError(t, registrymigrate.RunAll(ctx))

	plugin, err := registryencrypt.Select("vault")
	require.NoError(t, err)

	providerA, err := plugin.Loader(ctx, &cfg)
	require.NoError(t, err)
	providerB, err := plugin.Loader(ctx, &cfg)
	require.NoError(t, err)

	ciphertext, err := providerA.Encrypt([]byte("from A"))
	require.NoError(t, err)

	plaintext, err := providerB.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("from A"), plaintext)
}
