package kms_test

import (
	"context"
	"testing"

	"github.com/chirino/memory-service-sub009/internal/config"
	registryencrypt "github.com/chirino/memory-service-sub009/internal/registry/encrypt"
	registrymigrate "github.com/chirino/memory-service-sub009/internal/registry/migrate"
	"github.com/chirino/memory-service-sub009/internal/testutil/testkms"
	"github.com/chirino/memory-service-sub009/internal/testutil/testpg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/chirino/memory-service-sub009/internal/plugin/encrypt/kms"
	_ "github.com/chirino/memory-service-sub009/internal/plugin/store/postgres"
)

func setupProvider(t *testing.T) registryencrypt.Provider {
	t.Helper()
	dbURL := testpg.StartPostgres(t)
	keyID := testkms.StartKMS(t)

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.EncryptionKMSKeyID = keyID
	ctx := config.WithContext(context.Background(), &cfg)

	require.NoError(t, registrymigrate.RunAll(ctx))

	plugin, err := registryencrypt.Select("kms")
	require.NoError(t, err)
	provider, err := plugin.Loader(ctx, &cfg)
	require.NoError(t, err)
	return provider
}

func TestKMSProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider := setupProvider(t)

	plaintext := []byte("a secret memory entry")
	ciphertext, err := provider.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := provider.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestKMSProvider_BootstrapIsIdempotentAcrossInstances(t *testing.T) {
	dbURL := testpg.StartPostgres(t)
	keyID := testkms.StartKMS(t)

	cfg := config.DefaultConfig()
	cfg.DBURL = dbURL
	cfg.EncryptionKMSKeyID = keyID
	ctx := config.WithContext(context.Background(), &cfg)
	require.NoError(t, registrymigrate.RunAll(ctx))

	plugin, err := registryencrypt.Select("kms")
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
