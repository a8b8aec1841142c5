package security_test

import (
	"testing"

	"github.com/chirino/memory-service-sub009/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver_ResolvesKnownAPIKey(t *testing.T) {
	resolver := security.NewStaticResolver(map[string]string{
		"secret-key-1": "agent_one",
	})

	id, err := resolver.Resolve("secret-key-1")
	require.NoError(t, err)
	assert.Equal(t, "agent_one", id.ClientID)
	assert.Equal(t, "agent_one", id.UserID)
}

func TestStaticResolver_RejectsUnknownAPIKey(t *testing.T) {
	resolver := security.NewStaticResolver(map[string]string{
		"secret-key-1": "agent_one",
	})

	_, err := resolver.Resolve("not-a-real-key")
	assert.ErrorIs(t, err, security.ErrUnknownCredential)
}

func TestIdentity_HasRole(t *testing.T) {
	id := security.Identity{Roles: map[string]bool{security.RoleAdmin: true}}
	assert.True(t, id.HasRole(security.RoleAdmin))
	assert.False(t, id.HasRole(security.RoleAuditor))

	var zero security.Identity
	assert.False(t, zero.HasRole(security.RoleAdmin))
}
