package security

import (
	"errors"
	"strings"
)

// Role names used by the access lattice's admin-bypass checks. Resolving
// these from a bearer token's claims is the front door's job; this package
// only defines the names roles are compared against.
const (
	RoleAdmin   = "admin"
	RoleAuditor = "auditor"
	RoleIndexer = "indexer"
)

// Identity holds the resolved caller identity for a single request: the
// shape a front door (OIDC/JWT verification, gRPC metadata, gin middleware)
// would hand to the store layer after authenticating a credential. This
// package does not verify tokens itself — only API-key resolution, the one
// credential scheme fully owned end to end here, is implemented below.
type Identity struct {
	UserID   string
	ClientID string
	Roles    map[string]bool
}

// HasRole reports whether the identity carries the named role.
func (id Identity) HasRole(role string) bool {
	return id.Roles != nil && id.Roles[role]
}

// IdentityResolver resolves a caller credential into an Identity. A front
// door that verifies OIDC bearer tokens would implement this the same way
// StaticResolver does for API keys.
type IdentityResolver interface {
	Resolve(credential string) (*Identity, error)
}

// ErrUnknownCredential is returned by StaticResolver.Resolve when the
// credential isn't in the configured table.
var ErrUnknownCredential = errors.New("security: unknown credential")

// StaticResolver resolves API keys via a fixed key->clientID table
// (Config.APIKeys). It assigns no roles beyond the empty set: role
// assignment in the teacher comes from OIDC claims or user/client allow
// lists, both front-door concerns this repo doesn't own.
type StaticResolver struct {
	apiKeys map[string]string
}

// NewStaticResolver builds a StaticResolver from an API-key->clientID table,
// as loaded by config.Config.APIKeys.
func NewStaticResolver(apiKeys map[string]string) *StaticResolver {
	return &StaticResolver{apiKeys: apiKeys}
}

func (r *StaticResolver) Resolve(credential string) (*Identity, error) {
	key := strings.TrimSpace(credential)
	clientID, ok := r.apiKeys[key]
	if !ok {
		return nil, ErrUnknownCredential
	}
	return &Identity{UserID: clientID, ClientID: clientID, Roles: map[string]bool{}}, nil
}
