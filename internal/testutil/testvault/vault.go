// Package testvault starts a disposable HashiCorp Vault dev-mode container
// with the Transit secrets engine enabled, for exercising the vault
// encryption provider's wrap/unwrap calls against a real server.
package testvault

import (
	"context"
	"fmt"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const rootToken = "test-root-token"

// StartVault starts a disposable Vault dev-mode container, enables the
// Transit secrets engine, and creates transitKeyName as a Transit key. It
// sets VAULT_ADDR/VAULT_TOKEN so vaultapi.NewClient(vaultapi.DefaultConfig())
// resolves against it.
func StartVault(tb testing.TB, transitKeyName string) {
	tb.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "hashicorp/vault:1.17",
			ExposedPorts: []string{"8200/tcp"},
			Env: map[string]string{
				"VAULT_DEV_ROOT_TOKEN_ID": rootToken,
				"VAULT_DEV_LISTEN_ADDRESS": "0.0.0.0:8200",
			},
			WaitingFor: wait.ForListeningPort("8200/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		tb.Fatalf("start vault container: %v", err)
	}

	tb.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			tb.Errorf("terminate vault container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		tb.Fatalf("get vault host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "8200")
	if err != nil {
		tb.Fatalf("get vault mapped port: %v", err)
	}
	addr := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	tb.Setenv("VAULT_ADDR", addr)
	tb.Setenv("VAULT_TOKEN", rootToken)

	clientCfg := vaultapi.DefaultConfig()
	clientCfg.Address = addr
	client, err := vaultapi.NewClient(clientCfg)
	if err != nil {
		tb.Fatalf("create vault client: %v", err)
	}
	client.SetToken(rootToken)

	if err := client.Sys().MountWithContext(ctx, "transit", &vaultapi.MountInput{Type: "transit"}); err != nil {
		tb.Fatalf("enable transit secrets engine: %v", err)
	}

	path := fmt.Sprintf("transit/keys/%s", transitKeyName)
	if _, err := client.Logical().WriteWithContext(ctx, path, map[string]any{}); err != nil {
		tb.Fatalf("create transit key %q: %v", transitKeyName, err)
	}
}
