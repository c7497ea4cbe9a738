package testutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"
)

const vaultRootToken = "root-token"

// VaultHelper wraps a dev-mode vault container for provisioning tests.
// Dev mode starts initialized and unsealed, which is what the access
// provisioning suite needs; initialize/unseal paths are covered by unit
// tests against mocks.
type VaultHelper struct {
	container *vault.VaultContainer
	Address   string
	Token     string
}

func NewVaultContainer(ctx context.Context) (*VaultHelper, error) {
	pm := getPortManager()
	randomPort, err := pm.reservePort()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve port: %w", err)
	}
	hostPort := fmt.Sprintf("%d", randomPort)

	vaultContainer, err := vault.Run(ctx,
		"hashicorp/vault:1.13.0",
		vault.WithToken(vaultRootToken),
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/v1/sys/health").
				WithPort("8200/tcp").
				WithStartupTimeout(30*time.Second),
			wait.ForExposedPort().WithStartupTimeout(1*time.Minute)),
		testcontainers.WithHostConfigModifier(func(hostConfig *container.HostConfig) {
			hostConfig.PortBindings = nat.PortMap{nat.Port("8200/tcp"): []nat.PortBinding{{HostPort: hostPort}}}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start Vault container: %w", err)
	}

	host, err := vaultContainer.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get host: %w", err)
	}
	port, err := vaultContainer.MappedPort(ctx, "8200")
	if err != nil {
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &VaultHelper{
		container: vaultContainer,
		Address:   fmt.Sprintf("http://%s:%s", host, port.Port()),
		Token:     vaultRootToken,
	}, nil
}

func (v *VaultHelper) Terminate(ctx context.Context) error {
	if v.container != nil {
		return v.container.Terminate(ctx)
	}
	return nil
}

// Reset tears down charm-managed entities so each test starts clean.
func (v *VaultHelper) Reset(ctx context.Context, mounts ...string) error {
	for _, mount := range mounts {
		if _, err := v.ExecuteVaultCommand(ctx, fmt.Sprintf("vault secrets disable %s", mount)); err != nil {
			return fmt.Errorf("failed to disable mount %s: %w", mount, err)
		}
	}
	if _, err := v.ExecuteVaultCommand(ctx, "vault auth disable approle"); err != nil {
		return fmt.Errorf("failed to disable approle auth: %w", err)
	}
	if _, err := v.ExecuteVaultCommand(ctx, "vault policy delete local-charm-policy"); err != nil {
		return fmt.Errorf("failed to delete charm policy: %w", err)
	}
	return nil
}

// ListPolicies returns the policy names known to the server.
func (v *VaultHelper) ListPolicies(ctx context.Context) ([]string, error) {
	output, err := v.ExecuteVaultCommand(ctx, "vault policy list")
	if err != nil {
		return nil, err
	}
	var policies []string
	for _, line := range strings.Split(output, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			policies = append(policies, trimmed)
		}
	}
	return policies, nil
}

// ExecuteVaultCommand executes a command in the Vault container and returns the output.
// It uses the `sh -c` command to allow for complex commands and redirection.
func (v *VaultHelper) ExecuteVaultCommand(ctx context.Context, command string) (string, error) {
	_, output, err := v.container.Exec(ctx, []string{"sh", "-c", command}, exec.Multiplexed())
	if err != nil {
		return "", fmt.Errorf("failed to execute command %q in Vault container: %w", command, err)
	}

	byteOutput, _ := io.ReadAll(output)
	if os.Getenv("DEBUG_TESTCONTAINERS") != "" {
		fmt.Printf("Command: %s\nOutput: %s\n", command, string(byteOutput))
	}
	return string(byteOutput), nil
}
