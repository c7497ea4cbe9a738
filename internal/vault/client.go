package vault

import (
	"context"
	"fmt"
	"strings"

	"vault-bootstrap/pkg/log"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// Client implements API on top of the hashicorp/vault/api client.
type Client struct {
	api    *api.Client
	addr   string
	logger zerolog.Logger
}

func NewClient(addr, token, tlsCertFile string) (*Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("vault address is required")
	}

	cfg := api.DefaultConfig()
	cfg.Address = addr
	if tlsCertFile != "" {
		if err := cfg.ConfigureTLS(&api.TLSConfig{CACert: tlsCertFile}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	apiClient, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if token != "" {
		apiClient.SetToken(token)
	}

	return &Client{
		api:    apiClient,
		addr:   addr,
		logger: log.Logger.With().Str("component", "vault_client").Str("vault_address", addr).Logger(),
	}, nil
}

func (c *Client) SetToken(token string) {
	c.api.SetToken(token)
}

// Health queries /v1/sys/health. The endpoint reports sealed and
// uninitialized servers through non-200 status codes which the underlying
// client decodes into a normal response, so any error returned here is a
// transport failure.
func (c *Client) Health(ctx context.Context) (*ServerHealth, error) {
	resp, err := c.api.Sys().HealthWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query health: %w", err)
	}
	return &ServerHealth{
		Initialized:   resp.Initialized,
		Sealed:        resp.Sealed,
		Standby:       resp.Standby,
		ServerTimeUTC: resp.ServerTimeUTC,
		Version:       resp.Version,
		ClusterName:   resp.ClusterName,
		ClusterID:     resp.ClusterID,
	}, nil
}

func (c *Client) IsInitialized(ctx context.Context) (bool, error) {
	initialized, err := c.api.Sys().InitStatusWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query init status: %w", err)
	}
	return initialized, nil
}

func (c *Client) IsSealed(ctx context.Context) (bool, error) {
	status, err := c.api.Sys().SealStatusWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query seal status: %w", err)
	}
	return status.Sealed, nil
}

func (c *Client) Initialize(ctx context.Context, shares, threshold int) (*InitResult, error) {
	c.decorateLog(c.logger.Info, "initialize").
		Int("shares", shares).
		Int("threshold", threshold).
		Msg("Initializing vault")

	resp, err := c.api.Sys().InitWithContext(ctx, &api.InitRequest{
		SecretShares:    shares,
		SecretThreshold: threshold,
	})
	if err != nil {
		c.decorateLog(c.logger.Error, "initialize").Err(err).Msg("Initialization failed")
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}
	return &InitResult{RootToken: resp.RootToken, Keys: resp.Keys}, nil
}

func (c *Client) SubmitUnsealKey(ctx context.Context, key string) (*SealProgress, error) {
	resp, err := c.api.Sys().UnsealWithContext(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to submit unseal key: %w", err)
	}
	c.decorateLog(c.logger.Debug, "unseal").
		Bool("sealed", resp.Sealed).
		Int("progress", resp.Progress).
		Int("threshold", resp.T).
		Msg("Submitted unseal key")
	return &SealProgress{
		Sealed:    resp.Sealed,
		Threshold: resp.T,
		Shares:    resp.N,
		Progress:  resp.Progress,
	}, nil
}

// ListAuthBackends returns the set of enabled auth mount paths with the
// trailing slash trimmed.
func (c *Client) ListAuthBackends(ctx context.Context) (map[string]bool, error) {
	mounts, err := c.api.Sys().ListAuthWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth backends: %w", err)
	}
	enabled := make(map[string]bool)
	for path := range mounts {
		enabled[strings.TrimSuffix(path, "/")] = true
	}
	return enabled, nil
}

func (c *Client) EnableAuthBackend(ctx context.Context, kind string) error {
	c.decorateLog(c.logger.Info, "enable_auth_backend").Str("type", kind).Msg("Enabling auth backend")
	err := c.api.Sys().EnableAuthWithOptionsWithContext(ctx, kind, &api.EnableAuthOptions{Type: kind})
	if err != nil {
		return fmt.Errorf("failed to enable auth backend %s: %w", kind, err)
	}
	return nil
}

func (c *Client) SetPolicy(ctx context.Context, name, rules string) error {
	c.decorateLog(c.logger.Debug, "set_policy").Str("policy", name).Msg("Writing policy")
	if err := c.api.Sys().PutPolicyWithContext(ctx, name, rules); err != nil {
		return fmt.Errorf("failed to write policy %s: %w", name, err)
	}
	return nil
}

func (c *Client) CreateRole(ctx context.Context, name string, spec RoleSpec) error {
	c.decorateLog(c.logger.Debug, "create_role").
		Str("role", name).
		Strs("policies", spec.Policies).
		Msg("Writing approle role")

	data := map[string]interface{}{
		"token_ttl":         spec.TokenTTL,
		"token_max_ttl":     spec.TokenMaxTTL,
		"token_policies":    spec.Policies,
		"bind_secret_id":    spec.BindSecretID,
		"token_bound_cidrs": spec.BoundCIDRs,
	}
	_, err := c.api.Logical().WriteWithContext(ctx, "auth/approle/role/"+name, data)
	if err != nil {
		return fmt.Errorf("failed to write role %s: %w", name, err)
	}
	return nil
}

func (c *Client) GetRoleID(ctx context.Context, name string) (string, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, "auth/approle/role/"+name+"/role-id")
	if err != nil {
		return "", fmt.Errorf("failed to read role id for %s: %w", name, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("role %s has no role id", name)
	}
	roleID, ok := secret.Data["role_id"].(string)
	if !ok {
		return "", fmt.Errorf("unexpected role id payload for %s", name)
	}
	return roleID, nil
}

// ListSecretBackends returns the set of mounted secret engine paths with
// the trailing slash trimmed.
func (c *Client) ListSecretBackends(ctx context.Context) (map[string]bool, error) {
	mounts, err := c.api.Sys().ListMountsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list secret backends: %w", err)
	}
	mounted := make(map[string]bool)
	for path := range mounts {
		mounted[strings.TrimSuffix(path, "/")] = true
	}
	return mounted, nil
}

func (c *Client) EnableSecretBackend(ctx context.Context, kind, mountPoint, description string) error {
	c.decorateLog(c.logger.Info, "enable_secret_backend").
		Str("type", kind).
		Str("mount_point", mountPoint).
		Msg("Mounting secret backend")

	err := c.api.Sys().MountWithContext(ctx, mountPoint, &api.MountInput{
		Type:        kind,
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("failed to mount secret backend %s: %w", mountPoint, err)
	}
	return nil
}

func (c *Client) decorateLog(eventFactory func() *zerolog.Event, event string) *zerolog.Event {
	return eventFactory().Str("event", event)
}
