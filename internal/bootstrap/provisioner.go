package bootstrap

import (
	"context"
	"fmt"

	"vault-bootstrap/internal/cluster"
	"vault-bootstrap/internal/vault"
	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

// Provisioner creates and maintains the charm-managed access entities:
// the approle auth backend, the local access policy and role, and charm-
// prefixed secret backend mounts. Every step is individually idempotent so
// a pass can be repeated on every reconciliation.
type Provisioner struct {
	api    vault.API
	store  cluster.StateStore
	logger zerolog.Logger
}

func NewProvisioner(apiClient vault.API, store cluster.StateStore) *Provisioner {
	return &Provisioner{
		api:    apiClient,
		store:  store,
		logger: log.Logger.With().Str("component", "provisioner").Logger(),
	}
}

// SetupLocalAccess establishes the constrained identity the local agent
// authenticates as. The admin token comes from the argument or, when
// empty, from the root token published in the shared store. Returns the
// role id; the caller publishes it once the role exists server-side.
func (p *Provisioner) SetupLocalAccess(ctx context.Context, token string) (string, error) {
	if token == "" {
		published, ok, err := p.store.Get(ctx, cluster.KeyRootToken)
		if err != nil {
			return "", fmt.Errorf("failed to resolve admin token: %w", err)
		}
		if !ok {
			return "", fmt.Errorf("no admin token supplied and none published")
		}
		token = published
	}
	p.api.SetToken(token)

	if err := p.enableApproleAuth(ctx); err != nil {
		return "", err
	}

	if err := p.api.SetPolicy(ctx, CharmPolicyName, CharmPolicy); err != nil {
		return "", err
	}

	roleID, err := p.ConfigureApprole(ctx, CharmAccessRole, localOnlyCIDR, []string{CharmPolicyName})
	if err != nil {
		return "", err
	}

	p.logger.Info().Str("role", CharmAccessRole).Msg("Local access role provisioned")
	return roleID, nil
}

// enableApproleAuth enables the approle auth backend unless it already is.
func (p *Provisioner) enableApproleAuth(ctx context.Context) error {
	enabled, err := p.api.ListAuthBackends(ctx)
	if err != nil {
		return err
	}
	if enabled["approle"] {
		p.logger.Debug().Msg("Approle auth backend already enabled")
		return nil
	}
	return p.api.EnableAuthBackend(ctx, "approle")
}

// ConfigureSecretBackend mounts a KV backend at name unless a backend is
// already mounted there.
func (p *Provisioner) ConfigureSecretBackend(ctx context.Context, name string) error {
	mounted, err := p.api.ListSecretBackends(ctx)
	if err != nil {
		return err
	}
	if mounted[name] {
		p.logger.Debug().Str("backend", name).Msg("Secret backend already mounted")
		return nil
	}
	return p.api.EnableSecretBackend(ctx, "kv", name, "Charm created KV backend")
}

// ConfigurePolicy upserts a policy document. The server's own semantics
// make this idempotent, so no existence check is needed.
func (p *Provisioner) ConfigurePolicy(ctx context.Context, name, rules string) error {
	return p.api.SetPolicy(ctx, name, rules)
}

// ConfigureApprole upserts a role bound to the given CIDR and policies and
// returns its id. Role identity is the network origin, never a shared
// secret. The id read is a separate call from the write and works whether
// the role existed before this pass or was just created.
func (p *Provisioner) ConfigureApprole(ctx context.Context, name, cidr string, policies []string) (string, error) {
	err := p.api.CreateRole(ctx, name, vault.RoleSpec{
		TokenTTL:     charmTokenTTL,
		TokenMaxTTL:  charmTokenMaxTTL,
		Policies:     policies,
		BindSecretID: false,
		BoundCIDRs:   []string{cidr},
	})
	if err != nil {
		return "", err
	}
	return p.api.GetRoleID(ctx, name)
}

// LocalAccessRoleID reads the published role id for the local access
// role. ok is false until the leader has provisioned and published it.
func (p *Provisioner) LocalAccessRoleID(ctx context.Context) (string, bool, error) {
	return p.store.Get(ctx, cluster.KeyAccessRoleID)
}
