package vault

import "context"

// API is the administrative surface of the secrets server that the
// bootstrap agent drives. All mutating operations are idempotent or
// upsert-shaped so that a reconciliation pass can be repeated safely.
type API interface {
	Health(ctx context.Context) (*ServerHealth, error)
	IsInitialized(ctx context.Context) (bool, error)
	IsSealed(ctx context.Context) (bool, error)
	Initialize(ctx context.Context, shares, threshold int) (*InitResult, error)
	SubmitUnsealKey(ctx context.Context, key string) (*SealProgress, error)
	ListAuthBackends(ctx context.Context) (map[string]bool, error)
	EnableAuthBackend(ctx context.Context, kind string) error
	SetPolicy(ctx context.Context, name, rules string) error
	CreateRole(ctx context.Context, name string, spec RoleSpec) error
	GetRoleID(ctx context.Context, name string) (string, error)
	ListSecretBackends(ctx context.Context) (map[string]bool, error)
	EnableSecretBackend(ctx context.Context, kind, mountPoint, description string) error
	SetToken(token string)
}
