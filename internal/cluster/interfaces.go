package cluster

import (
	"context"
	"errors"
)

// ErrNotLeader reports a shared-state write attempted without holding
// leadership. Callers are expected to check IsLeader before writing; the
// store raising this means leadership was lost in between.
var ErrNotLeader = errors.New("unit is not the cluster leader")

// Election exposes the cluster leader-election capability. Leadership can
// change between operations, so the answer must be re-queried per call and
// never cached.
type Election interface {
	IsLeader(ctx context.Context) (bool, error)
}

// StateStore is the leader-owned, peer-readable key/value store that
// carries bootstrap secrets across the cluster. Writes are restricted to
// the current leader; every peer may read.
type StateStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Keys published in the shared store.
const (
	KeyRootToken    = "root-token"
	KeyUnsealKeys   = "unseal-keys"
	KeyAccessRoleID = "local-charm-access-id"
	KeyEpoch        = "bootstrap-epoch"
)
