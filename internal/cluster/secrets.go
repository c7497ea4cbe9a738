package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// BootstrapSecrets is the secret material produced by initializing the
// server: written exactly once per bootstrap epoch by the leader, read
// back by every peer for unseal. Rewriting the keys starts a new epoch.
type BootstrapSecrets struct {
	RootToken  string   `json:"root_token"`
	UnsealKeys []string `json:"unseal_keys"`
	Shares     int      `json:"shares"`
	Threshold  int      `json:"threshold"`
	Epoch      int      `json:"epoch"`
}

// SaveBootstrapSecrets publishes the secrets to the store. The write must
// be acknowledged before the caller proceeds to unseal: losing it loses
// cluster access to the server permanently.
func SaveBootstrapSecrets(ctx context.Context, store StateStore, secrets BootstrapSecrets) error {
	epoch := 1
	if _, ok, err := store.Get(ctx, KeyUnsealKeys); err != nil {
		return fmt.Errorf("failed to check existing unseal keys: %w", err)
	} else if ok {
		// Keys already published: this write replaces them and starts a
		// new bootstrap epoch.
		current, _, err := store.Get(ctx, KeyEpoch)
		if err != nil {
			return fmt.Errorf("failed to read bootstrap epoch: %w", err)
		}
		if parsed, parseErr := strconv.Atoi(current); parseErr == nil {
			epoch = parsed + 1
		}
	}
	secrets.Epoch = epoch

	keysJSON, err := json.Marshal(secrets.UnsealKeys)
	if err != nil {
		return fmt.Errorf("failed to marshal unseal keys: %w", err)
	}

	if err := store.Set(ctx, KeyRootToken, secrets.RootToken); err != nil {
		return fmt.Errorf("failed to persist root token: %w", err)
	}
	if err := store.Set(ctx, KeyUnsealKeys, string(keysJSON)); err != nil {
		return fmt.Errorf("failed to persist unseal keys: %w", err)
	}
	if err := store.Set(ctx, KeyEpoch, strconv.Itoa(epoch)); err != nil {
		return fmt.Errorf("failed to persist bootstrap epoch: %w", err)
	}
	return nil
}

// LoadUnsealKeys reads the published unseal keys, preserving server order.
// ok is false when no keys have been published yet.
func LoadUnsealKeys(ctx context.Context, store StateStore) ([]string, bool, error) {
	raw, ok, err := store.Get(ctx, KeyUnsealKeys)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read unseal keys: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal unseal keys: %w", err)
	}
	return keys, true, nil
}
