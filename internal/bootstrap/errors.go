package bootstrap

import "errors"

// ErrMissingKeys reports an unseal attempt with no keys supplied and none
// published in the shared store yet. Non-fatal: the coordinator defers the
// pass and retries after the leader publishes.
var ErrMissingKeys = errors.New("no unseal keys available")

// ErrBootstrapOrphaned reports the unrecoverable gap between "server
// initialized" and "secrets persisted": the server holds a root token and
// unseal keys that no peer can ever learn. Operator intervention (wiping
// the server's storage and re-bootstrapping) is the only way out.
var ErrBootstrapOrphaned = errors.New("server initialized but bootstrap secrets were not persisted")
