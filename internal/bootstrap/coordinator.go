package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"vault-bootstrap/internal/cluster"
	"vault-bootstrap/internal/supervisor"
	"vault-bootstrap/internal/vault"
	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

// State classifies where the server is in its bootstrap lifecycle at the
// end of a reconciliation pass.
type State int

const (
	StateNotRunning State = iota
	StateUnreachable
	StateUninitialized
	StateSealed
	StateUnprovisioned
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNotRunning:
		return "not-running"
	case StateUnreachable:
		return "unreachable"
	case StateUninitialized:
		return "uninitialized"
	case StateSealed:
		return "sealed"
	case StateUnprovisioned:
		return "unprovisioned"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Coordinator drives one reconciliation pass of the bootstrap sequence:
// probe, leader-gated initialize, unseal from shared keys, leader-gated
// access provisioning. Every step is idempotent; re-running a pass on an
// already-ready server is a no-op.
type Coordinator struct {
	api         vault.API
	probe       *vault.HealthProbe
	store       cluster.StateStore
	election    cluster.Election
	supervisor  supervisor.Supervisor
	provisioner *Provisioner
	serviceName string
	shares      int
	threshold   int
	logger      zerolog.Logger
}

type CoordinatorParams struct {
	API         vault.API
	Probe       *vault.HealthProbe
	Store       cluster.StateStore
	Election    cluster.Election
	Supervisor  supervisor.Supervisor
	Provisioner *Provisioner
	ServiceName string
	Shares      int
	Threshold   int
}

func NewCoordinator(params CoordinatorParams) *Coordinator {
	shares, threshold := params.Shares, params.Threshold
	if shares < 1 {
		shares = 1
	}
	if threshold < 1 {
		threshold = 1
	}
	return &Coordinator{
		api:         params.API,
		probe:       params.Probe,
		store:       params.Store,
		election:    params.Election,
		supervisor:  params.Supervisor,
		provisioner: params.Provisioner,
		serviceName: params.ServiceName,
		shares:      shares,
		threshold:   threshold,
		logger:      log.Logger.With().Str("component", "coordinator").Logger(),
	}
}

// Reconcile runs one bootstrap pass and reports the resulting state.
// Deferrals (service not running, keys not yet published) return a state
// with a nil error; the scheduler simply re-invokes later.
func (c *Coordinator) Reconcile(ctx context.Context) (State, error) {
	running, err := c.supervisor.IsRunning(ctx, c.serviceName)
	if err != nil {
		return StateNotRunning, err
	}
	if !running {
		c.logger.Debug().Str("service", c.serviceName).Msg("Deferring: vault service is not running, waiting for the supervisor to start it")
		return StateNotRunning, nil
	}

	health, err := c.probe.Probe(ctx)
	if err != nil {
		return StateUnreachable, err
	}

	sealed := health.Sealed
	if !health.Initialized {
		leader, err := c.isLeader(ctx)
		if err != nil {
			return StateUninitialized, err
		}
		if !leader {
			c.logger.Debug().Msg("Deferring: server uninitialized and this unit is not the leader")
			return StateUninitialized, nil
		}
		if err := c.initialize(ctx); err != nil {
			return StateUninitialized, err
		}
		// A freshly initialized server starts sealed.
		sealed = true
	}

	if sealed {
		progress, err := c.Unseal(ctx, nil)
		if err != nil {
			if errors.Is(err, ErrMissingKeys) {
				c.logger.Debug().Msg("Deferring: unseal keys not yet published")
				return StateSealed, nil
			}
			return StateSealed, err
		}
		sealed = progress.Sealed
	}
	if sealed {
		// All held keys submitted and the server is still below its
		// threshold; nothing more this unit can do this pass.
		c.logger.Warn().Msg("Server remains sealed after submitting all held keys")
		return StateSealed, nil
	}

	leader, err := c.isLeader(ctx)
	if err != nil {
		return StateUnprovisioned, err
	}
	if leader {
		roleID, err := c.provisioner.SetupLocalAccess(ctx, "")
		if err != nil {
			return StateUnprovisioned, err
		}
		if err := c.store.Set(ctx, cluster.KeyAccessRoleID, roleID); err != nil {
			return StateUnprovisioned, fmt.Errorf("failed to publish access role id: %w", err)
		}
		c.logger.Info().Str("state", StateReady.String()).Msg("Bootstrap pass complete")
		return StateReady, nil
	}

	if _, ok, err := c.provisioner.LocalAccessRoleID(ctx); err != nil {
		return StateUnprovisioned, err
	} else if !ok {
		c.logger.Debug().Msg("Deferring: access role not yet provisioned by leader")
		return StateUnprovisioned, nil
	}
	return StateReady, nil
}

// initialize initializes the server and synchronously persists the
// resulting secrets to the shared store. The store write must be
// acknowledged before anything else happens: a failure here orphans the
// server's secret material, which no retry can recover.
func (c *Coordinator) initialize(ctx context.Context) error {
	c.logger.Info().
		Int("shares", c.shares).
		Int("threshold", c.threshold).
		Msg("Initializing server")

	result, err := c.api.Initialize(ctx, c.shares, c.threshold)
	if err != nil {
		return err
	}
	c.api.SetToken(result.RootToken)

	err = cluster.SaveBootstrapSecrets(ctx, c.store, cluster.BootstrapSecrets{
		RootToken:  result.RootToken,
		UnsealKeys: result.Keys,
		Shares:     c.shares,
		Threshold:  c.threshold,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Server initialized but secrets could not be persisted; operator intervention required")
		return fmt.Errorf("%w: %w", ErrBootstrapOrphaned, err)
	}

	c.logger.Info().Int("keys", len(result.Keys)).Msg("Bootstrap secrets persisted")
	return nil
}

// Unseal submits unseal keys in order. When keys is nil they are read
// from the shared store; ErrMissingKeys reports that none are published
// yet. Submitting keys to an already-unsealed server is a harmless no-op.
// The server's own threshold decides when it actually unseals.
func (c *Coordinator) Unseal(ctx context.Context, keys []string) (*vault.SealProgress, error) {
	if keys == nil {
		published, ok, err := cluster.LoadUnsealKeys(ctx, c.store)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrMissingKeys
		}
		keys = published
	}
	if len(keys) == 0 {
		return nil, ErrMissingKeys
	}

	var progress *vault.SealProgress
	for _, key := range keys {
		p, err := c.api.SubmitUnsealKey(ctx, key)
		if err != nil {
			return nil, err
		}
		progress = p
	}
	return progress, nil
}

func (c *Coordinator) isLeader(ctx context.Context) (bool, error) {
	leader, err := c.election.IsLeader(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to determine leadership: %w", err)
	}
	return leader, nil
}
