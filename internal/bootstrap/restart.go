package bootstrap

import (
	"context"

	"vault-bootstrap/internal/supervisor"
	"vault-bootstrap/internal/vault"
	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

// RestartGate decides whether restarting the server process is currently
// safe. A pure query: its only side effect is logging the decision and
// its rationale.
type RestartGate struct {
	api              vault.API
	supervisor       supervisor.Supervisor
	serviceName      string
	unsafeAutoUnlock bool
	logger           zerolog.Logger
}

func NewRestartGate(apiClient vault.API, sup supervisor.Supervisor, serviceName string, unsafeAutoUnlock bool) *RestartGate {
	return &RestartGate{
		api:              apiClient,
		supervisor:       sup,
		serviceName:      serviceName,
		unsafeAutoUnlock: unsafeAutoUnlock,
		logger:           log.Logger.With().Str("component", "restart_gate").Logger(),
	}
}

// CanRestart evaluates the safety rules in precedence order:
//  1. process not running: always safe to start
//  2. unsafe auto-unlock explicitly configured: operator accepts the risk
//  3. not initialized: nothing to lose
//  4. sealed: no plaintext secrets in memory to lose
//  5. otherwise unsafe: a restart would force a manual re-unseal fleet-wide
func (g *RestartGate) CanRestart(ctx context.Context) (bool, error) {
	safe, reason, err := g.evaluate(ctx)
	if err != nil {
		return false, err
	}
	g.logger.Debug().
		Bool("safe_to_restart", safe).
		Str("reason", reason).
		Msg("Restart gate decision")
	return safe, nil
}

func (g *RestartGate) evaluate(ctx context.Context) (bool, string, error) {
	running, err := g.supervisor.IsRunning(ctx, g.serviceName)
	if err != nil {
		return false, "", err
	}
	if !running {
		return true, "service not running", nil
	}
	if g.unsafeAutoUnlock {
		return true, "unsafe auto-unlock configured", nil
	}

	initialized, err := g.api.IsInitialized(ctx)
	if err != nil {
		return false, "", err
	}
	if !initialized {
		return true, "server not initialized", nil
	}

	sealed, err := g.api.IsSealed(ctx)
	if err != nil {
		return false, "", err
	}
	if sealed {
		return true, "server sealed", nil
	}

	return false, "server initialized, unsealed and running", nil
}

// OpportunisticRestart restarts the service when the gate allows it and
// plain-starts it otherwise, so an already-running unsealed server is
// never bounced.
func (g *RestartGate) OpportunisticRestart(ctx context.Context) error {
	safe, err := g.CanRestart(ctx)
	if err != nil {
		return err
	}
	if safe {
		g.logger.Debug().Str("service", g.serviceName).Msg("Restarting vault")
		return g.supervisor.Restart(ctx, g.serviceName)
	}
	g.logger.Debug().Str("service", g.serviceName).Msg("Starting vault")
	return g.supervisor.Start(ctx, g.serviceName)
}
