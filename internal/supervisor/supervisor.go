package supervisor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

// Supervisor is the process-supervision capability: the agent never
// manages the server process directly, it only asks the host's init
// system.
type Supervisor interface {
	IsRunning(ctx context.Context, service string) (bool, error)
	Start(ctx context.Context, service string) error
	Restart(ctx context.Context, service string) error
}

// SystemdSupervisor drives systemctl.
type SystemdSupervisor struct {
	logger zerolog.Logger
}

func NewSystemdSupervisor() *SystemdSupervisor {
	return &SystemdSupervisor{
		logger: log.Logger.With().Str("component", "supervisor").Logger(),
	}
}

func (s *SystemdSupervisor) IsRunning(ctx context.Context, service string) (bool, error) {
	out, err := exec.CommandContext(ctx, "systemctl", "is-active", service).Output()
	state := strings.TrimSpace(string(out))
	if err != nil {
		// systemctl exits non-zero for every inactive state; only an
		// empty answer means the query itself failed.
		if state == "" {
			return false, fmt.Errorf("failed to query service %s: %w", service, err)
		}
		s.logger.Debug().Str("service", service).Str("state", state).Msg("Service is not active")
		return false, nil
	}
	return state == "active", nil
}

func (s *SystemdSupervisor) Start(ctx context.Context, service string) error {
	s.logger.Info().Str("service", service).Msg("Starting service")
	if err := exec.CommandContext(ctx, "systemctl", "start", service).Run(); err != nil {
		return fmt.Errorf("failed to start service %s: %w", service, err)
	}
	return nil
}

func (s *SystemdSupervisor) Restart(ctx context.Context, service string) error {
	s.logger.Info().Str("service", service).Msg("Restarting service")
	if err := exec.CommandContext(ctx, "systemctl", "restart", service).Run(); err != nil {
		return fmt.Errorf("failed to restart service %s: %w", service, err)
	}
	return nil
}
