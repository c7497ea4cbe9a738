package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vault-bootstrap/pkg/log"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// ErrUnreachable reports that the server never answered within the probe's
// retry budget. It wraps the last transport error seen and is fatal for
// the current reconciliation pass.
var ErrUnreachable = errors.New("vault is unreachable")

// RetryPolicy is the explicit retry configuration of a HealthProbe, kept
// as a plain struct so tests can tighten it.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  10,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// HealthProbe polls server health, retrying transport failures with
// bounded exponential backoff. A well-formed error response from the
// server is returned immediately without retrying.
type HealthProbe struct {
	api    API
	policy RetryPolicy
	logger zerolog.Logger
}

func NewHealthProbe(apiClient API, policy RetryPolicy) *HealthProbe {
	return &HealthProbe{
		api:    apiClient,
		policy: policy,
		logger: log.Logger.With().Str("component", "health_probe").Logger(),
	}
}

func (p *HealthProbe) Probe(ctx context.Context) (*ServerHealth, error) {
	attempt := 0
	operation := func() (*ServerHealth, error) {
		attempt++
		health, err := p.api.Health(ctx)
		if err != nil {
			var respErr *api.ResponseError
			if errors.As(err, &respErr) {
				// The server answered: not a transport failure.
				return nil, backoff.Permanent(err)
			}
			p.logger.Debug().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", p.policy.MaxAttempts).
				Msg("Health probe failed, will retry")
			return nil, err
		}
		return health, nil
	}

	// Deterministic doubling, capped: 1s, 2s, 4s, 8s, 10s, 10s... with
	// the default policy.
	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = p.policy.InitialDelay
	strategy.MaxInterval = p.policy.MaxDelay
	strategy.Multiplier = 2
	strategy.RandomizationFactor = 0

	health, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(strategy),
		backoff.WithMaxTries(uint(p.policy.MaxAttempts)),
	)
	if err != nil {
		var respErr *api.ResponseError
		if errors.As(err, &respErr) {
			return nil, fmt.Errorf("health query rejected by server: %w", err)
		}
		p.logger.Error().
			Err(err).
			Int("attempts", attempt).
			Msg("Health probe exhausted retry budget")
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	p.logger.Debug().
		Bool("initialized", health.Initialized).
		Bool("sealed", health.Sealed).
		Msg("Health probe succeeded")
	return health, nil
}
