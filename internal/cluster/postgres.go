package cluster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vault-bootstrap/pkg/db"
	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

//nolint:gochecknoglobals
var defaultLeaseTTL = 30 * time.Second

// PostgresStore implements Election and StateStore over the shared
// Postgres instance. Leadership is a single-row lease renewed on every
// IsLeader call; the lease expiring lets another unit take over. Set
// re-checks the lease inside the statement so a write racing a lost lease
// fails with ErrNotLeader instead of silently landing.
type PostgresStore struct {
	psql     *db.PostgresDatastore
	unitID   string
	leaseTTL time.Duration
	breaker  *gobreaker.CircuitBreaker
	logger   zerolog.Logger
}

func NewPostgresStore(psql *db.PostgresDatastore, unitID string) *PostgresStore {
	return &PostgresStore{
		psql:     psql,
		unitID:   unitID,
		leaseTTL: defaultLeaseTTL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cluster-state-store",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				// A rejected non-leader write is a healthy store answer.
				return err == nil || errors.Is(err, ErrNotLeader)
			},
		}),
		logger: log.Logger.With().Str("component", "cluster_store").Str("unit_id", unitID).Logger(),
	}
}

// IsLeader acquires or renews the leader lease. The upsert only succeeds
// when the lease is free, expired, or already held by this unit.
func (s *PostgresStore) IsLeader(ctx context.Context) (bool, error) {
	const query = `
		INSERT INTO leader_lease (singleton, holder, expires_at)
		VALUES (TRUE, $1, now() + $2::interval)
		ON CONFLICT (singleton) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE leader_lease.holder = EXCLUDED.holder OR leader_lease.expires_at < now()
		RETURNING holder`

	result, err := s.breaker.Execute(func() (interface{}, error) {
		var holder string
		err := s.psql.DB.GetContext(ctx, &holder, query, s.unitID, s.leaseTTL.String())
		if errors.Is(err, sql.ErrNoRows) {
			// Upsert declined: another unit holds a live lease.
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to acquire leader lease: %w", err)
		}
		return holder == s.unitID, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Leader lease query failed")
		return false, err
	}

	isLeader := result.(bool)
	s.logger.Debug().Bool("is_leader", isLeader).Msg("Checked cluster leadership")
	return isLeader, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM cluster_state WHERE key = $1`

	result, err := s.breaker.Execute(func() (interface{}, error) {
		var value string
		err := s.psql.DB.GetContext(ctx, &value, query, key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read cluster state %q: %w", key, err)
		}
		return value, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to read cluster state")
		return "", false, err
	}
	if result == nil {
		return "", false, nil
	}
	return result.(string), true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO cluster_state (key, value, updated_by, updated_at)
		SELECT $1, $2, $3, now()
		WHERE EXISTS (
			SELECT 1 FROM leader_lease
			WHERE holder = $3 AND expires_at >= now()
		)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`

	_, err := s.breaker.Execute(func() (interface{}, error) {
		result, err := s.psql.DB.ExecContext(ctx, query, key, value, s.unitID)
		if err != nil {
			return nil, fmt.Errorf("failed to write cluster state %q: %w", key, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to check cluster state write: %w", err)
		}
		if rows == 0 {
			return nil, ErrNotLeader
		}
		return nil, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to write cluster state")
		return err
	}

	s.logger.Debug().Str("key", key).Msg("Wrote cluster state")
	return nil
}
