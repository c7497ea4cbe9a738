package db

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vault-bootstrap/internal/config"
	"vault-bootstrap/pkg/db/migrations"
	"vault-bootstrap/testutil"
)

type PostgresDatastoreTestSuite struct {
	suite.Suite
	pgHelper *testutil.PostgresHelper
	store    *PostgresDatastore
}

type testColumn struct {
	DataType   string
	IsNullable string
}

func TestPostgresDatastoreSuite(t *testing.T) {
	if os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		t.Skip("Skipping integration tests")
	}
	suite.Run(t, new(PostgresDatastoreTestSuite))
}

func (s *PostgresDatastoreTestSuite) SetupSuite() {
	var err error
	s.pgHelper, err = testutil.NewPostgresContainer(s.T(), context.Background())
	require.NoError(s.T(), err, "Failed to start PostgreSQL container")
}

func (s *PostgresDatastoreTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}
	if s.pgHelper != nil {
		if err := s.pgHelper.Terminate(ctx); err != nil {
			log.Printf("Error terminating container: %v", err)
		}
	}
}

func (s *PostgresDatastoreTestSuite) TestNewPostgresDatastore() {
	s.T().Run("successful connection to postgres", func(t *testing.T) {
		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		s.store = store
		require.NoError(s.T(), err, "Should create datastore without error")

		assert.NotNil(s.T(), s.store, "Expected store to be non-nil on successful connection")
		assert.NotNil(s.T(), s.store.DB, "Expected store.DB to be non-nil on successful connection")
		assert.Equal(s.T(), "pgx", s.store.DB.DriverName(), "Expected driver name to be 'pgx'")
	})

	s.T().Run("db connection failure returns error", func(t *testing.T) {
		badConfig := &config.Postgres{
			Address:  "localhost",
			Port:     9999,
			Username: "wrong",
			Password: "wrong",
			DBName:   "wrongdb",
		}

		store, err := NewPostgresDatastore(badConfig, migrations.NewPostgresMigration())

		assert.Nil(s.T(), store, "Expected store to be nil on connection failure")
		assert.Error(s.T(), err, "Expected error when connecting to invalid postgres instance")
		assert.Contains(s.T(), err.Error(), "failed to connect to postgres", "Error message should indicate connection failure")
	})
}

func (s *PostgresDatastoreTestSuite) TestInitSchema_VerifyTableStructure() {
	s.T().Run("verifies cluster_state table structure", func(t *testing.T) {
		expectedColumns := map[string]testColumn{
			"key":        {"text", "NO"},
			"value":      {"text", "NO"},
			"updated_by": {"text", "NO"},
			"updated_at": {"timestamp with time zone", "NO"},
		}

		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		require.NoError(s.T(), err, "Should create datastore without error")
		s.store = store

		actualColumns := s.getColumns("public", "cluster_state")

		assert.Len(s.T(), actualColumns, len(expectedColumns), "Number of columns does not match expected")
		for col, exp := range expectedColumns {
			act, ok := actualColumns[col]
			assert.True(s.T(), ok, "Expected column '%s' not found", col)
			assert.Equal(s.T(), exp.DataType, act.DataType, "Data type mismatch for column '%s'", col)
			assert.True(s.T(), strings.EqualFold(exp.IsNullable, act.IsNullable), "Nullability mismatch for column '%s'", col)
		}
	})

	s.T().Run("verifies leader_lease is a single-row lease table", func(t *testing.T) {
		store, err := NewPostgresDatastore(s.pgHelper.Config, migrations.NewPostgresMigration())
		require.NoError(s.T(), err, "Should create datastore without error")
		s.store = store

		pkColumns := s.getPrimaryKeyColumns("public", "leader_lease")

		assert.Equal(s.T(), []string{"singleton"}, pkColumns, "PRIMARY KEY should be the singleton marker")
	})
}

func (s *PostgresDatastoreTestSuite) getColumns(schema, table string) map[string]testColumn {
	rows, err := s.store.DB.Query(`
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2`, schema, table)
	require.NoError(s.T(), err)
	defer rows.Close()

	columns := make(map[string]testColumn)
	for rows.Next() {
		var name, dataType, nullable string
		require.NoError(s.T(), rows.Scan(&name, &dataType, &nullable))
		columns[name] = testColumn{DataType: dataType, IsNullable: nullable}
	}
	return columns
}

func (s *PostgresDatastoreTestSuite) getPrimaryKeyColumns(schema, table string) []string {
	rows, err := s.store.DB.Query(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`, schema, table)
	require.NoError(s.T(), err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(s.T(), rows.Scan(&name))
		columns = append(columns, name)
	}
	return columns
}
