package config

import (
	"maps"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

type configTestTable struct {
	name        string
	setFields   configFields
	errContains string
}

type configFields map[string]interface{}

var validAppConfig = configFields{
	"id":                "vault/0",
	"postgres.address":  "localhost",
	"postgres.port":     5432,
	"postgres.username": "u",
	"postgres.password": "p",
	"postgres.db_name":  "d",
}

func deleteFromMap(m configFields, keys ...string) configFields {
	clonedMap := maps.Clone(m)
	for _, argument := range keys {
		delete(clonedMap, argument)
	}

	return clonedMap
}

func updateAndReturnMap(m configFields, key string, value interface{}) configFields {
	clonedMap := maps.Clone(m)
	clonedMap[key] = value
	return clonedMap
}

func TestConfigLoadFromYAML(t *testing.T) {
	viper.Reset()
	viper.SetConfigFile(filepath.Join("testdata", "config.yaml"))
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadInConfig())

	cfg, err := NewConfig()

	require.NoError(t, err)

	require.Equal(t, "vault/0", cfg.ID)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "vault", cfg.ServiceName)
	require.False(t, cfg.UnsafeAutoUnlock)
	require.Equal(t, "/var/snap/vault/common/vault.crt", cfg.TLSCertFile)

	require.Equal(t, 5, cfg.Init.Shares)
	require.Equal(t, 3, cfg.Init.Threshold)

	require.Equal(t, 6, cfg.Probe.MaxAttempts)
	require.Equal(t, 500*time.Millisecond, cfg.Probe.InitialDelay)
	require.Equal(t, 5*time.Second, cfg.Probe.MaxDelay)

	require.Equal(t, "localhost", cfg.Postgres.Address)
	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "postgres", cfg.Postgres.Username)
	require.Equal(t, "vault_bootstrap", cfg.Postgres.DBName)
	require.Equal(t, "disable", cfg.Postgres.SSLMode)
	require.Equal(t, 10, cfg.Postgres.MaxConnections)

	require.Equal(t, "10.0.0.5", cfg.Binding.AccessAddress)
	require.Equal(t, "10.0.0.5", cfg.Binding.ClusterAddress)
	require.Equal(t, "eth0", cfg.Binding.Interface)
}

func TestConfigDefaults(t *testing.T) {
	viper.Reset()
	for k, v := range validAppConfig {
		viper.Set(k, v)
	}

	cfg, err := NewConfig()

	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "vault", cfg.ServiceName)
	require.False(t, cfg.UnsafeAutoUnlock)
	require.Equal(t, 1, cfg.Init.Shares)
	require.Equal(t, 1, cfg.Init.Threshold)
	require.Equal(t, 10, cfg.Probe.MaxAttempts)
	require.Equal(t, 1*time.Second, cfg.Probe.InitialDelay)
	require.Equal(t, 10*time.Second, cfg.Probe.MaxDelay)
}

func TestConfigurationValidation(t *testing.T) {
	t.Run("returns config without error when config is valid", func(t *testing.T) {
		viper.Reset()
		viper.SetConfigFile(filepath.Join("testdata", "config.yaml"))
		viper.SetConfigType("yaml")
		require.NoError(t, viper.ReadInConfig())

		cfg, err := NewConfig()
		require.NoError(t, err)
		require.NotNil(t, cfg)
	})

	t.Run("returns error when no config loaded", func(t *testing.T) {
		viper.Reset()
		viper.SetConfigType("yaml")

		_, err := NewConfig()
		require.Error(t, err)
		require.Contains(t, err.Error(), "is required")
	})

	t.Run("it fails when a required field is missing or invalid", func(t *testing.T) {
		tests := []configTestTable{
			{
				name:        "missing id",
				setFields:   deleteFromMap(validAppConfig, "id"),
				errContains: `"Config.ID" is required`,
			},
			{
				name:        "missing postgres.address",
				setFields:   deleteFromMap(validAppConfig, "postgres.address"),
				errContains: `"Config.Postgres.Address" is required`,
			},
			{
				name:        "missing postgres.port",
				setFields:   deleteFromMap(validAppConfig, "postgres.port"),
				errContains: `"Config.Postgres.Port" is required`,
			},
			{
				name:        "missing postgres.username",
				setFields:   deleteFromMap(validAppConfig, "postgres.username"),
				errContains: `"Config.Postgres.Username" is required`,
			},
			{
				name:        "missing postgres.password",
				setFields:   deleteFromMap(validAppConfig, "postgres.password"),
				errContains: `"Config.Postgres.Password" is required`,
			},
			{
				name:        "missing postgres.db_name",
				setFields:   deleteFromMap(validAppConfig, "postgres.db_name"),
				errContains: `"Config.Postgres.DBName" is required`,
			},
			{
				name:        "threshold above shares",
				setFields:   updateAndReturnMap(updateAndReturnMap(validAppConfig, "init.shares", 3), "init.threshold", 5),
				errContains: `"Config.Init.Threshold"`,
			},
			{
				name:        "zero shares",
				setFields:   updateAndReturnMap(validAppConfig, "init.shares", 0),
				errContains: `"Config.Init.Shares"`,
			},
			{
				name:        "zero probe attempts",
				setFields:   updateAndReturnMap(validAppConfig, "probe.max_attempts", 0),
				errContains: `"Config.Probe.MaxAttempts"`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				viper.Reset()
				for k, v := range tt.setFields {
					viper.Set(k, v)
				}

				_, err := NewConfig()

				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errContains)
			})
		}
	})
}
