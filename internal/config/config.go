package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the full agent configuration, loaded through viper from the
// config file and VAULT_BOOTSTRAP_* environment variables.
type Config struct {
	ID               string   `mapstructure:"id" validate:"required"`
	LogLevel         string   `mapstructure:"log_level"`
	ServiceName      string   `mapstructure:"service_name" validate:"required"`
	UnsafeAutoUnlock bool     `mapstructure:"unsafe_auto_unlock"`
	TLSCertFile      string   `mapstructure:"tls_cert_file"`
	Init             Init     `mapstructure:"init"`
	Probe            Probe    `mapstructure:"probe"`
	Postgres         Postgres `mapstructure:"postgres"`
	Binding          Binding  `mapstructure:"binding"`
}

// Init controls the shares/threshold used when initializing a fresh server.
type Init struct {
	Shares    int `mapstructure:"shares" validate:"min=1"`
	Threshold int `mapstructure:"threshold" validate:"min=1,ltefield=Shares"`
}

// Probe is the health-probe retry policy.
type Probe struct {
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// Postgres configures the shared cluster-state store.
type Postgres struct {
	Address        string `mapstructure:"address" validate:"required"`
	Port           int    `mapstructure:"port" validate:"required"`
	Username       string `mapstructure:"username" validate:"required"`
	Password       string `mapstructure:"password" validate:"required"`
	DBName         string `mapstructure:"db_name" validate:"required"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connection"`
}

// Binding holds optional address overrides for the access and cluster
// bindings. When empty the netbind resolver falls back to interface
// discovery.
type Binding struct {
	AccessAddress  string `mapstructure:"access_address"`
	ClusterAddress string `mapstructure:"cluster_address"`
	Interface      string `mapstructure:"interface"`
}

const (
	defaultServiceName  = "vault"
	defaultProbeTries   = 10
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 10 * time.Second
)

func NewConfig() (*Config, error) {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("service_name", defaultServiceName)
	viper.SetDefault("init.shares", 1)
	viper.SetDefault("init.threshold", 1)
	viper.SetDefault("probe.max_attempts", defaultProbeTries)
	viper.SetDefault("probe.initial_delay", defaultInitialDelay)
	viper.SetDefault("probe.max_delay", defaultMaxDelay)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		if first.Tag() == "required" {
			return fmt.Errorf("invalid configuration: %q is required", first.Namespace())
		}
		return fmt.Errorf("invalid configuration: %q failed %q validation", first.Namespace(), first.Tag())
	}
	return fmt.Errorf("invalid configuration: %w", err)
}
