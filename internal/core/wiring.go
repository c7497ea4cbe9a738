package core

import (
	"os"
	"sync"

	"vault-bootstrap/internal/bootstrap"
	"vault-bootstrap/internal/cluster"
	"vault-bootstrap/internal/config"
	"vault-bootstrap/internal/netbind"
	"vault-bootstrap/internal/supervisor"
	"vault-bootstrap/internal/vault"
	"vault-bootstrap/pkg/db"
	"vault-bootstrap/pkg/db/migrations"
	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

type Wiring struct {
	config *config.Config
	logger zerolog.Logger

	datastoreOnce sync.Once
	datastore     *db.PostgresDatastore

	clientOnce sync.Once
	client     *vault.Client

	storeOnce sync.Once
	store     *cluster.PostgresStore
}

func NewWiring(cfg *config.Config) *Wiring {
	return &Wiring{
		config: cfg,
		logger: log.Logger.With().Str("component", "wiring").Logger(),
	}
}

func (w *Wiring) GetConfig() *config.Config {
	return w.config
}

func (w *Wiring) InitPostgresDataStore() *db.PostgresDatastore {
	w.datastoreOnce.Do(func() {
		var err error
		w.datastore, err = db.NewPostgresDatastore(&w.config.Postgres, migrations.NewPostgresMigration())
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to create Postgres datastore")
			os.Exit(-1)
		}
	})
	return w.datastore
}

func (w *Wiring) InitClusterStore() *cluster.PostgresStore {
	w.storeOnce.Do(func() {
		w.store = cluster.NewPostgresStore(w.InitPostgresDataStore(), w.config.ID)
	})
	return w.store
}

// InitVaultClient builds the client for the fixed loopback admin endpoint.
// All initialize/unseal/provisioning traffic stays on localhost.
func (w *Wiring) InitVaultClient() *vault.Client {
	w.clientOnce.Do(func() {
		var err error
		w.client, err = vault.NewClient(vault.LocalAdminURL, "", w.config.TLSCertFile)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to create vault client")
			os.Exit(-1)
		}
	})
	return w.client
}

func (w *Wiring) InitHealthProbe() *vault.HealthProbe {
	policy := vault.RetryPolicy{
		MaxAttempts:  w.config.Probe.MaxAttempts,
		InitialDelay: w.config.Probe.InitialDelay,
		MaxDelay:     w.config.Probe.MaxDelay,
	}
	return vault.NewHealthProbe(w.InitVaultClient(), policy)
}

func (w *Wiring) InitSupervisor() supervisor.Supervisor {
	return supervisor.NewSystemdSupervisor()
}

func (w *Wiring) InitProvisioner() *bootstrap.Provisioner {
	return bootstrap.NewProvisioner(w.InitVaultClient(), w.InitClusterStore())
}

func (w *Wiring) InitCoordinator() *bootstrap.Coordinator {
	store := w.InitClusterStore()
	return bootstrap.NewCoordinator(bootstrap.CoordinatorParams{
		API:         w.InitVaultClient(),
		Probe:       w.InitHealthProbe(),
		Store:       store,
		Election:    store,
		Supervisor:  w.InitSupervisor(),
		Provisioner: w.InitProvisioner(),
		ServiceName: w.config.ServiceName,
		Shares:      w.config.Init.Shares,
		Threshold:   w.config.Init.Threshold,
	})
}

func (w *Wiring) InitRestartGate() *bootstrap.RestartGate {
	return bootstrap.NewRestartGate(
		w.InitVaultClient(),
		w.InitSupervisor(),
		w.config.ServiceName,
		w.config.UnsafeAutoUnlock,
	)
}

// InitBindingResolver builds the ordered resolution chain: configured
// override, named interface, generic private address.
func (w *Wiring) InitBindingResolver() *netbind.Resolver {
	return netbind.NewResolver(
		netbind.StaticOverride{Addresses: map[string]string{
			netbind.BindingAccess:  w.config.Binding.AccessAddress,
			netbind.BindingCluster: w.config.Binding.ClusterAddress,
		}},
		netbind.InterfaceAddress{Interface: w.config.Binding.Interface},
		netbind.PrivateAddress{},
	)
}

// AdvertisedURLs resolves the access and cluster bindings into the
// peer-facing api and cluster URLs. Protocol is https once the configured
// TLS certificate exists on disk, plain http before that.
func (w *Wiring) AdvertisedURLs() (apiURL, clusterURL string, err error) {
	resolver := w.InitBindingResolver()

	accessAddress, err := resolver.Resolve(netbind.BindingAccess)
	if err != nil {
		return "", "", err
	}
	clusterAddress, err := resolver.Resolve(netbind.BindingCluster)
	if err != nil {
		return "", "", err
	}

	tlsAvailable := vault.TLSAvailable(w.config.TLSCertFile)
	return vault.APIAddr(accessAddress, tlsAvailable), vault.ClusterAddr(clusterAddress, tlsAvailable), nil
}
