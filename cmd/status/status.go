package status

import (
	"fmt"

	"vault-bootstrap/internal/config"
	"vault-bootstrap/internal/core"
	"vault-bootstrap/pkg/log"

	"github.com/spf13/cobra"
)

var StatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Print server health and the restart-gate decision",
	Example: `vault-bootstrap status --config /path/to/config.yaml`,
	Run:     runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) {
	appConfig, err := config.NewConfig()
	if err != nil {
		log.Logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)
	logger := log.Logger.With().Str("component", "status").Logger()

	wiring := core.NewWiring(appConfig)
	ctx := cmd.Context()

	probe := wiring.InitHealthProbe()
	health, err := probe.Probe(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error probing server health")
		return
	}

	gate := wiring.InitRestartGate()
	safe, err := gate.CanRestart(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error evaluating restart gate")
		return
	}

	apiURL, clusterURL, err := wiring.AdvertisedURLs()
	if err != nil {
		logger.Error().Err(err).Msg("Error resolving binding addresses")
		return
	}

	fmt.Printf("initialized:     %t\n", health.Initialized)
	fmt.Printf("sealed:          %t\n", health.Sealed)
	fmt.Printf("standby:         %t\n", health.Standby)
	fmt.Printf("version:         %s\n", health.Version)
	fmt.Printf("cluster:         %s\n", health.ClusterName)
	fmt.Printf("safe to restart: %t\n", safe)
	fmt.Printf("api url:         %s\n", apiURL)
	fmt.Printf("cluster url:     %s\n", clusterURL)
}
