package agent

import (
	"vault-bootstrap/internal/config"
	"vault-bootstrap/internal/core"
	"vault-bootstrap/pkg/log"

	"github.com/spf13/cobra"
)

var AgentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run bootstrap agent operations",
	Long:  `Run the bootstrap agent: reconciliation passes and opportunistic restarts.`,
}

var reconcileCmd = &cobra.Command{
	Use:     "reconcile",
	Short:   "Run one bootstrap reconciliation pass and exit",
	Long:    `Probe server health and, as far as leadership and published secrets allow, initialize, unseal and provision access. Safe to re-run; a ready server is a no-op.`,
	Example: `vault-bootstrap agent reconcile --config /path/to/config.yaml`,
	Run:     runReconcile,
}

var restartCmd = &cobra.Command{
	Use:     "restart",
	Short:   "Restart the vault service if currently safe, else start it",
	Example: `vault-bootstrap agent restart --config /path/to/config.yaml`,
	Run:     runRestart,
}

func init() {
	AgentCmd.AddCommand(reconcileCmd)
	AgentCmd.AddCommand(restartCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) {
	appConfig, err := config.NewConfig()
	if err != nil {
		log.Logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)
	logger := log.Logger.With().Str("component", "agent-reconcile").Logger()

	wiring := core.NewWiring(appConfig)
	ctx := cmd.Context()

	coordinator := wiring.InitCoordinator()
	state, err := coordinator.Reconcile(ctx)
	if err != nil {
		logger.Error().Err(err).Str("state", state.String()).Msg("Reconciliation pass failed")
		return
	}
	logger.Info().Str("state", state.String()).Msg("Reconciliation pass complete")
}

func runRestart(cmd *cobra.Command, _ []string) {
	appConfig, err := config.NewConfig()
	if err != nil {
		log.Logger.Error().Err(err).Msg("Error creating config")
		return
	}
	log.Init(appConfig.ID, appConfig.LogLevel)
	logger := log.Logger.With().Str("component", "agent-restart").Logger()

	wiring := core.NewWiring(appConfig)
	ctx := cmd.Context()

	gate := wiring.InitRestartGate()
	if err := gate.OpportunisticRestart(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during opportunistic restart")
		return
	}
	logger.Info().Msg("Opportunistic restart complete")
}
