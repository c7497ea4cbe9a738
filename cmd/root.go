package cmd

import (
	"os"
	"strings"

	"vault-bootstrap/cmd/agent"
	"vault-bootstrap/cmd/status"
	"vault-bootstrap/cmd/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	CFG_FLAG_NAME = "config"
)

var RootCmd = &cobra.Command{
	Use:   "vault-bootstrap",
	Short: "Bootstrap and unlock a Vault server from a clustered agent",
	Long: `vault-bootstrap drives the lifecycle of a local Vault server: it initializes
a fresh server, unseals it with keys shared through the cluster state store,
and provisions the constrained access role the local agent authenticates as.
Only the elected cluster leader initializes or provisions; every peer unseals.`,
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d, b string) {
	version.SetVersionInfo(v, c, d, b)
	RootCmd.Version = version.GetVersion()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&cfgFile, CFG_FLAG_NAME, "c", "", "path to config file")

	viper.BindPFlag(CFG_FLAG_NAME, RootCmd.PersistentFlags().Lookup(CFG_FLAG_NAME))
	viper.SetConfigName(cfgFile)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("vault_bootstrap")
	viper.AddConfigPath(".")                      // For running from project root
	viper.AddConfigPath("/etc/vault-bootstrap/")  // For production
	viper.AddConfigPath("$HOME/.vault-bootstrap") // For user-specific config

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	RootCmd.AddCommand(agent.AgentCmd)
	RootCmd.AddCommand(status.StatusCmd)
	RootCmd.AddCommand(version.VersionCmd)
}
