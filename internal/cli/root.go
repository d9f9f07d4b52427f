// Package cli implements the pplp command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/funmoney-network/pplp/internal/daemon"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "pplp",
	Short: "FUN Money proof-of-positive-action core",
	Long: `pplp runs the FUN Money token-economy core: it scores positive
actions across the five pillars, validates mint preconditions against the
on-chain contract, coordinates multi-group attester signatures, and keeps
the off-chain wallet ledger.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default $PPLP_HOME/config.toml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file from the --config flag or the default path.
func loadConfig() (daemon.Config, error) {
	return daemon.Load(configPath)
}
