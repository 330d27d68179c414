package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "La Brasa Burger sales dashboard and ETL",
	Long: `salesdash pulls the Saipos sales export, normalizes it into valid and
cancelled orders, keeps them in a sheet-backed store and serves the
dashboard reports and the Oráculo chat over HTTP.

Run it as a server with "run", or drive the ETL from the command line
with "sync", "normalize" and "geocode".`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: config.yaml in ./deploy, ., $HOME/.salesdash, /etc/salesdash)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
