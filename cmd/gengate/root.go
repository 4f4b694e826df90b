package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gengate",
	Short: "Entitlement gate for image and video generation",
	Long: `Gengate decides who may generate what: it verifies credentials,
enforces plan limits and credit balances, and keeps cached subscription
state in line with the billing system.

Quick start:
  gengate serve           # Start the API server
  gengate serve --dev     # In-memory stores, unsigned webhooks

Management:
  gengate plans           # Show the configured plan catalog
  gengate token           # Mint a local token for testing`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "gengate.yaml", "config file path")
}
