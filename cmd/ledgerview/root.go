package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ledgerview/internal/cli"
	"ledgerview/internal/config"
	"ledgerview/internal/log"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ledgerview",
	Short: "Tenant-scoped lists of expenses, invoices, purchase orders and sale receipts",
	Long: `ledgerview serves per-company document lists over HTTP.

Each caller picks a company and sees the invoices, purchase orders and
sale receipts that belong to it, plus the expenses they recorded
themselves. Lists reload when the company or signed-in user changes.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, listCmd, seedCmd, migrateCmd)
}

// bootstrap loads and validates configuration and installs the logger.
func bootstrap() (*config.Config, *log.Logger, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.SetupLogger(cfg), nil
}
