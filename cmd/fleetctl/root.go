package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fleet-analytics-service/internal/app"
	"fleet-analytics-service/internal/config"
	"fleet-analytics-service/internal/platform/obs"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "Train delivery-time models and run fleet assignment from the command line",
	Long: `fleetctl operates on the same database and model artifact as the server.

Examples:
  fleetctl train --export data/training.parquet
  fleetctl evaluate
  fleetctl optimize --max 8
  fleetctl summary`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(trainCmd, evaluateCmd, importanceCmd, optimizeCmd, summaryCmd, suggestCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, builds the application and hands it to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if export, _ := cmd.Flags().GetString("export"); export != "" {
		cfg.Model.ExportPath = export
	}

	logger := obs.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)
	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
