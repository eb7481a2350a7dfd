package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"RegimeEdge/internal/di"
	"RegimeEdge/internal/domain/models"
	"RegimeEdge/pkg/config"
	"RegimeEdge/pkg/server"

	"github.com/spf13/cobra"
)

var (
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "regimeedge",
	Short: "Regime-gated lead-lag trading signal",
	Long: `RegimeEdge derives a LONG / SHORT / FLAT stance for a target asset from the
latest move of a leading asset, gated by a rolling Granger causality regime.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard, report, JSON API and signal stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(false)
		if err != nil {
			return err
		}
		return app.Run()
	},
}

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Compute the current signal once and print it as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(true)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		sig := app.Signals().ComputeSignal(ctx)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(models.NewSignalResponse(sig))
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the strategy report with the current regime",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(true)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		_, err = fmt.Fprint(cmd.OutOrStdout(), app.Report(ctx).Text())
		return err
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Copy daily and intraday closes from Yahoo into ClickHouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(true)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		res, err := app.Backfill(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %d daily and %d intraday closes\n", res.Daily, res.Intraday)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "timeout for one-shot commands")
	rootCmd.AddCommand(serveCmd, signalCmd, reportCmd, backfillCmd)
}

// buildApp loads config and wires the app. One-shot commands keep stdout for their output.
func buildApp(oneShot bool) (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if oneShot && cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
