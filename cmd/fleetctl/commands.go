package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fleet-analytics-service/internal/app"
	"fleet-analytics-service/internal/services"
)

// --- model ---

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the delivery-time model on the last twelve months of history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := services.TrainModel(ctx, a.Repo, a.Predictor, services.TrainOptions{
				Now:    time.Now(),
				Export: a.Export,
				Logger: a.Logger,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), report)
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare predictions with recent completed deliveries",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			ev, err := services.EvaluateRecent(ctx, a.Repo, a.Predictor, services.EvaluateOptions{
				Now:   time.Now(),
				Days:  days,
				Limit: limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ev)
		})
	},
}

var importanceCmd = &cobra.Command{
	Use:   "importance",
	Short: "List feature weights of the trained model",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if !a.Predictor.IsTrained() {
				return services.ErrNotTrained
			}
			for _, fw := range a.Predictor.FeatureImportance() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %10.4f\n", fw.Name, fw.Weight)
			}
			return nil
		})
	},
}

// --- optimizer ---

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Assign today's pending deliveries to available vehicles",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxPer, _ := cmd.Flags().GetInt("max")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res := a.Optimizer.OptimizeRoutes(ctx, maxPer)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("optimize: %s", res.Message)
			}
			return nil
		})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show pending work and available vehicles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return printJSON(cmd.OutOrStdout(), a.Optimizer.GetOptimizationSummary(ctx))
		})
	},
}

var suggestCmd = &cobra.Command{
	Use:   "suggest STORE_ID...",
	Short: "Recommend a vehicle and time estimates for a set of stores",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var ids []string
		for _, arg := range args {
			ids = append(ids, strings.Split(arg, ",")...)
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			s, err := a.Optimizer.SuggestRoute(ctx, ids)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		})
	},
}

func init() {
	trainCmd.Flags().String("export", "", "also write the training set to this parquet file")
	evaluateCmd.Flags().Int("days", 90, "look-back window in days")
	evaluateCmd.Flags().Int("limit", 15, "number of most recent deliveries to score")
	optimizeCmd.Flags().Int("max", 0, "per-vehicle cap (0 uses the configured value)")
}
