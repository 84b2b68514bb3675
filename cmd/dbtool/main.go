package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"fleet-analytics-service/internal/adapters/repositories"
	"fleet-analytics-service/internal/config"
	"fleet-analytics-service/internal/platform/db"
	"fleet-analytics-service/internal/platform/obs"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "dbtool",
	Short:        "Create the delivery schema and load seed data",
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create tables and indexes if they do not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(conn *sql.DB, cfg *config.Config, logger *slog.Logger) error {
			logger.Info("initializing database schema", "driver", cfg.Database.Driver)
			if err := repositories.InitSchema(conn); err != nil {
				return err
			}
			logger.Info("schema ready")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load vehicles and orders from a JSON seed file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		return withDB(func(conn *sql.DB, cfg *config.Config, logger *slog.Logger) error {
			if err := repositories.InitSchema(conn); err != nil {
				return err
			}
			logger.Info("seeding database", "file", path)
			if err := repositories.SeedFromJSON(conn, repositories.DialectFor(cfg.Database.Driver), path); err != nil {
				return err
			}
			logger.Info("seeding complete")
			return nil
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Insert synthetic delivery history plus today's pending orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := GenerateOptions{Now: time.Now()}
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
		opts.Vehicles, _ = cmd.Flags().GetInt("vehicles")
		opts.Stores, _ = cmd.Flags().GetInt("stores")
		opts.Days, _ = cmd.Flags().GetInt("days")
		opts.OrdersPerDay, _ = cmd.Flags().GetInt("orders-per-day")
		opts.Pending, _ = cmd.Flags().GetInt("pending")

		return withDB(func(conn *sql.DB, cfg *config.Config, logger *slog.Logger) error {
			if err := repositories.InitSchema(conn); err != nil {
				return err
			}
			seed := Generate(opts)
			bar := progressbar.Default(int64(len(seed.Vehicles)+len(seed.Orders)), "seeding")
			err := repositories.InsertSeed(context.Background(), conn, repositories.DialectFor(cfg.Database.Driver), seed, func() {
				_ = bar.Add(1)
			})
			if err != nil {
				return err
			}
			_ = bar.Finish()
			logger.Info("generated data", "vehicles", len(seed.Vehicles), "orders", len(seed.Orders))
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")

	seedCmd.Flags().String("file", config.Get("SEED_PATH", "data/seeds/fleet.json"), "seed file path")

	generateCmd.Flags().Int64("seed", 42, "random seed")
	generateCmd.Flags().Int("vehicles", 8, "number of vehicles")
	generateCmd.Flags().Int("stores", 12, "number of stores")
	generateCmd.Flags().Int("days", 120, "days of completed history")
	generateCmd.Flags().Int("orders-per-day", 20, "completed orders per day")
	generateCmd.Flags().Int("pending", 25, "pending orders for today")

	rootCmd.AddCommand(initCmd, seedCmd, generateCmd)
}

func withDB(fn func(conn *sql.DB, cfg *config.Config, logger *slog.Logger) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger := obs.NewLogger(cfg.Log.Level)

	conn, err := db.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn, cfg, logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
