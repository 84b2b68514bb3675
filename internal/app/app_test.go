package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"fleet-analytics-service/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database:  config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(dir, "fleet.db")},
		Model:     config.ModelConfig{Path: filepath.Join(dir, "model.json"), EnableRegression: true, ConfidenceMargin: 25},
		Optimizer: config.OptimizerConfig{MaxPerVehicle: 10, MinutesSavedPerDelivery: 15},
	}
}

func TestNewWiresLocalAdapters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Model.ExportPath = filepath.Join(t.TempDir(), "train.parquet")

	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if a.Predictor.IsTrained() {
		t.Error("predictor trained without an artifact")
	}
	if got := a.Predictor.Info().Location; got != cfg.Model.Path {
		t.Errorf("artifact location = %q, want %q", got, cfg.Model.Path)
	}
	if a.Export == nil {
		t.Error("exporter not wired despite export_path")
	}

	sum := a.Optimizer.GetOptimizationSummary(context.Background())
	if sum.PendingDeliveries != 0 {
		t.Errorf("summary on empty db = %+v", sum)
	}
}

func TestNewRejectsBadDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := New(context.Background(), cfg, slog.Default()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestPredictorConfigCarriesFlags(t *testing.T) {
	pc := predictorConfig(config.ModelConfig{EnableRegression: false, EnableEnsemble: true, WeakR2: 0.5, ConfidenceMargin: 10})
	if pc.EnableRegression || !pc.EnableEnsemble || pc.WeakR2 != 0.5 || pc.ConfidenceMargin != 10 {
		t.Errorf("predictor config = %+v", pc)
	}
	if pc.MinimumMinutes != 10 {
		t.Errorf("minimum = %v, want default 10", pc.MinimumMinutes)
	}
}
