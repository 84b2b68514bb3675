package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Optimizer.MaxPerVehicle != 10 {
		t.Errorf("max_per_vehicle = %d, want 10", cfg.Optimizer.MaxPerVehicle)
	}
	if cfg.Optimizer.MinutesSavedPerDelivery != 15 {
		t.Errorf("minutes_saved_per_delivery = %v, want 15", cfg.Optimizer.MinutesSavedPerDelivery)
	}
	if cfg.Model.ConfidenceMargin != 25 {
		t.Errorf("confidence_margin = %v, want 25", cfg.Model.ConfidenceMargin)
	}
	if cfg.Redis.SummaryTTL != 30*time.Second {
		t.Errorf("summary_ttl = %v, want 30s", cfg.Redis.SummaryTTL)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fleet.yaml")
	body := []byte("database:\n  driver: pgx\n  url: postgres://file\noptimizer:\n  max_per_vehicle: 6\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("DATABASE_URL", "postgres://env")
	t.Setenv("REDIS_SUMMARY_TTL", "2m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "pgx" {
		t.Errorf("driver = %q, want pgx", cfg.Database.Driver)
	}
	if cfg.Database.URL != "postgres://env" {
		t.Errorf("url = %q, want env override", cfg.Database.URL)
	}
	if cfg.Optimizer.MaxPerVehicle != 6 {
		t.Errorf("max_per_vehicle = %d, want 6", cfg.Optimizer.MaxPerVehicle)
	}
	if cfg.Redis.SummaryTTL != 2*time.Minute {
		t.Errorf("summary_ttl = %v, want 2m", cfg.Redis.SummaryTTL)
	}
}

func TestLoadFlatEnvNames(t *testing.T) {
	t.Setenv("MODEL_EXPORT_PATH", "out/train.parquet")
	t.Setenv("MODEL_BUCKET", "models")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.ExportPath != "out/train.parquet" {
		t.Errorf("export_path = %q", cfg.Model.ExportPath)
	}
	if cfg.Model.S3Bucket != "models" {
		t.Errorf("s3_bucket = %q", cfg.Model.S3Bucket)
	}
	if cfg.Kafka.Brokers != "k1:9092,k2:9092" {
		t.Errorf("brokers = %q", cfg.Kafka.Brokers)
	}
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := &Config{
		Database:  DatabaseConfig{Driver: "mysql", URL: "x"},
		Optimizer: OptimizerConfig{MaxPerVehicle: 1},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGet(t *testing.T) {
	t.Setenv("FLEET_TEST_KEY", "value")
	if got := Get("FLEET_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("Get = %q, want value", got)
	}
	if got := Get("FLEET_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("Get = %q, want fallback", got)
	}
}
