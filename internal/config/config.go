package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "pgx"
	URL    string `mapstructure:"url"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type ModelConfig struct {
	Path             string  `mapstructure:"path"`
	S3Bucket         string  `mapstructure:"s3_bucket"`
	S3Key            string  `mapstructure:"s3_key"`
	S3Region         string  `mapstructure:"s3_region"`
	ExportPath       string  `mapstructure:"export_path"`
	EnableRegression bool    `mapstructure:"enable_regression"`
	EnableEnsemble   bool    `mapstructure:"enable_ensemble"`
	WeakR2           float64 `mapstructure:"weak_r2"`
	ConfidenceMargin float64 `mapstructure:"confidence_margin"`
}

type OptimizerConfig struct {
	MaxPerVehicle           int     `mapstructure:"max_per_vehicle"`
	MinutesSavedPerDelivery float64 `mapstructure:"minutes_saved_per_delivery"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl"`
}

type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Model     ModelConfig     `mapstructure:"model"`
	Optimizer OptimizerConfig `mapstructure:"optimizer"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Log       LogConfig       `mapstructure:"log"`
}

// Load reads configuration from cfgFile (optional), a local .env file and the
// environment, in increasing order of precedence.
func Load(cfgFile string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindLegacyEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", cfgFile, err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("load config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "data/fleet.db")
	v.SetDefault("server.port", "8080")
	v.SetDefault("model.path", "data/delivery_model.json")
	v.SetDefault("model.s3_key", "models/delivery_model.json")
	v.SetDefault("model.s3_region", "us-east-1")
	v.SetDefault("model.enable_regression", true)
	v.SetDefault("model.enable_ensemble", true)
	v.SetDefault("model.weak_r2", 0.3)
	v.SetDefault("model.confidence_margin", 25.0)
	v.SetDefault("optimizer.max_per_vehicle", 10)
	v.SetDefault("optimizer.minutes_saved_per_delivery", 15.0)
	v.SetDefault("redis.summary_ttl", "30s")
	v.SetDefault("kafka.topic", "fleet.assignments")
	v.SetDefault("log.level", "info")
}

// Flat variable names used by the deployment scripts.
func bindLegacyEnv(v *viper.Viper) {
	pairs := map[string]string{
		"database.url":      "DATABASE_URL",
		"database.driver":   "DB_DRIVER",
		"server.port":       "PORT",
		"model.path":        "MODEL_PATH",
		"model.s3_bucket":   "MODEL_BUCKET",
		"model.export_path": "MODEL_EXPORT_PATH",
		"redis.addr":        "REDIS_ADDR",
		"kafka.brokers":     "KAFKA_BROKERS",
		"log.level":         "LOG_LEVEL",
	}
	for key, env := range pairs {
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite or pgx, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url is required")
	}
	if c.Optimizer.MaxPerVehicle < 1 {
		return fmt.Errorf("optimizer.max_per_vehicle must be positive, got %d", c.Optimizer.MaxPerVehicle)
	}
	if c.Model.ConfidenceMargin < 0 {
		return fmt.Errorf("model.confidence_margin must not be negative, got %v", c.Model.ConfidenceMargin)
	}
	return nil
}

// Get returns the environment variable key, or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
