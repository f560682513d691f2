package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Processing ProcessingConfig `mapstructure:"processing"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig covers the metrics/health listener only; the processor has no
// producer-facing HTTP surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

type ProcessingConfig struct {
	// Bucket is the object bucket staged payloads are read from.
	Bucket string `mapstructure:"bucket"`

	// EnrichmentConcurrency bounds concurrent trip-match lookups per
	// payload.
	EnrichmentConcurrency int `mapstructure:"enrichment_concurrency"`

	// DiagnosticTTL is how long quarantined diagnostics live before the
	// store prunes them.
	DiagnosticTTL time.Duration `mapstructure:"diagnostic_ttl"`

	// EnableCancellations gates persistence of cancellation records.
	EnableCancellations bool `mapstructure:"enable_cancellations"`

	// Stage selects the deployment stage ("local" relaxes credential
	// handling for development; it does not change business logic).
	Stage string `mapstructure:"stage"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 8081)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("database.url", "")
	v.SetDefault("database.migrations_path", "file://processor/migrations")
	v.SetDefault("processing.bucket", "")
	v.SetDefault("processing.enrichment_concurrency", 8)
	v.SetDefault("processing.diagnostic_ttl", 72*time.Hour)
	v.SetDefault("processing.enable_cancellations", true)
	v.SetDefault("processing.stage", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/avl/processor")
	}

	// Environment variables override, e.g. PROCESSOR_PROCESSING_BUCKET
	v.SetEnvPrefix("PROCESSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Processing.Bucket == "" {
		return nil, fmt.Errorf("processing.bucket must be set")
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url must be set")
	}

	return &cfg, nil
}
