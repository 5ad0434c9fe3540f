package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// ProviderConfig defines the market data provider endpoint.
type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// IngestConfig holds the knobs of the ingestion pipeline. The struct is
// passed by value into the orchestrator and fetcher constructors, so the
// pipeline never reads ambient process state.
type IngestConfig struct {
	LookbackDays int           `mapstructure:"lookback_days"` // trailing window to cover, in days
	MaxRetries   int           `mapstructure:"max_retries"`   // extra fetch attempts after the first
	RetryDelay   time.Duration `mapstructure:"retry_delay"`   // pause between fetch attempts
	Concurrency  int           `mapstructure:"concurrency"`   // symbols processed in parallel (1 = sequential)
}

// ScheduleConfig configures the daemon-mode cron trigger.
type ScheduleConfig struct {
	IngestCron string `mapstructure:"ingest_cron"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// Load loads application configuration using Viper.
// It reads from config.yaml and overrides with environment variables.
// Every ingestion knob carries a default, so a missing config file is
// acceptable as long as the postgres connection comes from the environment.
func Load() *Config {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	ex, _ := os.Executable()
	if strings.Contains(ex, "go-build") {
		pwd, _ := os.Getwd()
		v.AddConfigPath(filepath.Join(pwd, "../../config"))
	} else {
		v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
	}

	v.SetDefault("provider.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("provider.timeout", 30*time.Second)
	v.SetDefault("ingest.lookback_days", 7)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.retry_delay", 5*time.Second)
	v.SetDefault("ingest.concurrency", 1)
	v.SetDefault("schedule.ingest_cron", "0 30 15 * * 1-5")
	v.SetDefault("log.level", "info")

	// Support environment variables with dot notation (e.g., POSTGRES_HOST)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("failed to read config: %v", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
