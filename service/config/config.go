package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Scheduler backends for the fetch loop.
const (
	SchedulerLocal    = "local"
	SchedulerTemporal = "temporal"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr      string
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Store configuration
	StorePath string

	// Solana configuration. Each list may hold several comma-separated values.
	SolanaRPCURLs  []string
	TrackedWallets []string

	// Fetch configuration
	PollInterval time.Duration
	FetchTimeout time.Duration
	SlotDuration time.Duration
	EpochFilter  bool

	// NATS configuration. Empty disables event publishing and the stream endpoints.
	NATSURL string

	// Scheduling configuration
	Scheduler         string
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", "127.0.0.1:3030")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	shutdown, err := parseDuration("SHUTDOWN_TIMEOUT", "5s")
	if err != nil {
		errs = append(errs, err)
	}
	cfg.ShutdownTimeout = shutdown

	metricsEnabled, err := parseBool("METRICS_ENABLED", true)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MetricsEnabled = metricsEnabled

	cfg.StorePath = getEnvOrDefault("STORE_PATH", "transactions.txt")

	// Solana configuration
	cfg.SolanaRPCURLs = splitList(os.Getenv("SOLANA_RPC_URL"))
	if len(cfg.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.TrackedWallets = splitList(os.Getenv("SOLANA_PUBLIC_KEY"))
	if len(cfg.TrackedWallets) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_PUBLIC_KEY is required"))
	}
	for _, w := range cfg.TrackedWallets {
		if _, err := solana.PublicKeyFromBase58(w); err != nil {
			errs = append(errs, fmt.Errorf("SOLANA_PUBLIC_KEY: invalid address %q: %w", w, err))
		}
	}

	// Fetch configuration
	if cfg.PollInterval, err = parseDuration("POLL_INTERVAL", "10s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.FetchTimeout, err = parseDuration("FETCH_TIMEOUT", "10s"); err != nil {
		errs = append(errs, err)
	}
	if cfg.SlotDuration, err = parseDuration("SLOT_DURATION", "400ms"); err != nil {
		errs = append(errs, err)
	}
	if cfg.EpochFilter, err = parseBool("EPOCH_FILTER", true); err != nil {
		errs = append(errs, err)
	}

	// NATS configuration
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Scheduling configuration
	cfg.Scheduler = getEnvOrDefault("SCHEDULER", SchedulerLocal)
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solagg-fetch")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}

	if len(c.TrackedWallets) == 0 {
		errs = append(errs, fmt.Errorf("TrackedWallets is required"))
	}

	if c.StorePath == "" {
		errs = append(errs, fmt.Errorf("StorePath is required"))
	}

	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("PollInterval must be at least 1 second"))
	}

	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("FetchTimeout must be positive"))
	}

	if c.SlotDuration <= 0 {
		errs = append(errs, fmt.Errorf("SlotDuration must be positive"))
	}

	switch c.Scheduler {
	case SchedulerLocal:
	case SchedulerTemporal:
		if c.TemporalHost == "" {
			errs = append(errs, fmt.Errorf("TemporalHost is required"))
		}
		if c.TemporalNamespace == "" {
			errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
		}
		if c.TemporalTaskQueue == "" {
			errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("Scheduler must be %q or %q, got %q", SchedulerLocal, SchedulerTemporal, c.Scheduler))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
