package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "11111111111111111111111111111111"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	t.Setenv("SOLANA_PUBLIC_KEY", testWallet)
}

func TestLoad_ValidConfig(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, []string{testWallet}, cfg.TrackedWallets)
	assert.Equal(t, "127.0.0.1:3030", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)            // Default
	assert.Equal(t, "transactions.txt", cfg.StorePath)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 400*time.Millisecond, cfg.SlotDuration)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.EpochFilter)
	assert.True(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.NATSURL)
	assert.Equal(t, SchedulerLocal, cfg.Scheduler)
}

func TestLoad_MissingSolanaRPCURL(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("SOLANA_PUBLIC_KEY", testWallet)

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
}

func TestLoad_ReportsAllProblems(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("SOLANA_PUBLIC_KEY", "")
	t.Setenv("POLL_INTERVAL", "often")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
	assert.Contains(t, err.Error(), "SOLANA_PUBLIC_KEY is required")
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_InvalidWallet(t *testing.T) {
	setRequired(t)
	t.Setenv("SOLANA_PUBLIC_KEY", testWallet+",not-base58!")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid address "not-base58!"`)
}

func TestLoad_InvalidBool(t *testing.T) {
	setRequired(t)
	t.Setenv("EPOCH_FILTER", "maybe")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid boolean")
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SOLANA_RPC_URL", "https://a.example.com, https://b.example.com ,")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_PATH", "/var/lib/solagg/txns.jsonl")
	t.Setenv("POLL_INTERVAL", "1m")
	t.Setenv("FETCH_TIMEOUT", "30s")
	t.Setenv("EPOCH_FILTER", "false")
	t.Setenv("METRICS_ENABLED", "0")
	t.Setenv("NATS_URL", "nats://localhost:4222")
	t.Setenv("SCHEDULER", SchedulerTemporal)
	t.Setenv("TEMPORAL_TASK_QUEUE", "custom-queue")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/solagg/txns.jsonl", cfg.StorePath)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.EpochFilter)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Equal(t, SchedulerTemporal, cfg.Scheduler)
	assert.Equal(t, "localhost:7233", cfg.TemporalHost)
	assert.Equal(t, "custom-queue", cfg.TemporalTaskQueue)
}

func TestLoad_UnknownScheduler(t *testing.T) {
	setRequired(t)
	t.Setenv("SCHEDULER", "cron")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Scheduler must be")
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "")
	t.Setenv("SOLANA_PUBLIC_KEY", "")

	assert.Panics(t, func() { MustLoad() })
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SolanaRPCURLs:  []string{"https://api.mainnet-beta.solana.com"},
			TrackedWallets: []string{testWallet},
			StorePath:      "transactions.txt",
			PollInterval:   10 * time.Second,
			FetchTimeout:   10 * time.Second,
			SlotDuration:   400 * time.Millisecond,
			Scheduler:      SchedulerLocal,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no rpc urls", mutate: func(c *Config) { c.SolanaRPCURLs = nil }, wantErr: "SolanaRPCURLs is required"},
		{name: "no wallets", mutate: func(c *Config) { c.TrackedWallets = nil }, wantErr: "TrackedWallets is required"},
		{name: "no store path", mutate: func(c *Config) { c.StorePath = "" }, wantErr: "StorePath is required"},
		{name: "poll interval too short", mutate: func(c *Config) { c.PollInterval = 500 * time.Millisecond }, wantErr: "at least 1 second"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.FetchTimeout = 0 }, wantErr: "FetchTimeout must be positive"},
		{name: "temporal without queue", mutate: func(c *Config) {
			c.Scheduler = SchedulerTemporal
			c.TemporalHost = "localhost:7233"
			c.TemporalNamespace = "default"
		}, wantErr: "TemporalTaskQueue is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
