package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

var envVars = []string{
	"BINANCE_EXPORTER_CONFIG", "BINANCE_KEY", "BINANCE_SECRET", "BINANCE_EXPORTER_PORT",
	"BINANCE_EXPORTER_NAME", "BINANCE_EXPORTER_LOGLEVEL", "BINANCE_EXPORTER_LOG_FILE", "TZ",
	"BINANCE_API_ENDPOINT", "BINANCE_EXPORTER_RECV_WINDOW", "BINANCE_EXPORTER_REQUEST_TIMEOUT",
	"BINANCE_EXPORTER_SERVER_TIME", "BINANCE_EXPORTER_RATE_LIMIT", "BINANCE_EXPORTER_WALLETS",
	"BINANCE_EXPORTER_INCLUDE_ZERO", "BINANCE_EXPORTER_MAX_RETRIES", "BINANCE_EXPORTER_RETRY_INTERVAL",
	"BINANCE_EXPORTER_CACHE_TTL", "BINANCE_EXPORTER_STALE_ON_ERROR", "BINANCE_EXPORTER_SCRAPE_TIMEOUT",
}

// clearEnv unsets every variable the flags read, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func runCLI(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var (
		cfg    Config
		cfgErr error
	)
	app := &cli.App{
		Name:  "binance-exporter",
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			cfg, cfgErr = FromCLI(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"binance-exporter"}, args...)))
	return cfg, cfgErr
}

func validConfig() Config {
	cfg := Defaults()
	cfg.Credentials = domain.NewCredentials("key", "secret")
	return cfg
}

func TestFromCLI_EnvironmentOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("BINANCE_KEY", "key")
	t.Setenv("BINANCE_SECRET", "secret")
	t.Setenv("BINANCE_EXPORTER_NAME", "my-exporter")
	t.Setenv("BINANCE_EXPORTER_PORT", "9000")
	t.Setenv("BINANCE_EXPORTER_LOGLEVEL", "debug")
	t.Setenv("BINANCE_EXPORTER_WALLETS", "spot,earn")

	cfg, err := runCLI(t)
	require.NoError(t, err)

	assert.Equal(t, domain.NewCredentials("key", "secret"), cfg.Credentials)
	assert.Equal(t, "my-exporter", cfg.JobName)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"spot", "earn"}, cfg.Wallets)
	assert.Equal(t, 5*time.Second, cfg.RecvWindow)
	assert.True(t, cfg.ServerTime)
	assert.True(t, cfg.IncludeZero)
	assert.Zero(t, cfg.CacheTTL)
}

func TestFromCLI_MissingCredentials(t *testing.T) {
	clearEnv(t)

	_, err := runCLI(t)
	var cfgErr *domain.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BINANCE_KEY", cfgErr.Field)

	t.Setenv("BINANCE_KEY", "key")
	_, err = runCLI(t)
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "BINANCE_SECRET", cfgErr.Field)
}

func TestFromCLI_Precedence(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9100
job_name: from-file
cache_ttl: 30s
stale_on_error: true
include_zero: false
wallets: [funding]
`), 0o600))
	t.Setenv("BINANCE_KEY", "key")
	t.Setenv("BINANCE_SECRET", "secret")
	t.Setenv("BINANCE_EXPORTER_NAME", "from-env")

	cfg, err := runCLI(t, "--config", path, "--port", "9200")
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, "from-env", cfg.JobName)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.StaleOnError)
	assert.False(t, cfg.IncludeZero)
	assert.Equal(t, []string{"funding"}, cfg.Wallets)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := Defaults()
		assert.Error(t, LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [1"), 0o600))
		cfg := Defaults()

		var cfgErr *domain.ConfigurationError
		assert.ErrorAs(t, LoadFile(path, &cfg), &cfgErr)
	})

	t.Run("credentials are ignored in yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "creds.yaml")
		require.NoError(t, os.WriteFile(path, []byte("credentials: {apikey: x}\nport: 1234\n"), 0o600))
		cfg := Defaults()

		require.NoError(t, LoadFile(path, &cfg))
		assert.Equal(t, 1234, cfg.Port)
		assert.Empty(t, cfg.Credentials.APIKey)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "port zero", modify: func(c *Config) { c.Port = 0 }, field: "port"},
		{name: "port too large", modify: func(c *Config) { c.Port = 70000 }, field: "port"},
		{name: "empty job", modify: func(c *Config) { c.JobName = " " }, field: "job_name"},
		{name: "unknown log level", modify: func(c *Config) { c.LogLevel = "loud" }, field: "log_level"},
		{name: "unknown timezone", modify: func(c *Config) { c.Timezone = "Mars/Olympus" }, field: "timezone"},
		{name: "bad base url", modify: func(c *Config) { c.BaseURL = "api.binance.com" }, field: "base_url"},
		{name: "recv window too large", modify: func(c *Config) { c.RecvWindow = time.Minute + time.Millisecond }, field: "recv_window"},
		{name: "zero request timeout", modify: func(c *Config) { c.RequestTimeout = 0 }, field: "request_timeout"},
		{name: "negative rate limit", modify: func(c *Config) { c.RateLimit = -1 }, field: "rate_limit"},
		{name: "unknown wallet", modify: func(c *Config) { c.Wallets = []string{"margin"} }, field: "wallets"},
		{name: "no wallet", modify: func(c *Config) { c.Wallets = nil }, field: "wallets"},
		{name: "negative retries", modify: func(c *Config) { c.MaxRetries = -1 }, field: "max_retries"},
		{name: "negative cache ttl", modify: func(c *Config) { c.CacheTTL = -time.Second }, field: "cache_ttl"},
		{name: "stale without cache", modify: func(c *Config) { c.StaleOnError = true }, field: "stale_on_error"},
		{name: "zero scrape timeout", modify: func(c *Config) { c.ScrapeTimeout = 0 }, field: "scrape_timeout"},
	}

	require.NoError(t, validConfig().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			var cfgErr *domain.ConfigurationError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestWalletTypes(t *testing.T) {
	cfg := validConfig()
	cfg.Wallets = []string{"EARN", " spot ", "earn"}

	wallets, err := cfg.WalletTypes()
	require.NoError(t, err)
	assert.Equal(t, []domain.Wallet{domain.WalletSpot, domain.WalletEarn}, wallets)
}
