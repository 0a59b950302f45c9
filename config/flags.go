package config

import (
	"github.com/urfave/cli/v2"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

const (
	FlagConfig         = "config"
	FlagAPIKey         = "api-key"
	FlagAPISecret      = "api-secret"
	FlagPort           = "port"
	FlagJobName        = "job-name"
	FlagLogLevel       = "log-level"
	FlagLogFile        = "log-file"
	FlagTimezone       = "timezone"
	FlagBaseURL        = "base-url"
	FlagRecvWindow     = "recv-window"
	FlagRequestTimeout = "request-timeout"
	FlagServerTime     = "server-time"
	FlagRateLimit      = "rate-limit"
	FlagWallets        = "wallets"
	FlagIncludeZero    = "include-zero"
	FlagMaxRetries     = "max-retries"
	FlagRetryInterval  = "retry-interval"
	FlagCacheTTL       = "cache-ttl"
	FlagStaleOnError   = "stale-on-error"
	FlagScrapeTimeout  = "scrape-timeout"
)

// Flags returns the command line flags, each bound to its environment variable.
func Flags() []cli.Flag {
	d := Defaults()
	return []cli.Flag{
		&cli.StringFlag{Name: FlagConfig, Usage: "path to yaml config", EnvVars: []string{"BINANCE_EXPORTER_CONFIG"}},
		&cli.StringFlag{Name: FlagAPIKey, Usage: "Binance API key (prefer the environment variable)", EnvVars: []string{"BINANCE_KEY"}},
		&cli.StringFlag{Name: FlagAPISecret, Usage: "Binance API secret (prefer the environment variable)", EnvVars: []string{"BINANCE_SECRET"}},
		&cli.IntFlag{Name: FlagPort, Usage: "listening port", Value: d.Port, EnvVars: []string{"BINANCE_EXPORTER_PORT"}},
		&cli.StringFlag{Name: FlagJobName, Usage: "value of the job label", Value: d.JobName, EnvVars: []string{"BINANCE_EXPORTER_NAME"}},
		&cli.StringFlag{Name: FlagLogLevel, Usage: "debug, info, warn or error", Value: d.LogLevel, EnvVars: []string{"BINANCE_EXPORTER_LOGLEVEL"}},
		&cli.StringFlag{Name: FlagLogFile, Usage: "write rotated logs to this file instead of stdout", EnvVars: []string{"BINANCE_EXPORTER_LOG_FILE"}},
		&cli.StringFlag{Name: FlagTimezone, Usage: "timezone of log timestamps", Value: d.Timezone, EnvVars: []string{"TZ"}},
		&cli.StringFlag{Name: FlagBaseURL, Usage: "Binance REST endpoint", Value: d.BaseURL, EnvVars: []string{"BINANCE_API_ENDPOINT"}},
		&cli.DurationFlag{Name: FlagRecvWindow, Usage: "recvWindow sent with signed requests", Value: d.RecvWindow, EnvVars: []string{"BINANCE_EXPORTER_RECV_WINDOW"}},
		&cli.DurationFlag{Name: FlagRequestTimeout, Usage: "timeout of a single exchange call", Value: d.RequestTimeout, EnvVars: []string{"BINANCE_EXPORTER_REQUEST_TIMEOUT"}},
		&cli.BoolFlag{Name: FlagServerTime, Usage: "sign requests with the exchange clock instead of the local one", Value: d.ServerTime, EnvVars: []string{"BINANCE_EXPORTER_SERVER_TIME"}},
		&cli.Float64Flag{Name: FlagRateLimit, Usage: "max exchange calls per second, 0 disables", Value: d.RateLimit, EnvVars: []string{"BINANCE_EXPORTER_RATE_LIMIT"}},
		&cli.StringSliceFlag{Name: FlagWallets, Usage: "wallet types to export", Value: cli.NewStringSlice(d.Wallets...), EnvVars: []string{"BINANCE_EXPORTER_WALLETS"}},
		&cli.BoolFlag{Name: FlagIncludeZero, Usage: "export zero balances", Value: d.IncludeZero, EnvVars: []string{"BINANCE_EXPORTER_INCLUDE_ZERO"}},
		&cli.IntFlag{Name: FlagMaxRetries, Usage: "retries of a wallet query after a transport error", Value: d.MaxRetries, EnvVars: []string{"BINANCE_EXPORTER_MAX_RETRIES"}},
		&cli.DurationFlag{Name: FlagRetryInterval, Usage: "initial wait between retries", Value: d.RetryInterval, EnvVars: []string{"BINANCE_EXPORTER_RETRY_INTERVAL"}},
		&cli.DurationFlag{Name: FlagCacheTTL, Usage: "share balances between scrapes for this long, 0 disables", Value: d.CacheTTL, EnvVars: []string{"BINANCE_EXPORTER_CACHE_TTL"}},
		&cli.BoolFlag{Name: FlagStaleOnError, Usage: "serve the last good balances when a refresh fails (needs cache-ttl)", Value: d.StaleOnError, EnvVars: []string{"BINANCE_EXPORTER_STALE_ON_ERROR"}},
		&cli.DurationFlag{Name: FlagScrapeTimeout, Usage: "upper bound of one collection pass", Value: d.ScrapeTimeout, EnvVars: []string{"BINANCE_EXPORTER_SCRAPE_TIMEOUT"}},
	}
}

// FromCLI builds the configuration: defaults, then the yaml file, then flags and environment.
// The result is validated.
func FromCLI(c *cli.Context) (Config, error) {
	cfg := Defaults()
	if path := c.String(FlagConfig); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if c.IsSet(FlagPort) {
		cfg.Port = c.Int(FlagPort)
	}
	if c.IsSet(FlagJobName) {
		cfg.JobName = c.String(FlagJobName)
	}
	if c.IsSet(FlagLogLevel) {
		cfg.LogLevel = c.String(FlagLogLevel)
	}
	if c.IsSet(FlagLogFile) {
		cfg.LogFile = c.String(FlagLogFile)
	}
	if c.IsSet(FlagTimezone) {
		cfg.Timezone = c.String(FlagTimezone)
	}
	if c.IsSet(FlagBaseURL) {
		cfg.BaseURL = c.String(FlagBaseURL)
	}
	if c.IsSet(FlagRecvWindow) {
		cfg.RecvWindow = c.Duration(FlagRecvWindow)
	}
	if c.IsSet(FlagRequestTimeout) {
		cfg.RequestTimeout = c.Duration(FlagRequestTimeout)
	}
	if c.IsSet(FlagServerTime) {
		cfg.ServerTime = c.Bool(FlagServerTime)
	}
	if c.IsSet(FlagRateLimit) {
		cfg.RateLimit = c.Float64(FlagRateLimit)
	}
	if c.IsSet(FlagWallets) {
		cfg.Wallets = c.StringSlice(FlagWallets)
	}
	if c.IsSet(FlagIncludeZero) {
		cfg.IncludeZero = c.Bool(FlagIncludeZero)
	}
	if c.IsSet(FlagMaxRetries) {
		cfg.MaxRetries = c.Int(FlagMaxRetries)
	}
	if c.IsSet(FlagRetryInterval) {
		cfg.RetryInterval = c.Duration(FlagRetryInterval)
	}
	if c.IsSet(FlagCacheTTL) {
		cfg.CacheTTL = c.Duration(FlagCacheTTL)
	}
	if c.IsSet(FlagStaleOnError) {
		cfg.StaleOnError = c.Bool(FlagStaleOnError)
	}
	if c.IsSet(FlagScrapeTimeout) {
		cfg.ScrapeTimeout = c.Duration(FlagScrapeTimeout)
	}

	cfg.Credentials = domain.NewCredentials(c.String(FlagAPIKey), c.String(FlagAPISecret))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
