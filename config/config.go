// Package config holds the exporter start-up configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const maxRecvWindow = 60 * time.Second

type Config struct {
	Port     int    `yaml:"port"`
	JobName  string `yaml:"job_name"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	Timezone string `yaml:"timezone"`

	BaseURL        string        `yaml:"base_url"`
	RecvWindow     time.Duration `yaml:"recv_window"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ServerTime     bool          `yaml:"server_time"`
	RateLimit      float64       `yaml:"rate_limit"`

	Wallets       []string      `yaml:"wallets"`
	IncludeZero   bool          `yaml:"include_zero"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryInterval time.Duration `yaml:"retry_interval"`

	CacheTTL      time.Duration `yaml:"cache_ttl"`
	StaleOnError  bool          `yaml:"stale_on_error"`
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`

	// Credentials come from the environment only.
	Credentials domain.Credentials `yaml:"-"`
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() Config {
	return Config{
		Port:           8123,
		JobName:        "binance-exporter",
		LogLevel:       "info",
		Timezone:       "Europe/Paris",
		BaseURL:        "https://api.binance.com",
		RecvWindow:     5 * time.Second,
		RequestTimeout: 5 * time.Second,
		ServerTime:     true,
		Wallets:        []string{"spot", "funding", "earn"},
		IncludeZero:    true,
		RetryInterval:  500 * time.Millisecond,
		ScrapeTimeout:  30 * time.Second,
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file keep their value.
func LoadFile(path string, cfg *Config) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	if err := yaml.Unmarshal(f, cfg); err != nil {
		return &domain.ConfigurationError{Field: "config", Reason: fmt.Sprintf("incorrect yaml in %s: %v", path, err)}
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Location returns the timezone used for log timestamps.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, &domain.ConfigurationError{Field: "timezone", Reason: fmt.Sprintf("unknown timezone %q", c.Timezone)}
	}
	return loc, nil
}

// WalletTypes returns the enabled wallets in exposition order.
func (c Config) WalletTypes() ([]domain.Wallet, error) {
	enabled := make(map[domain.Wallet]bool, len(c.Wallets))
	for _, name := range c.Wallets {
		w := domain.Wallet(strings.ToLower(strings.TrimSpace(name)))
		if !w.IsValid() {
			return nil, &domain.ConfigurationError{Field: "wallets", Reason: fmt.Sprintf("unknown wallet type %q", name)}
		}
		enabled[w] = true
	}
	if len(enabled) == 0 {
		return nil, &domain.ConfigurationError{Field: "wallets", Reason: "at least one wallet type must be enabled"}
	}

	wallets := make([]domain.Wallet, 0, len(enabled))
	for _, w := range domain.AllWallets() {
		if enabled[w] {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// Validate checks the configuration before anything is started.
// It returns a *domain.ConfigurationError describing the first problem found.
func (c Config) Validate() error {
	if !c.Credentials.IsComplete() {
		field := "BINANCE_SECRET"
		if c.Credentials.APIKey == "" {
			field = "BINANCE_KEY"
		}
		return &domain.ConfigurationError{Field: field, Reason: "environment variable must be set"}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &domain.ConfigurationError{Field: "port", Reason: fmt.Sprintf("must be within 1-65535, got %d", c.Port)}
	}
	if strings.TrimSpace(c.JobName) == "" {
		return &domain.ConfigurationError{Field: "job_name", Reason: "must not be empty"}
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return &domain.ConfigurationError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", c.LogLevel)}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigurationError{Field: "base_url", Reason: fmt.Sprintf("invalid URL %q", c.BaseURL)}
	}
	if c.RecvWindow <= 0 || c.RecvWindow > maxRecvWindow {
		return &domain.ConfigurationError{Field: "recv_window", Reason: fmt.Sprintf("must be within (0, %s], got %s", maxRecvWindow, c.RecvWindow)}
	}
	if c.RequestTimeout <= 0 {
		return &domain.ConfigurationError{Field: "request_timeout", Reason: "must be positive"}
	}
	if c.RateLimit < 0 {
		return &domain.ConfigurationError{Field: "rate_limit", Reason: "must not be negative"}
	}
	if _, err := c.WalletTypes(); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return &domain.ConfigurationError{Field: "max_retries", Reason: "must not be negative"}
	}
	if c.RetryInterval < 0 {
		return &domain.ConfigurationError{Field: "retry_interval", Reason: "must not be negative"}
	}
	if c.CacheTTL < 0 {
		return &domain.ConfigurationError{Field: "cache_ttl", Reason: "must not be negative"}
	}
	if c.StaleOnError && c.CacheTTL == 0 {
		return &domain.ConfigurationError{Field: "stale_on_error", Reason: "requires cache_ttl"}
	}
	if c.ScrapeTimeout <= 0 {
		return &domain.ConfigurationError{Field: "scrape_timeout", Reason: "must be positive"}
	}
	return nil
}
