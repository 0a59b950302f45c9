// Command binance-exporter exposes Binance wallet balances (spot, funding and
// simple earn) as Prometheus metrics. Balances are fetched on every scrape, or
// shared between scrapes for --cache-ttl.
//
// Usage:
//
//	binance-exporter [--config config.yaml] [flags]
//
// Required environment variables:
//
//	BINANCE_KEY, BINANCE_SECRET
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"github.com/vadiminshakov/binance-exporter/config"
	"github.com/vadiminshakov/binance-exporter/internal/clients"
	"github.com/vadiminshakov/binance-exporter/internal/logging"
	"github.com/vadiminshakov/binance-exporter/internal/metrics"
	"github.com/vadiminshakov/binance-exporter/internal/services/balances"
	"github.com/vadiminshakov/binance-exporter/internal/services/snapshot"
	"github.com/vadiminshakov/binance-exporter/internal/web"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "binance-exporter",
		Usage:   "export Binance wallet balances as Prometheus metrics",
		Version: version,
		Flags:   config.Flags(),
		Action:  run,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromCLI(c)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  100,
		MaxBackups: 3,
		MaxAgeDays: 7,
		Location:   loc,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	wallets, err := cfg.WalletTypes()
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	opts := []clients.Option{
		clients.WithBaseURL(cfg.BaseURL),
		clients.WithHTTPClient(httpClient),
		clients.WithRecvWindow(cfg.RecvWindow),
		clients.WithRateLimit(cfg.RateLimit, len(wallets)*2),
		clients.WithLogger(logger.Named("binance")),
	}
	if cfg.ServerTime {
		opts = append(opts, clients.WithTimeSource(clients.NewServerTime(cfg.BaseURL, httpClient)))
	}
	client := clients.NewBinanceClient(cfg.Credentials, opts...)

	exporter := metrics.NewExporter()
	aggregator := balances.NewAggregator(client,
		balances.WithQueries(balances.DefaultQueries(wallets...)),
		balances.WithIncludeZero(cfg.IncludeZero),
		balances.WithRetries(cfg.MaxRetries, cfg.RetryInterval),
		balances.WithObserver(exporter),
		balances.WithLogger(logger.Named("balances")),
	)
	source := snapshot.NewSource(aggregator,
		snapshot.WithTTL(cfg.CacheTTL),
		snapshot.WithStaleOnError(cfg.StaleOnError),
		snapshot.WithRefreshTimeout(cfg.ScrapeTimeout),
		snapshot.WithLogger(logger.Named("snapshot")),
	)
	server := web.NewServer(cfg.Addr(), cfg.JobName, source, exporter, logger.Named("web"))

	logger.Info("starting binance exporter",
		zap.String("addr", cfg.Addr()),
		zap.String("job", cfg.JobName),
		zap.Strings("wallets", cfg.Wallets),
		zap.Bool("server_time", cfg.ServerTime),
		zap.Bool("include_zero", cfg.IncludeZero),
		zap.Duration("cache_ttl", cfg.CacheTTL))

	if err := server.Start(c.Context); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("binance exporter stopped")
	return nil
}
