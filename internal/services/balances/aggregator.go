// Package balances collects wallet balances from the exchange.
package balances

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
	"github.com/vadiminshakov/binance-exporter/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxEarnPages bounds pagination if the exchange keeps advertising more rows.
const maxEarnPages = 50

// Caller performs signed calls against the exchange.
type Caller interface {
	Call(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error)
}

// Observer is notified of every upstream query outcome.
type Observer interface {
	ObserveUpstream(query string, err error)
}

// Aggregator produces the full current set of balance records.
type Aggregator struct {
	client      Caller
	queries     []domain.WalletQuery
	includeZero bool
	retrier     *retrier.Retrier
	observer    Observer
	logger      *zap.Logger
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithQueries replaces the default wallet queries.
func WithQueries(queries []domain.WalletQuery) Option {
	return func(a *Aggregator) {
		a.queries = queries
	}
}

// WithIncludeZero controls whether zero balances are kept.
func WithIncludeZero(include bool) Option {
	return func(a *Aggregator) {
		a.includeZero = include
	}
}

// WithRetries retries transport failures up to n times per query.
func WithRetries(n int, initialInterval time.Duration) Option {
	return func(a *Aggregator) {
		a.retrier = retrier.New(
			retrier.WithMaxRetries(n),
			retrier.WithInitialInterval(initialInterval),
			retrier.WithRetryIf(domain.IsTransport),
			retrier.WithOnRetry(a.logRetry),
		)
	}
}

// WithObserver sets the upstream outcome observer.
func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		a.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator creates an aggregator over the default queries for all wallets.
func NewAggregator(client Caller, opts ...Option) *Aggregator {
	a := &Aggregator{
		client:      client,
		queries:     DefaultQueries(),
		includeZero: true,
		retrier:     retrier.New(retrier.WithMaxRetries(0)),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Collect queries every wallet concurrently and returns their records in query order.
// The first failing query aborts the whole collection.
func (a *Aggregator) Collect(ctx context.Context) ([]domain.BalanceRecord, error) {
	results := make([][]domain.BalanceRecord, len(a.queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range a.queries {
		i, q := i, q
		g.Go(func() error {
			records, err := retrier.DoWithData(a.retrier, gctx, func(ctx context.Context) ([]domain.BalanceRecord, error) {
				return a.fetch(ctx, q)
			})
			// a query aborted by a failing sibling never got its answer from the exchange
			aborted := err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled)
			if a.observer != nil && !aborted {
				a.observer.ObserveUpstream(q.Name, err)
			}
			if err != nil {
				return errors.Wrapf(err, "collect %s balances", q.Name)
			}
			results[i] = mergeRecords(records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.BalanceRecord
	for _, records := range results {
		for _, r := range records {
			if !a.includeZero && r.Amount.IsZero() {
				continue
			}
			out = append(out, r)
		}
	}

	a.logger.Debug("balances collected", zap.Int("records", len(out)))
	return out, nil
}

// logRetry reads a.logger at call time, so WithLogger may come after WithRetries.
func (a *Aggregator) logRetry(attempt int, err error, wait time.Duration) {
	a.logger.Warn("retrying balance query",
		zap.Int("attempt", attempt),
		zap.Duration("wait", wait),
		zap.Error(err))
}

func (a *Aggregator) fetch(ctx context.Context, q domain.WalletQuery) ([]domain.BalanceRecord, error) {
	if !q.Paged {
		body, err := a.client.Call(ctx, q.Method, q.Path, q.Values())
		if err != nil {
			return nil, err
		}
		return decodeAssetList(q, body)
	}

	var (
		all        []domain.BalanceRecord
		advertised int
	)
	for page := 1; page <= maxEarnPages; page++ {
		params := q.Values()
		params.Set("current", strconv.Itoa(page))
		params.Set("size", strconv.Itoa(earnPageSize))

		body, err := a.client.Call(ctx, q.Method, q.Path, params)
		if err != nil {
			return nil, err
		}
		records, total, err := decodeEarnPage(q, body)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		advertised = total
		if len(records) == 0 || len(all) >= total {
			return all, nil
		}
	}

	return nil, &domain.DecodeError{
		Endpoint: q.Path,
		Err:      errors.Errorf("read %d of %d rows in %d pages", len(all), advertised, maxEarnPages),
	}
}
