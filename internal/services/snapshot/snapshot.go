// Package snapshot serves balance records either fresh on every scrape or
// from a single process-wide cache with a TTL.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshTimeout = 30 * time.Second
	refreshKey            = "balances"
)

// Collector produces the current balance records.
type Collector interface {
	Collect(ctx context.Context) ([]domain.BalanceRecord, error)
}

// Snapshot balance records observed at one point in time.
type Snapshot struct {
	Records     []domain.BalanceRecord
	CollectedAt time.Time
	// Stale is set when the last good snapshot is served after a failed refresh.
	Stale bool
}

// Age returns how old the snapshot is at now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.CollectedAt)
}

// Source hands out snapshots to scrapers.
type Source struct {
	collector      Collector
	ttl            time.Duration
	staleOnError   bool
	refreshTimeout time.Duration
	clock          clock.Clock
	logger         *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	last  *Snapshot
}

// Option configures the Source.
type Option func(*Source)

// WithTTL enables caching for d. Zero means every scrape collects on its own.
func WithTTL(d time.Duration) Option {
	return func(s *Source) {
		s.ttl = d
	}
}

// WithStaleOnError serves the last good snapshot when a refresh fails.
// Only effective together with a TTL.
func WithStaleOnError(enabled bool) Option {
	return func(s *Source) {
		s.staleOnError = enabled
	}
}

// WithRefreshTimeout bounds one collection pass.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Source) {
		s.refreshTimeout = d
	}
}

// WithClock sets the clock used for timestamps and expiry.
func WithClock(c clock.Clock) Option {
	return func(s *Source) {
		s.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		s.logger = l
	}
}

// NewSource creates a snapshot source over collector.
func NewSource(collector Collector, opts ...Option) *Source {
	s := &Source{
		collector:      collector,
		refreshTimeout: defaultRefreshTimeout,
		clock:          clock.New(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cached reports whether snapshots are shared between scrapes.
func (s *Source) Cached() bool {
	return s.ttl > 0
}

// Snapshot returns current balances.
// Without a TTL each call runs its own collection and keeps no state.
// With a TTL a fresh cached snapshot is returned as is, otherwise concurrent
// callers join one refresh.
func (s *Source) Snapshot(ctx context.Context) (Snapshot, error) {
	if !s.Cached() {
		cctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
		defer cancel()

		records, err := s.collector.Collect(cctx)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Records: records, CollectedAt: s.clock.Now()}, nil
	}

	if snap, ok := s.fresh(); ok {
		return snap, nil
	}

	ch := s.group.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return s.fallback(res.Err)
		}
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Source) fresh() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil || s.last.Age(s.clock.Now()) >= s.ttl {
		return Snapshot{}, false
	}
	return *s.last, true
}

// refresh runs detached from the scraper that triggered it, so a cancelled
// scrape does not fail the others joined on the same refresh.
func (s *Source) refresh(ctx context.Context) (Snapshot, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.refreshTimeout)
	defer cancel()

	records, err := s.collector.Collect(rctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Records: records, CollectedAt: s.clock.Now()}
	s.mu.Lock()
	s.last = &snap
	s.mu.Unlock()
	return snap, nil
}

func (s *Source) fallback(err error) (Snapshot, error) {
	if !s.staleOnError {
		return Snapshot{}, err
	}
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil {
		return Snapshot{}, err
	}

	s.logger.Warn("serving stale balances after failed refresh",
		zap.Error(err),
		zap.Duration("age", last.Age(s.clock.Now())))
	stale := *last
	stale.Stale = true
	return stale, nil
}
