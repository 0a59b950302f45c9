package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

type fakeCollector struct {
	calls   atomic.Int32
	mu      sync.Mutex
	records []domain.BalanceRecord
	err     error
	started chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (f *fakeCollector) Collect(ctx context.Context) ([]domain.BalanceRecord, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.ctxErr != nil {
		f.ctxErr <- ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records, f.err
}

func (f *fakeCollector) set(records []domain.BalanceRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records, f.err = records, err
}

func balances(amount string) []domain.BalanceRecord {
	return []domain.BalanceRecord{domain.NewBalanceRecord("BNB", domain.WalletSpot, "", decimal.RequireFromString(amount))}
}

func TestSource_OnDemand(t *testing.T) {
	collector := &fakeCollector{records: balances("1")}
	src := NewSource(collector)

	for i := 0; i < 3; i++ {
		snap, err := src.Snapshot(context.Background())
		require.NoError(t, err)
		assert.False(t, snap.Stale)
		assert.Len(t, snap.Records, 1)
	}
	assert.False(t, src.Cached())
	assert.Equal(t, int32(3), collector.calls.Load())

	collector.set(nil, errors.New("upstream down"))
	_, err := src.Snapshot(context.Background())
	assert.EqualError(t, err, "upstream down")
}

func TestSource_TTL(t *testing.T) {
	mock := clock.NewMock()
	collector := &fakeCollector{records: balances("1")}
	src := NewSource(collector, WithTTL(30*time.Second), WithClock(mock))

	first, err := src.Snapshot(context.Background())
	require.NoError(t, err)

	mock.Add(10 * time.Second)
	second, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), collector.calls.Load())
	assert.Equal(t, first.CollectedAt, second.CollectedAt)

	collector.set(balances("2"), nil)
	mock.Add(20 * time.Second)
	third, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), collector.calls.Load())
	assert.True(t, third.Records[0].Amount.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, mock.Now(), third.CollectedAt)
}

func TestSource_ConcurrentScrapesJoinOneRefresh(t *testing.T) {
	collector := &fakeCollector{
		records: balances("1"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	src := NewSource(collector, WithTTL(time.Minute), WithClock(clock.NewMock()))

	const scrapers = 8
	var wg sync.WaitGroup
	errs := make(chan error, scrapers)
	for i := 0; i < scrapers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Snapshot(context.Background())
			errs <- err
		}()
	}

	<-collector.started
	close(collector.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), collector.calls.Load())
}

func TestSource_CancelledScraperDoesNotCancelRefresh(t *testing.T) {
	collector := &fakeCollector{
		records: balances("1"),
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	src := NewSource(collector, WithTTL(time.Minute), WithClock(clock.NewMock()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := src.Snapshot(ctx)
		done <- err
	}()

	<-collector.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(collector.release)
	assert.NoError(t, <-collector.ctxErr)

	require.Eventually(t, func() bool {
		snap, ok := src.fresh()
		return ok && len(snap.Records) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSource_StaleOnError(t *testing.T) {
	t.Run("serves last good snapshot marked stale", func(t *testing.T) {
		mock := clock.NewMock()
		collector := &fakeCollector{records: balances("1")}
		src := NewSource(collector, WithTTL(time.Minute), WithStaleOnError(true), WithClock(mock))

		good, err := src.Snapshot(context.Background())
		require.NoError(t, err)

		collector.set(nil, &domain.APIError{Status: 503})
		mock.Add(2 * time.Minute)

		snap, err := src.Snapshot(context.Background())
		require.NoError(t, err)
		assert.True(t, snap.Stale)
		assert.Equal(t, good.CollectedAt, snap.CollectedAt)
		assert.Equal(t, 2*time.Minute, snap.Age(mock.Now()))
		assert.Len(t, snap.Records, 1)
	})

	t.Run("fails without a previous snapshot", func(t *testing.T) {
		collector := &fakeCollector{err: &domain.APIError{Status: 503}}
		src := NewSource(collector, WithTTL(time.Minute), WithStaleOnError(true), WithClock(clock.NewMock()))

		_, err := src.Snapshot(context.Background())

		var apiErr *domain.APIError
		assert.ErrorAs(t, err, &apiErr)
	})

	t.Run("fails when disabled", func(t *testing.T) {
		mock := clock.NewMock()
		collector := &fakeCollector{records: balances("1")}
		src := NewSource(collector, WithTTL(time.Minute), WithClock(mock))

		_, err := src.Snapshot(context.Background())
		require.NoError(t, err)

		collector.set(nil, &domain.TransportError{Op: "GET", Err: context.DeadlineExceeded})
		mock.Add(2 * time.Minute)

		_, err = src.Snapshot(context.Background())
		assert.True(t, domain.IsTransport(err))
	})
}
