package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
	"github.com/vadiminshakov/binance-exporter/internal/metrics"
	"github.com/vadiminshakov/binance-exporter/internal/services/snapshot"
	"go.uber.org/zap"
)

const (
	MetricsPath         = "/metrics"
	HealthPath          = "/health"
	ExporterMetricsPath = "/exporter/metrics"
)

type snapshotSource interface {
	Snapshot(ctx context.Context) (snapshot.Snapshot, error)
	Cached() bool
}

type scrapeObserver interface {
	ObserveScrape(err error, elapsed time.Duration)
	Handler() http.Handler
}

// Server exposes balances in the Prometheus text format.
type Server struct {
	Addr     string
	Job      string
	Source   snapshotSource
	Exporter scrapeObserver
	Logger   *zap.Logger
	Clock    clock.Clock
}

// NewServer creates a new exposition server.
func NewServer(addr, job string, source snapshotSource, exporter scrapeObserver, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:     addr,
		Job:      job,
		Source:   source,
		Exporter: exporter,
		Logger:   logger,
		Clock:    clock.New(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(MetricsPath, s.handleMetrics)
	mux.HandleFunc(HealthPath, s.handleHealth)
	if s.Exporter != nil {
		mux.Handle(ExporterMetricsPath, s.Exporter.Handler())
	}
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "ok")
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := s.Clock.Now()
	logger := s.Logger.With(zap.String("scrape_id", uuid.NewString()))

	body, records, err := s.render(r.Context())
	if s.Exporter != nil {
		s.Exporter.ObserveScrape(err, s.Clock.Since(start))
	}
	if err != nil {
		logger.Error("balance collection failed",
			zap.String("kind", domain.ErrorKind(err)),
			zap.Error(err))
		http.Error(w, "balance collection failed", http.StatusInternalServerError)
		return
	}

	logger.Info("scrape served",
		zap.Int("records", records),
		zap.Duration("elapsed", s.Clock.Since(start)))

	w.Header().Set("Content-Type", metrics.ContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}

// render builds the whole exposition in memory so a failure never leaks a partial body.
func (s *Server) render(ctx context.Context) ([]byte, int, error) {
	snap, err := s.Source.Snapshot(ctx)
	if err != nil {
		return nil, 0, err
	}

	families := metrics.Build(snap.Records, s.Job)
	if s.Source.Cached() {
		families = append(families, s.snapshotFamilies(snap)...)
		metrics.SortFamilies(families)
	}

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, families); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(snap.Records), nil
}

func (s *Server) snapshotFamilies(snap snapshot.Snapshot) []metrics.Family {
	stale := 0.0
	if snap.Stale {
		stale = 1
	}
	labels := map[string]string{metrics.LabelJob: s.Job}
	return []metrics.Family{
		metrics.GaugeFamily("binance_exporter_snapshot_stale",
			"Whether the served balances come from a previous collection after a failed refresh",
			labels, stale),
		metrics.GaugeFamily("binance_exporter_snapshot_age_seconds",
			"Age of the served balances",
			labels, snap.Age(s.Clock.Now()).Seconds()),
	}
}
