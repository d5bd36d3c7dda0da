package tracklink

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/loykin/tracklink/internal/config"
	"github.com/loykin/tracklink/internal/history"
	"github.com/loykin/tracklink/internal/history/factory"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/metrics"
	"github.com/loykin/tracklink/internal/registry"
	"github.com/loykin/tracklink/internal/relay"
	iapi "github.com/loykin/tracklink/internal/server"
	"github.com/loykin/tracklink/internal/snapshot"
	"github.com/loykin/tracklink/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Link = link.Link

type Coords = link.Coords

type Sample = link.Sample

type Status = link.Status

type SnapshotConfig = snapshot.Config

type HistorySink = history.Sink

// ErrNotFound reports an unknown link identifier.
var ErrNotFound = link.ErrNotFound

// Service is a thin facade over the internal registry/relay/tracker stack.
// It provides a stable public API for embedding.
type Service struct{ inner *tracker.Tracker }

// Options configures an embedded Service. Zero values give a memory snapshot
// store, default relay buffering and the default logger.
type Options struct {
	Snapshot   snapshot.Config
	SendBuffer int
	Logger     *slog.Logger
}

// New builds a Service: it opens the snapshot store, loads the registry from
// it and wires the relay hub.
func New(opts Options) (*Service, error) {
	if opts.Snapshot.Type == "" {
		opts.Snapshot.Type = "memory"
	}
	st, err := snapshot.New(opts.Snapshot)
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	hub := relay.NewHub(opts.SendBuffer, opts.Logger)
	return &Service{inner: tracker.New(reg, hub, opts.Logger)}, nil
}

func (s *Service) CreateLink(name string) (Link, error) { return s.inner.CreateLink(name) }
func (s *Service) Link(id string) (Link, error)         { return s.inner.Link(id) }
func (s *Service) Links() []Link                        { return s.inner.Links() }
func (s *Service) RenameLink(id, name string) (Link, error) {
	return s.inner.RenameLink(id, name)
}
func (s *Service) DeleteLink(id string) error { return s.inner.DeleteLink(id) }
func (s *Service) History(id string) ([]Sample, error) {
	return s.inner.History(id)
}
func (s *Service) Ingest(ctx context.Context, id string, c Coords) (Link, error) {
	return s.inner.Ingest(ctx, id, c)
}

// Hub exposes the relay for custom transports that register observer sessions.
func (s *Service) Hub() *relay.Hub { return s.inner.Hub() }

// SetHistorySinks configures external position sinks.
func (s *Service) SetHistorySinks(sinks ...HistorySink) { s.inner.SetHistorySinks(sinks...) }

// Close shuts down the relay and any configured sinks.
func (s *Service) Close() { s.inner.Close() }

// NewHistorySink builds a position sink from a DSN
// (sqlite://, postgres://, clickhouse://).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// LoadConfig parses the daemon TOML config file.
func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the REST API and the observer
// websocket using the given service.
func NewHTTPServer(addr, basePath string, s *Service, logger *slog.Logger) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner, logger)
}

// NewHTTPHandler returns the REST/websocket handler for mounting into an
// existing server or framework.
func NewHTTPHandler(basePath string, s *Service, logger *slog.Logger) http.Handler {
	return iapi.NewRouter(s.inner, basePath, logger).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
