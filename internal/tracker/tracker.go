package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/tracklink/internal/history"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/metrics"
	"github.com/loykin/tracklink/internal/registry"
	"github.com/loykin/tracklink/internal/relay"
)

// Tracker wires the registry and the relay into the ingestion pipeline and
// adds the lifecycle orchestration around them: a delete cascades to the
// relay's delivery sets, and every ingested report can be exported to
// configured history sinks.
type Tracker struct {
	mu     sync.RWMutex
	reg    *registry.Registry
	hub    *relay.Hub
	sinks  []history.Sink
	logger *slog.Logger
}

func New(reg *registry.Registry, hub *relay.Hub, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{reg: reg, hub: hub, logger: logger}
	metrics.SetLinks(reg.Count())
	return t
}

// SetHistorySinks configures external position sinks (SQLite, PostgreSQL,
// ClickHouse). Passing no sinks clears the list.
func (t *Tracker) SetHistorySinks(sinks ...history.Sink) {
	t.mu.Lock()
	t.sinks = append([]history.Sink(nil), sinks...)
	t.mu.Unlock()
}

// Hub exposes the relay for transports that register observer sessions.
func (t *Tracker) Hub() *relay.Hub { return t.hub }

// CreateLink allocates a new tracking link; name may be empty.
func (t *Tracker) CreateLink(name string) (link.Link, error) {
	l, err := t.reg.Create(name)
	if err != nil {
		return link.Link{}, err
	}
	metrics.SetLinks(t.reg.Count())
	t.logger.Info("link created", "id", l.ID, "name", l.Name)
	return l, nil
}

// Link returns one record by id.
func (t *Tracker) Link(id string) (link.Link, error) { return t.reg.Get(id) }

// Links returns all records in creation order.
func (t *Tracker) Links() []link.Link { return t.reg.List() }

// RenameLink updates the display name.
func (t *Tracker) RenameLink(id, name string) (link.Link, error) {
	l, err := t.reg.Rename(id, name)
	if err != nil {
		return link.Link{}, err
	}
	t.logger.Info("link renamed", "id", id, "name", name)
	return l, nil
}

// DeleteLink removes the record and drops the link's delivery set so
// subscribed observers stop receiving its events immediately.
func (t *Tracker) DeleteLink(id string) error {
	if err := t.reg.Delete(id); err != nil {
		return err
	}
	t.hub.DropLink(id)
	metrics.SetLinks(t.reg.Count())
	t.logger.Info("link deleted", "id", id)
	return nil
}

// History returns the position history in ingestion order.
func (t *Tracker) History(id string) ([]link.Sample, error) { return t.reg.History(id) }

// Ingest runs the full pipeline for one position report: append to the store
// (which updates liveness and persists), then emit the coordinates to room
// subscribers and the status digest to every observer, then export to sinks.
// Observer or sink trouble never fails the ingestion; only an unknown id or a
// storage failure does.
func (t *Tracker) Ingest(ctx context.Context, id string, c link.Coords) (link.Link, error) {
	l, sample, err := t.reg.AppendSample(id, c)
	if err != nil {
		return link.Link{}, err
	}
	metrics.IncIngest()

	t.hub.PublishLocation(id, c)
	t.hub.PublishStatus(link.Status{
		ID:       l.ID,
		Name:     l.Name,
		IsActive: l.IsActive,
		LastSeen: l.LastSeen,
		Coords:   c,
	})

	t.mu.RLock()
	sinks := append([]history.Sink(nil), t.sinks...)
	t.mu.RUnlock()
	if len(sinks) > 0 {
		evt := history.Event{LinkID: l.ID, Name: l.Name, Sample: sample, OccurredAt: time.Now().UTC()}
		for _, s := range sinks {
			if err := s.Send(ctx, evt); err != nil {
				t.logger.Warn("history sink send failed", "link", l.ID, "error", err)
			}
		}
	}
	return l, nil
}

// Close shuts down the relay and the configured sinks.
func (t *Tracker) Close() {
	t.hub.Close()
	t.mu.Lock()
	sinks := t.sinks
	t.sinks = nil
	t.mu.Unlock()
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			t.logger.Warn("history sink close failed", "error", err)
		}
	}
}
