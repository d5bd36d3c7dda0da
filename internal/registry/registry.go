package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/snapshot"
)

// Registry is the source of truth for link records. It owns the in-memory
// snapshot exclusively; every accessor returns deep copies and every mutation
// runs under one mutex that also covers the write-through Save, because the
// store persists the whole snapshot and interleaved writers would lose
// updates.
type Registry struct {
	mu    sync.Mutex
	links map[string]*link.Link
	st    snapshot.Store
	now   func() time.Time
}

// New loads the last saved snapshot from st and returns a registry backed by
// it.
func New(st snapshot.Store) (*Registry, error) {
	snap, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		snap = make(map[string]*link.Link)
	}
	return &Registry{links: snap, st: st, now: time.Now}, nil
}

// persist writes the current snapshot through to the store. Callers must hold
// mu. Lifecycle mutations roll back on a failed save; AppendSample keeps the
// sample and reports the failure, accepting that memory may run ahead of disk
// until the next successful write.
func (r *Registry) persist() error {
	if err := r.st.Save(r.links); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Create allocates a new link. An empty name defaults to "Tracking N" where N
// is the current store size plus one, evaluated at creation time. Numbers are
// not reused after deletions, so suffix gaps and duplicates across
// create/delete cycles are expected.
func (r *Registry) Create(name string) (link.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("Tracking %d", len(r.links)+1)
	}
	l := &link.Link{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: r.now().UTC(),
		Locations: []link.Sample{},
	}
	r.links[l.ID] = l
	if err := r.persist(); err != nil {
		delete(r.links, l.ID)
		return link.Link{}, err
	}
	return l.Clone(), nil
}

// Get returns a copy of the record, or link.ErrNotFound.
func (r *Registry) Get(id string) (link.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return link.Link{}, link.ErrNotFound
	}
	return l.Clone(), nil
}

// List returns copies of all records ordered by creation time (id as
// tie-break), so the order is stable within a snapshot.
func (r *Registry) List() []link.Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]link.Link, 0, len(r.links))
	for _, l := range r.links {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Count returns the number of stored links.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// Rename updates the display name and returns the updated record.
func (r *Registry) Rename(id, name string) (link.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return link.Link{}, link.ErrNotFound
	}
	prev := l.Name
	l.Name = name
	if err := r.persist(); err != nil {
		l.Name = prev
		return link.Link{}, err
	}
	return l.Clone(), nil
}

// Delete removes the record. There is no tombstone; the id simply stops
// resolving.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return link.ErrNotFound
	}
	delete(r.links, id)
	if err := r.persist(); err != nil {
		r.links[id] = l
		return err
	}
	return nil
}

// AppendSample ingests one position report: it appends a sample stamped with
// the server clock, refreshes lastLocation/lastSeen, marks the link active and
// persists the snapshot, all as one atomic step. A link stays active forever
// once it has reported; there is no timeout-based deactivation.
// It returns the updated record and the appended sample.
func (r *Registry) AppendSample(id string, c link.Coords) (link.Link, link.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return link.Link{}, link.Sample{}, link.ErrNotFound
	}
	now := r.now().UTC()
	s := link.Sample{Coords: c, Timestamp: now}
	l.Locations = append(l.Locations, s)
	coords := c
	l.LastLocation = &coords
	l.IsActive = true
	seen := now
	l.LastSeen = &seen
	if err := r.persist(); err != nil {
		return link.Link{}, link.Sample{}, err
	}
	return l.Clone(), s, nil
}

// History returns the ingestion-ordered position history for a link.
func (r *Registry) History(id string) ([]link.Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return nil, link.ErrNotFound
	}
	return append([]link.Sample(nil), l.Locations...), nil
}
