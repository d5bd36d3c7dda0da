package relay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/metrics"
)

// Event names on the observer wire.
const (
	EventLocation = "location-update"
	EventStatus   = "user-status-update"
)

// Event is one message queued for delivery to an observer.
type Event struct {
	Name    string `json:"event"`
	LinkID  string `json:"id,omitempty"`
	Payload any    `json:"payload"`
}

// DefaultSendBuffer is the per-observer queue depth when the config leaves it
// unset.
const DefaultSendBuffer = 64

// Session is one connected observer. The transport drains Events and writes
// them to the wire; per-session channel order gives observers FIFO delivery
// for events addressed to them.
type Session struct {
	id string
	ch chan Event
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events is the delivery queue the transport must drain. It is closed when
// the session is unregistered.
func (s *Session) Events() <-chan Event { return s.ch }

// Hub routes position events to room subscribers and status digests to every
// connected observer. It never persists anything and never blocks a
// publisher: a session whose queue is full has the event dropped.
type Hub struct {
	mu       sync.RWMutex
	buffer   int
	sessions map[string]*Session
	rooms    map[string]map[string]*Session
	logger   *slog.Logger
	closed   bool
}

func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		buffer:   buffer,
		sessions: make(map[string]*Session),
		rooms:    make(map[string]map[string]*Session),
		logger:   logger,
	}
}

// Register adds a new observer session. The returned session receives status
// broadcasts immediately; location events only after Subscribe.
func (h *Hub) Register() *Session {
	s := &Session{id: uuid.NewString(), ch: make(chan Event, h.buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s
	}
	h.sessions[s.id] = s
	n := len(h.sessions)
	h.mu.Unlock()
	metrics.SetObservers(n)
	h.logger.Debug("observer registered", "session", s.id, "observers", n)
	return s
}

// Unregister removes the session from the global set and every room, then
// closes its queue. Safe to call more than once; observer disconnects race
// with explicit teardown.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	if ok {
		delete(h.sessions, s.id)
		for id, room := range h.rooms {
			delete(room, s.id)
			if len(room) == 0 {
				delete(h.rooms, id)
			}
		}
		close(s.ch)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if ok {
		metrics.SetObservers(n)
		h.logger.Debug("observer unregistered", "session", s.id, "observers", n)
	}
}

// Subscribe adds the session to the delivery set for linkID. Subscriptions
// are independent; joining one room never leaves another.
func (h *Hub) Subscribe(s *Session, linkID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	room := h.rooms[linkID]
	if room == nil {
		room = make(map[string]*Session)
		h.rooms[linkID] = room
	}
	room[s.id] = s
}

// Unsubscribe removes the session from one room. No-op when not subscribed.
func (h *Hub) Unsubscribe(s *Session, linkID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[linkID]
	if room == nil {
		return
	}
	delete(room, s.id)
	if len(room) == 0 {
		delete(h.rooms, linkID)
	}
}

// DropLink discards the delivery set for a deleted link. Sessions stay
// connected and keep any other subscriptions.
func (h *Hub) DropLink(linkID string) {
	h.mu.Lock()
	delete(h.rooms, linkID)
	h.mu.Unlock()
}

// PublishLocation delivers coords to every observer subscribed to linkID.
// Delivery is at-most-once and best-effort per observer.
func (h *Hub) PublishLocation(linkID string, c link.Coords) {
	ev := Event{Name: EventLocation, LinkID: linkID, Payload: c}
	h.mu.RLock()
	for _, s := range h.rooms[linkID] {
		h.send(s, ev)
	}
	h.mu.RUnlock()
}

// PublishStatus delivers the status digest to every connected observer,
// regardless of room membership.
func (h *Hub) PublishStatus(st link.Status) {
	ev := Event{Name: EventStatus, Payload: st}
	h.mu.RLock()
	for _, s := range h.sessions {
		h.send(s, ev)
	}
	h.mu.RUnlock()
	metrics.IncStatusBroadcast()
}

// send enqueues without blocking; a full queue drops the event so one slow
// observer cannot stall ingestion or other observers. Callers hold at least a
// read lock, so the channel cannot be closed concurrently.
func (h *Hub) send(s *Session, ev Event) {
	select {
	case s.ch <- ev:
		metrics.IncDelivery()
	default:
		metrics.IncDropped()
		h.logger.Warn("dropping event for slow observer", "session", s.id, "event", ev.Name)
	}
}

// Observers returns the number of connected sessions.
func (h *Hub) Observers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Subscribers returns the size of one link's delivery set.
func (h *Hub) Subscribers(linkID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[linkID])
}

// Close unregisters every session and rejects later registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, s := range h.sessions {
		close(s.ch)
	}
	h.sessions = make(map[string]*Session)
	h.rooms = make(map[string]map[string]*Session)
	h.mu.Unlock()
	metrics.SetObservers(0)
}
