package tracker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/loykin/tracklink/internal/history"
	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/registry"
	"github.com/loykin/tracklink/internal/relay"
	"github.com/loykin/tracklink/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink implements history.Sink for testing
type mockSink struct {
	mu     sync.Mutex
	events []history.Event
	fail   bool
	closed bool
}

func (m *mockSink) Send(_ context.Context, e history.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *mockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSink) Events() []history.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Event(nil), m.events...)
}

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	reg, err := registry.New(snapshot.NewMemoryStore())
	require.NoError(t, err)
	hub := relay.NewHub(8, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(reg, hub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drain(s *relay.Session) []relay.Event {
	var out []relay.Event
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestIngestPipeline(t *testing.T) {
	trk := newTestTracker(t)
	sink := &mockSink{}
	trk.SetHistorySinks(sink)

	l, err := trk.CreateLink("courier")
	require.NoError(t, err)

	sub := trk.Hub().Register()
	trk.Hub().Subscribe(sub, l.ID)
	bystander := trk.Hub().Register()

	got, err := trk.Ingest(context.Background(), l.ID, link.Coords{Latitude: 39.92, Longitude: 32.85})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Len(t, got.Locations, 1)

	// subscriber sees the location event, then the status digest
	subEvents := drain(sub)
	require.Len(t, subEvents, 2)
	assert.Equal(t, relay.EventLocation, subEvents[0].Name)
	assert.Equal(t, l.ID, subEvents[0].LinkID)
	assert.Equal(t, relay.EventStatus, subEvents[1].Name)

	// the bystander only gets the broadcast digest
	byEvents := drain(bystander)
	require.Len(t, byEvents, 1)
	assert.Equal(t, relay.EventStatus, byEvents[0].Name)
	st, ok := byEvents[0].Payload.(link.Status)
	require.True(t, ok)
	assert.Equal(t, l.ID, st.ID)
	assert.Equal(t, "courier", st.Name)
	assert.True(t, st.IsActive)
	assert.Equal(t, 39.92, st.Coords.Latitude)

	// the sink got the sample
	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, l.ID, events[0].LinkID)
	assert.Equal(t, 39.92, events[0].Sample.Latitude)
	assert.False(t, events[0].Sample.Timestamp.IsZero())
}

func TestIngestUnknownLinkIsNotFound(t *testing.T) {
	trk := newTestTracker(t)
	sink := &mockSink{}
	trk.SetHistorySinks(sink)
	obs := trk.Hub().Register()

	_, err := trk.Ingest(context.Background(), "nope", link.Coords{Latitude: 1})
	require.ErrorIs(t, err, link.ErrNotFound)

	// nothing published, nothing exported
	assert.Empty(t, drain(obs))
	assert.Empty(t, sink.Events())
}

func TestSinkFailureDoesNotFailIngest(t *testing.T) {
	trk := newTestTracker(t)
	trk.SetHistorySinks(&mockSink{fail: true})
	l, err := trk.CreateLink("")
	require.NoError(t, err)

	_, err = trk.Ingest(context.Background(), l.ID, link.Coords{Latitude: 1})
	assert.NoError(t, err)
}

func TestDeleteCascadesToRelay(t *testing.T) {
	trk := newTestTracker(t)
	l, err := trk.CreateLink("gone")
	require.NoError(t, err)

	sub := trk.Hub().Register()
	trk.Hub().Subscribe(sub, l.ID)

	require.NoError(t, trk.DeleteLink(l.ID))
	assert.Equal(t, 0, trk.Hub().Subscribers(l.ID))

	_, err = trk.Link(l.ID)
	assert.ErrorIs(t, err, link.ErrNotFound)
	_, err = trk.History(l.ID)
	assert.ErrorIs(t, err, link.ErrNotFound)
	assert.ErrorIs(t, trk.DeleteLink(l.ID), link.ErrNotFound)
}

func TestEachIngestFiresOneStatusBroadcast(t *testing.T) {
	trk := newTestTracker(t)
	l, err := trk.CreateLink("")
	require.NoError(t, err)
	obs := trk.Hub().Register()

	for i := 0; i < 3; i++ {
		_, err := trk.Ingest(context.Background(), l.ID, link.Coords{Latitude: float64(i)})
		require.NoError(t, err)
	}
	events := drain(obs)
	require.Len(t, events, 3)
	for _, ev := range events {
		assert.Equal(t, relay.EventStatus, ev.Name)
	}
}

func TestCloseShutsDownSinks(t *testing.T) {
	trk := newTestTracker(t)
	sink := &mockSink{}
	trk.SetHistorySinks(sink)
	trk.Close()
	assert.True(t, sink.closed)
}
