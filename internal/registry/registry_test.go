package registry

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/loykin/tracklink/internal/link"
	"github.com/loykin/tracklink/internal/snapshot"
)

func newTestRegistry(t *testing.T) (*Registry, *snapshot.MemoryStore) {
	t.Helper()
	st := snapshot.NewMemoryStore()
	r, err := New(st)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return r, st
}

func TestCreateAssignsDefaults(t *testing.T) {
	r, _ := newTestRegistry(t)
	l, err := r.Create("")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if l.ID == "" {
		t.Fatal("expected generated id")
	}
	if l.Name != "Tracking 1" {
		t.Fatalf("unexpected default name: %q", l.Name)
	}
	if l.CreatedAt.IsZero() {
		t.Fatal("expected createdAt to be set")
	}
	if l.IsActive || l.LastSeen != nil || l.LastLocation != nil {
		t.Fatalf("fresh link must be inactive: %+v", l)
	}
	if len(l.Locations) != 0 {
		t.Fatalf("fresh link must have empty history, got %d", len(l.Locations))
	}
}

func TestCreateDefaultNameCountsExistingLinks(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Create("first"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create("second"); err != nil {
		t.Fatal(err)
	}
	l, err := r.Create("")
	if err != nil {
		t.Fatal(err)
	}
	if l.Name != "Tracking 3" {
		t.Fatalf("expected Tracking 3, got %q", l.Name)
	}
}

func TestDefaultNameNotRenumberedAfterDelete(t *testing.T) {
	r, _ := newTestRegistry(t)
	a, _ := r.Create("")
	b, _ := r.Create("")
	if b.Name != "Tracking 2" {
		t.Fatalf("unexpected name: %q", b.Name)
	}
	if err := r.Delete(a.ID); err != nil {
		t.Fatal(err)
	}
	// count is 1 again, so the suffix repeats; that is accepted behavior
	c, _ := r.Create("")
	if c.Name != "Tracking 2" {
		t.Fatalf("expected Tracking 2 after delete, got %q", c.Name)
	}
}

func TestListResolvesViaGet(t *testing.T) {
	r, _ := newTestRegistry(t)
	names := []string{"a", "b", "c"}
	for _, n := range names {
		if _, err := r.Create(n); err != nil {
			t.Fatal(err)
		}
	}
	links := r.List()
	if len(links) != len(names) {
		t.Fatalf("expected %d links, got %d", len(names), len(links))
	}
	for _, l := range links {
		got, err := r.Get(l.ID)
		if err != nil {
			t.Fatalf("get %s: %v", l.ID, err)
		}
		if got.Name != l.Name {
			t.Fatalf("name mismatch: %q vs %q", got.Name, l.Name)
		}
	}
}

func TestAppendSampleUpdatesLiveness(t *testing.T) {
	r, _ := newTestRegistry(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	l, _ := r.Create("dev")
	got, s, err := r.AppendSample(l.ID, link.Coords{Latitude: 39.92, Longitude: 32.85})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !got.IsActive {
		t.Fatal("expected isActive after first sample")
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(fixed) {
		t.Fatalf("unexpected lastSeen: %v", got.LastSeen)
	}
	if got.LastLocation == nil || got.LastLocation.Latitude != 39.92 || got.LastLocation.Longitude != 32.85 {
		t.Fatalf("unexpected lastLocation: %+v", got.LastLocation)
	}
	if len(got.Locations) != 1 || got.Locations[0] != s {
		t.Fatalf("unexpected history: %+v", got.Locations)
	}
	if !s.Timestamp.Equal(fixed) {
		t.Fatalf("sample must carry the server timestamp, got %v", s.Timestamp)
	}
}

func TestAppendSampleKeepsInvariants(t *testing.T) {
	r, _ := newTestRegistry(t)
	l, _ := r.Create("dev")
	for i := 0; i < 5; i++ {
		c := link.Coords{Latitude: float64(i), Longitude: float64(-i)}
		got, _, err := r.AppendSample(l.ID, c)
		if err != nil {
			t.Fatal(err)
		}
		if len(got.Locations) != i+1 {
			t.Fatalf("history length %d, want %d", len(got.Locations), i+1)
		}
		last := got.Locations[len(got.Locations)-1]
		if *got.LastLocation != last.Coords {
			t.Fatalf("lastLocation %+v != last history entry %+v", got.LastLocation, last.Coords)
		}
		if !got.LastSeen.Equal(last.Timestamp) {
			t.Fatalf("lastSeen %v != last sample time %v", got.LastSeen, last.Timestamp)
		}
	}
}

func TestAppendSampleNotFound(t *testing.T) {
	r, st := newTestRegistry(t)
	l, _ := r.Create("dev")
	if err := r.Delete(l.ID); err != nil {
		t.Fatal(err)
	}
	before, _ := st.Load()

	_, _, err := r.AppendSample(l.ID, link.Coords{Latitude: 1, Longitude: 2})
	if !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, _, err = r.AppendSample("never-created", link.Coords{})
	if !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, _ := st.Load()
	if len(before) != len(after) {
		t.Fatalf("failed append must not mutate the store: %d vs %d", len(before), len(after))
	}
}

func TestHistoryOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	l, _ := r.Create("dev")
	for i := 0; i < 10; i++ {
		if _, _, err := r.AppendSample(l.ID, link.Coords{Latitude: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	hist, err := r.History(l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(hist))
	}
	for i, s := range hist {
		if s.Latitude != float64(i) {
			t.Fatalf("history reordered at %d: %+v", i, s)
		}
	}
}

func TestRenameAndDelete(t *testing.T) {
	r, _ := newTestRegistry(t)
	l, _ := r.Create("old")
	got, err := r.Rename(l.ID, "new")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "new" {
		t.Fatalf("rename did not stick: %q", got.Name)
	}
	if _, err := r.Rename("missing", "x"); !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := r.Delete(l.ID); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(l.ID); !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if _, err := r.History(l.ID); !errors.Is(err, link.ErrNotFound) {
		t.Fatalf("history after delete must be not found, got %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	r, _ := newTestRegistry(t)
	l, _ := r.Create("dev")
	if _, _, err := r.AppendSample(l.ID, link.Coords{Latitude: 1}); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get(l.ID)
	got.Name = "mutated"
	got.Locations[0].Latitude = 99
	*got.LastLocation = link.Coords{Latitude: 42}

	fresh, _ := r.Get(l.ID)
	if fresh.Name != "dev" || fresh.Locations[0].Latitude != 1 || fresh.LastLocation.Latitude != 1 {
		t.Fatalf("caller mutation leaked into the store: %+v", fresh)
	}
}

func TestReloadFromSnapshot(t *testing.T) {
	st := snapshot.NewMemoryStore()
	r1, err := New(st)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := r1.Create("persisted")
	if _, _, err := r1.AppendSample(l.ID, link.Coords{Latitude: 5, Longitude: 6}); err != nil {
		t.Fatal(err)
	}

	r2, err := New(st)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r2.Get(l.ID)
	if err != nil {
		t.Fatalf("link lost across reload: %v", err)
	}
	if got.Name != "persisted" || len(got.Locations) != 1 || !got.IsActive {
		t.Fatalf("reloaded record mismatch: %+v", got)
	}
}

type failingStore struct {
	snapshot.Store
	fail bool
}

func (f *failingStore) Save(snap map[string]*link.Link) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Save(snap)
}

func TestStorageFailureSurfaced(t *testing.T) {
	fs := &failingStore{Store: snapshot.NewMemoryStore()}
	r, err := New(fs)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := r.Create("dev")

	fs.fail = true
	if _, err := r.Create("other"); err == nil {
		t.Fatal("expected storage failure on create")
	}
	_, _, appendErr := r.AppendSample(l.ID, link.Coords{Latitude: 1})
	if appendErr == nil {
		t.Fatal("expected storage failure on append")
	}
	if errors.Is(appendErr, link.ErrNotFound) {
		t.Fatal("storage failure must not look like not-found")
	}

	fs.fail = false
	// created link rolled back, so the count stays at 1
	if got := r.Count(); got != 1 {
		t.Fatalf("expected 1 link after failed create, got %d", got)
	}
}

func TestConcurrentAppendsDoNotLoseUpdates(t *testing.T) {
	r, st := newTestRegistry(t)
	a, _ := r.Create("a")
	b, _ := r.Create("b")

	const perLink = 50
	var wg sync.WaitGroup
	for _, id := range []string{a.ID, b.ID} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perLink; i++ {
				if _, _, err := r.AppendSample(id, link.Coords{Latitude: float64(i)}); err != nil {
					t.Errorf("append %s: %v", id, err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	// the persisted snapshot must contain every sample from both writers
	snap, err := st.Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{a.ID, b.ID} {
		got := snap[id]
		if got == nil {
			t.Fatalf("link %s missing from persisted snapshot", id)
		}
		if len(got.Locations) != perLink {
			t.Fatalf("link %s lost samples: %d/%d", id, len(got.Locations), perLink)
		}
	}
}

func TestListStableOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	r.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	}
	var ids []string
	for n := 0; n < 5; n++ {
		l, _ := r.Create(fmt.Sprintf("l%d", n))
		ids = append(ids, l.ID)
	}
	got := r.List()
	for n, l := range got {
		if l.ID != ids[n] {
			t.Fatalf("list order not creation order at %d", n)
		}
	}
}
