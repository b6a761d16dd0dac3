package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/metrics"
)

type fakeSource struct {
	mu          sync.Mutex
	records     []backend.Reservation
	fetchErr    error
	completeErr error
	fetches     int
	completed   []int64

	// started receives once per fetch; release gates fetches when non-nil.
	started chan struct{}
	release chan struct{}
}

func (f *fakeSource) DashboardReservations(ctx context.Context) ([]backend.Reservation, error) {
	f.mu.Lock()
	f.fetches++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]backend.Reservation, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeSource) CompleteReservation(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return f.completeErr
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconciliation")
	}
}

func booked(id int64, phone, date, clock string) backend.Reservation {
	return backend.Reservation{ID: id, PetName: "Buddy", Phone: phone, Date: date, Time: clock, Status: backend.StatusBooked}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	source := &fakeSource{records: []backend.Reservation{booked(1, "555-1234", "2025-08-01", "10:00")}}
	engine := NewEngine(source, nil)
	fixed := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }

	if !engine.Refresh(context.Background()) {
		t.Fatal("expected refresh to run")
	}
	snap := engine.Snapshot()
	if len(snap.Records) != 1 || !snap.FetchedAt.Equal(fixed) || snap.LastErr != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	source.records = []backend.Reservation{booked(2, "555-9876", "2025-08-02", "11:00")}
	engine.Refresh(context.Background())
	snap = engine.Snapshot()
	if len(snap.Records) != 1 || snap.Records[0].ID != 2 {
		t.Fatalf("expected wholesale replacement, got %+v", snap.Records)
	}
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	source := &fakeSource{records: []backend.Reservation{booked(1, "555-1234", "2025-08-01", "10:00")}}
	engine := NewEngine(source, nil)
	engine.Refresh(context.Background())

	source.fetchErr = errors.New("boom")
	engine.Refresh(context.Background())

	snap := engine.Snapshot()
	if len(snap.Records) != 1 {
		t.Fatalf("expected previous records to survive, got %+v", snap.Records)
	}
	if snap.LastErr == nil {
		t.Fatal("expected the failure to be recorded")
	}
}

func TestConcurrentRefreshIsDropped(t *testing.T) {
	source := &fakeSource{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := NewEngine(source, nil)

	first := make(chan bool)
	go func() { first <- engine.Refresh(context.Background()) }()
	<-source.started

	if engine.Refresh(context.Background()) {
		t.Fatal("second refresh should have been dropped")
	}
	close(source.release)

	if !<-first {
		t.Fatal("first refresh should have run")
	}
	if got := source.fetchCount(); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
}

func TestCompleteIsOptimisticThenReconciled(t *testing.T) {
	source := &fakeSource{records: []backend.Reservation{
		booked(1, "555-1234", "2025-08-01", "10:00"),
		booked(2, "555-9876", "2025-08-01", "11:00"),
	}}
	engine := NewEngine(source, nil)
	engine.Refresh(context.Background())

	// Hold the reconciling fetch so the optimistic value is observable.
	source.started = make(chan struct{}, 1)
	source.release = make(chan struct{})
	source.completeErr = &backend.APIError{Status: 409, Message: "already completed"}

	matched, done := engine.Complete(context.Background(), 1)
	if !matched {
		t.Fatal("expected reservation 1 to match")
	}
	if status := engine.Snapshot().Records[0].Status; status != backend.StatusCompleted {
		t.Fatalf("expected optimistic COMPLETED, got %s", status)
	}

	<-source.started
	close(source.release)
	waitDone(t, done)

	// The backend rejected the transition and still reports BOOKED.
	if status := engine.Snapshot().Records[0].Status; status != backend.StatusBooked {
		t.Fatalf("expected reconciled BOOKED, got %s", status)
	}
	if len(source.completed) != 1 || source.completed[0] != 1 {
		t.Fatalf("unexpected complete calls %v", source.completed)
	}
}

func TestCompleteUnknownIDStillRefreshes(t *testing.T) {
	source := &fakeSource{}
	engine := NewEngine(source, nil)

	matched, done := engine.Complete(context.Background(), 99)
	if matched {
		t.Fatal("expected no local match")
	}
	waitDone(t, done)
	if source.fetchCount() != 1 {
		t.Fatalf("expected a reconciling fetch, got %d", source.fetchCount())
	}
}

func TestCompleteSurvivesCanceledRequestContext(t *testing.T) {
	source := &fakeSource{records: []backend.Reservation{booked(1, "555-1234", "2025-08-01", "10:00")}}
	engine := NewEngine(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	_, done := engine.Complete(ctx, 1)
	cancel()
	waitDone(t, done)

	if source.fetchCount() != 1 {
		t.Fatalf("expected reconciliation after request ended, got %d fetches", source.fetchCount())
	}
}

func TestCompleteOnlyFlipsBookedRecords(t *testing.T) {
	canceled := booked(1, "555-1234", "2025-08-01", "10:00")
	canceled.Status = backend.StatusCanceled
	done := booked(2, "555-9876", "2025-08-01", "11:00")
	done.Status = backend.StatusCompleted

	source := &fakeSource{records: []backend.Reservation{canceled, done}}
	engine := NewEngine(source, nil)
	engine.Refresh(context.Background())

	source.started = make(chan struct{}, 1)
	source.release = make(chan struct{})

	matched, reconciled := engine.Complete(context.Background(), 1)
	if matched {
		t.Fatal("a CANCELED reservation must not be flipped")
	}
	if status := engine.Snapshot().Records[0].Status; status != backend.StatusCanceled {
		t.Fatalf("expected CANCELED to stay, got %s", status)
	}

	<-source.started
	close(source.release)
	waitDone(t, reconciled)

	if len(source.completed) != 1 || source.completed[0] != 1 {
		t.Fatalf("the backend still decides the transition, got calls %v", source.completed)
	}
}

func TestCompleteReportsDroppedReconcile(t *testing.T) {
	m := metrics.New("oreo_engine_test")
	source := &fakeSource{
		records: []backend.Reservation{booked(1, "555-1234", "2025-08-01", "10:00")},
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	engine := NewEngine(source, m)

	polling := make(chan bool)
	go func() { polling <- engine.Refresh(context.Background()) }()
	<-source.started

	_, reconciled := engine.Complete(context.Background(), 1)
	waitDone(t, reconciled)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	scrape, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(scrape), `oreo_engine_test_dashboard_refreshes_total{outcome="reconcile_dropped"} 1`) {
		t.Fatalf("expected a dropped reconcile to be counted, got:\n%s", scrape)
	}

	close(source.release)
	if !<-polling {
		t.Fatal("the in-flight poll should have completed")
	}
	if got := source.fetchCount(); got != 1 {
		t.Fatalf("expected only the poll to fetch, got %d", got)
	}
}
