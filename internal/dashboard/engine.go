// Package dashboard keeps an owner's reservation snapshot fresh and derives
// the filtered, sorted view the dashboard renders.
package dashboard

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/backend"
	"github.com/oreopets/portal/internal/metrics"
)

const completeTimeout = 15 * time.Second

// Source is the slice of the backend the engine needs.
type Source interface {
	DashboardReservations(ctx context.Context) ([]backend.Reservation, error)
	CompleteReservation(ctx context.Context, id int64) error
}

// Snapshot is the reservation list as of the most recent successful fetch.
type Snapshot struct {
	Records   []backend.Reservation
	FetchedAt time.Time
	// LastErr is the error of the latest fetch, nil when it succeeded.
	LastErr error
}

// Engine holds one owner's snapshot. Refresh is guarded so at most one fetch
// is outstanding; calls made meanwhile are dropped, not queued.
type Engine struct {
	source  Source
	metrics *metrics.Metrics
	now     func() time.Time
	logger  zerolog.Logger

	inFlight atomic.Bool

	mu        sync.RWMutex
	records   []backend.Reservation
	fetchedAt time.Time
	lastErr   error
}

// NewEngine creates an engine with an empty snapshot.
func NewEngine(source Source, m *metrics.Metrics) *Engine {
	return &Engine{
		source:  source,
		metrics: m,
		now:     time.Now,
		logger:  log.With().Str("component", "dashboard_engine").Logger(),
	}
}

// Snapshot returns a copy of the current records.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]backend.Reservation, len(e.records))
	copy(records, e.records)
	return Snapshot{Records: records, FetchedAt: e.fetchedAt, LastErr: e.lastErr}
}

// Refresh fetches the full snapshot and replaces the local one. It returns
// false when another refresh was already running and this call was dropped.
// A failed fetch keeps the previous records.
func (e *Engine) Refresh(ctx context.Context) bool {
	if !e.inFlight.CompareAndSwap(false, true) {
		e.metrics.ObserveRefresh(metrics.RefreshDropped)
		e.logger.Debug().Msg("Refresh already in flight; dropped")
		return false
	}
	defer e.inFlight.Store(false)

	records, err := e.source.DashboardReservations(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.lastErr = err
		e.metrics.ObserveRefresh(metrics.RefreshFailed)
		e.logger.Error().Err(err).Msg("Failed to refresh reservations")
		return true
	}
	e.records = records
	e.fetchedAt = e.now()
	e.lastErr = nil
	e.metrics.ObserveRefresh(metrics.RefreshSucceeded)
	return true
}

// Complete marks a BOOKED reservation COMPLETED locally before anything is
// sent, then asks the backend for the transition and refreshes
// unconditionally so the server's answer overwrites the optimistic value. It
// reports whether a local BOOKED record was flipped; records in any other
// status are left for the backend to judge. done closes once the reconciling
// refresh finished or was dropped.
func (e *Engine) Complete(ctx context.Context, id int64) (matched bool, done <-chan struct{}) {
	e.mu.Lock()
	for i := range e.records {
		if e.records[i].ID == id && strings.EqualFold(e.records[i].Status, backend.StatusBooked) {
			e.records[i].Status = backend.StatusCompleted
			matched = true
		}
	}
	e.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		defer close(finished)

		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
		defer cancel()

		if err := e.source.CompleteReservation(bgCtx, id); err != nil {
			e.logger.Warn().Err(err).Int64("reservation_id", id).Msg("Complete transition rejected")
		}
		// A poll already in flight may predate the PATCH; the next tick heals it.
		if !e.Refresh(bgCtx) {
			e.metrics.ObserveRefresh(metrics.RefreshReconcileDropped)
			e.logger.Debug().Int64("reservation_id", id).Msg("Reconciling refresh dropped; waiting for next poll")
		}
	}()
	return matched, finished
}

func (e *Engine) skipped() {
	e.metrics.ObserveRefresh(metrics.RefreshSkipped)
}
