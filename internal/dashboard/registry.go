package dashboard

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oreopets/portal/internal/metrics"
	"github.com/oreopets/portal/internal/scheduler"
)

// SourceFactory builds the backend view of one owner from their token.
type SourceFactory func(token string) Source

// Options configure engines created by a Registry.
type Options struct {
	PollInterval  time.Duration
	VisibilityTTL time.Duration
	Clock         Clock
	// Alive reports whether a session still exists. Nil treats every
	// session as alive.
	Alive func(sessionID string) bool
}

// Entry bundles the per-session dashboard state.
type Entry struct {
	Engine   *Engine
	Presence *Presence
	poller   *Poller
}

// Registry owns one Entry per owner session. Entries are created on the
// first dashboard visit and released when the session ends.
type Registry struct {
	factory SourceFactory
	sched   *scheduler.Service
	opts    Options
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*Entry
}

// NewRegistry creates a registry. A nil scheduler disables background
// polling; engines then only refresh on request.
func NewRegistry(factory SourceFactory, sched *scheduler.Service, opts Options, m *metrics.Metrics) *Registry {
	return &Registry{
		factory: factory,
		sched:   sched,
		opts:    opts,
		metrics: m,
		entries: make(map[string]*Entry),
	}
}

// Acquire returns the entry for sessionID, creating it and starting its
// poller on first use. A session that ended after the request resolved it
// gets a detached entry: usable for this request, never registered or polled.
func (r *Registry) Acquire(sessionID, token string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[sessionID]; ok {
		return entry
	}

	engine := NewEngine(r.factory(token), r.metrics)
	engine.logger = engine.logger.With().Str("session", shortID(sessionID)).Logger()
	presence := NewPresence(r.opts.VisibilityTTL, r.opts.Clock)
	entry := &Entry{
		Engine:   engine,
		Presence: presence,
		poller:   NewPoller(engine, presence, r.opts.PollInterval),
	}
	// Checked under r.mu: a session ending after this point runs its
	// Release hook, which waits for the lock and removes the entry.
	if r.opts.Alive != nil && !r.opts.Alive(sessionID) {
		log.Debug().Str("session", shortID(sessionID)).Msg("Session ended before dashboard entry was created")
		return entry
	}
	if r.sched != nil {
		if err := entry.poller.Start(r.sched, "dashboard_poll_"+shortID(sessionID)); err != nil {
			log.Error().Err(err).Str("session", shortID(sessionID)).Msg("Failed to start dashboard poller")
		}
	}
	r.entries[sessionID] = entry
	return entry
}

// Get returns the entry for sessionID if one exists.
func (r *Registry) Get(sessionID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[sessionID]
	return entry, ok
}

// Release stops the session's poller and drops its snapshot.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		entry.poller.Stop()
	}
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close releases every entry.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Release(id)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
