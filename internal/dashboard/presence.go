package dashboard

import (
	"sync"
	"time"
)

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Visibility tells the poller whether anyone is looking at the dashboard.
type Visibility interface {
	Visible() bool
}

// Presence is the server-side view of a dashboard tab. The page reports its
// visibility on every poll and on visibilitychange; a tab that stops
// reporting counts as hidden once ttl has passed.
type Presence struct {
	ttl   time.Duration
	clock Clock

	mu       sync.Mutex
	visible  bool
	lastSeen time.Time
}

// NewPresence starts hidden. A nil clock uses the system time.
func NewPresence(ttl time.Duration, clock Clock) *Presence {
	if clock == nil {
		clock = realClock{}
	}
	return &Presence{ttl: ttl, clock: clock}
}

// Report records a heartbeat from the page.
func (p *Presence) Report(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = visible
	p.lastSeen = p.clock.Now()
}

func (p *Presence) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.visible {
		return false
	}
	return p.clock.Now().Sub(p.lastSeen) <= p.ttl
}
