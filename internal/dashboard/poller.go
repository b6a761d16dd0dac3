package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/oreopets/portal/internal/scheduler"
)

// Poller refreshes an engine on a fixed interval while the dashboard is
// visible. Hidden ticks are skipped, so a returning viewer gets one refresh
// on the next tick rather than a burst.
type Poller struct {
	engine     *Engine
	visibility Visibility
	interval   time.Duration

	mu  sync.Mutex
	svc *scheduler.Service
	job gocron.Job
}

func NewPoller(engine *Engine, visibility Visibility, interval time.Duration) *Poller {
	return &Poller{engine: engine, visibility: visibility, interval: interval}
}

// Start registers the poller with the scheduler under name.
func (p *Poller) Start(svc *scheduler.Service, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job != nil {
		return nil
	}
	job, err := svc.AddIntervalJob(name, p.interval, p.Tick)
	if err != nil {
		return err
	}
	p.svc = svc
	p.job = job
	return nil
}

// Stop cancels future ticks. A refresh already running finishes on its own.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.job == nil {
		return
	}
	if err := p.svc.RemoveJob(p.job.ID()); err != nil {
		p.engine.logger.Warn().Err(err).Msg("Failed to remove dashboard poller job")
	}
	p.job = nil
}

// Tick runs one poll cycle.
func (p *Poller) Tick() {
	if p.visibility != nil && !p.visibility.Visible() {
		p.engine.skipped()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()
	p.engine.Refresh(ctx)
}
