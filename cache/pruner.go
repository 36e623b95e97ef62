package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/scopecache/logger"
)

// DefaultPruneInterval is the sweep interval used when none is configured.
const DefaultPruneInterval = 30 * time.Second

// PrunerState is the lifecycle state of an IntervalPruner.
type PrunerState int

const (
	PrunerIdle PrunerState = iota
	PrunerRunning
	PrunerStopped
)

func (s PrunerState) String() string {
	switch s {
	case PrunerIdle:
		return "idle"
	case PrunerRunning:
		return "pruning"
	case PrunerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("PrunerState(%d)", int(s))
	}
}

// IntervalPruner sweeps its target on a fixed interval from its own
// goroutine. It moves Idle -> Pruning -> Stopped and never restarts.
type IntervalPruner struct {
	interval time.Duration
	log      *logger.Logger

	mu     sync.Mutex
	state  PrunerState
	cancel context.CancelFunc
	done   chan struct{}
}

// PrunerOption configures an IntervalPruner.
type PrunerOption func(*IntervalPruner)

// WithPrunerLogger sets the pruner's logger.
func WithPrunerLogger(l *logger.Logger) PrunerOption {
	return func(p *IntervalPruner) {
		if l != nil {
			p.log = l
		}
	}
}

// NewIntervalPruner creates an idle pruner. A non-positive interval falls
// back to DefaultPruneInterval.
func NewIntervalPruner(interval time.Duration, opts ...PrunerOption) *IntervalPruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	p := &IntervalPruner{
		interval: interval,
		log:      logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("scopecache.pruner")
	return p
}

// Interval returns the sweep interval.
func (p *IntervalPruner) Interval() time.Duration { return p.interval }

// State returns the current lifecycle state.
func (p *IntervalPruner) State() PrunerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// StartPruning begins sweeping target every interval. Only the first call
// on an idle pruner has any effect.
func (p *IntervalPruner) StartPruning(target Prunable) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PrunerIdle {
		p.log.Warn("StartPruning ignored", logger.Fields("state", p.state.String()))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.state = PrunerRunning

	go p.run(ctx, target, p.done)

	p.log.Debug("Pruning started", logger.Fields("interval", p.interval.String()))
}

// StopPruning halts the schedule and waits for an in-flight sweep to
// return. Every call waits, concurrent ones included; before StartPruning
// it only marks the pruner stopped. It must not be called from within the
// target's Prune, which runs on the pruner's goroutine.
func (p *IntervalPruner) StopPruning() {
	p.mu.Lock()
	prev := p.state
	p.state = PrunerStopped
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done

	if prev == PrunerRunning {
		p.log.Debug("Pruning stopped")
	}
}

func (p *IntervalPruner) run(ctx context.Context, target Prunable, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx, target)
		}
	}
}

func (p *IntervalPruner) sweep(ctx context.Context, target Prunable) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Sweep panicked", logger.Fields(logger.FieldError, fmt.Sprint(r)))
		}
	}()
	target.Prune(ctx)
}
