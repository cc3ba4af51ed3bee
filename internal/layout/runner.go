package layout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTickInterval is roughly one frame at 60Hz.
const DefaultTickInterval = 16 * time.Millisecond

// Runner drives a Simulation on its own goroutine and hands a snapshot to a
// callback after every step. When the simulation cools the loop parks until
// the simulation is reheated or the runner is stopped.
type Runner struct {
	sim      *Simulation
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a runner for sim. A nil logger disables logging.
func NewRunner(sim *Simulation, interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		sim:      sim,
		interval: interval,
		logger:   logger.Named("layout"),
	}
}

// Start launches the step loop. It does nothing for an empty graph or when
// the runner is already started. onTick runs on the runner goroutine and
// must not call Stop.
func (r *Runner) Start(ctx context.Context, onTick func(Snapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil || r.sim.Len() == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	r.logger.Debug("layout started", zap.Int("nodes", r.sim.Len()))
	go r.loop(ctx, onTick, r.done)
}

func (r *Runner) loop(ctx context.Context, onTick func(Snapshot), done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !r.sim.Step() {
			r.logger.Debug("layout cooled", zap.Float64("alpha", r.sim.Alpha()))
			select {
			case <-ctx.Done():
				return
			case <-r.sim.Reheated():
				r.logger.Debug("layout reheated")
				continue
			}
		}

		snap := r.sim.Snapshot()
		if ctx.Err() != nil {
			return
		}
		if onTick != nil {
			onTick(snap)
		}
	}
}

// Stop cancels the loop and waits for it to exit. No callback runs after
// Stop returns. Stop is idempotent.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	r.logger.Debug("layout stopped")
}

// Done is closed when the loop exits. It is nil if the runner never started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
