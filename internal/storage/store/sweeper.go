package store

import (
	"context"
	"sync"
	"time"

	"github.com/flowmesh/localstore/internal/logger"
	"github.com/rs/zerolog"
)

const (
	// DefaultSweepInterval is the default interval between purges
	DefaultSweepInterval = time.Minute
)

// Sweeper purges expired entries on a fixed interval. It only runs when the
// caller starts it.
type Sweeper struct {
	store    *Store
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSweeper creates a sweeper for s. A non-positive interval selects
// DefaultSweepInterval.
func NewSweeper(s *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    s,
		interval: interval,
		log:      logger.WithComponent("store.sweeper"),
	}
}

// Interval returns the sweep interval
func (w *Sweeper) Interval() time.Duration {
	return w.interval
}

// Start launches the sweep goroutine. It stops when ctx is done or Stop is
// called. Starting a running sweeper is a no-op.
func (w *Sweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	go w.run(ctx, w.stopCh, w.doneCh)
}

// Stop halts the sweep goroutine and waits for an in-flight purge to finish
func (w *Sweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
}

// Running reports whether the sweep goroutine is active
func (w *Sweeper) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// SweepOnce runs a single purge
func (w *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	removed, err := w.store.PurgeExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
		return 0, err
	}
	if removed > 0 {
		w.log.Debug().Int("removed", removed).Msg("Sweep completed")
	}
	return removed, nil
}

func (w *Sweeper) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("Sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.markStopped(stopCh)
			w.log.Info().Msg("Sweeper stopped due to context cancellation")
			return
		case <-stopCh:
			w.log.Info().Msg("Sweeper stopped")
			return
		case <-ticker.C:
			// Failures are logged; the next tick tries again
			_, _ = w.SweepOnce(ctx)
		}
	}
}

// markStopped clears the running flag when the goroutine exits on its own
func (w *Sweeper) markStopped(stopCh <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running && w.stopCh == stopCh {
		w.running = false
	}
}
