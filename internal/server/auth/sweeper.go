package auth

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically evicts expired sessions from the session store.
// Only the memory backend needs this; Redis expires keys on its own,
// in which case each cycle is a cheap no-op.
type Sweeper struct {
	store    Store
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a new session sweeper.
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a background goroutine.
func (sw *Sweeper) Start(ctx context.Context) {
	slog.Info("session sweeper started", "interval", sw.interval)

	go func() {
		ticker := time.NewTicker(sw.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sw.runSweep(ctx)
			case <-ctx.Done():
				slog.Info("session sweeper stopping")
				close(sw.done)
				return
			}
		}
	}()
}

// Wait blocks until the sweeper has fully stopped.
func (sw *Sweeper) Wait() {
	<-sw.done
}

func (sw *Sweeper) runSweep(ctx context.Context) {
	removed, err := sw.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		slog.Error("failed to sweep expired sessions", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("evicted expired sessions", "count", removed)
	}
}
