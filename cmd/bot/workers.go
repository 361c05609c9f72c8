package main

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// workers runs handlers with bounded concurrency. Its context is not tied to
// the signal context, so work queued during shutdown still gets to run.
type workers struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	eg      errgroup.Group
}

func newWorkers(limit int, timeout time.Duration) *workers {
	if limit <= 0 {
		limit = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &workers{ctx: ctx, cancel: cancel, timeout: timeout}
	w.eg.SetLimit(limit)
	return w
}

// Go blocks until a slot is free, then runs fn with a per-request deadline.
func (w *workers) Go(fn func(ctx context.Context)) {
	w.eg.Go(func() error {
		ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
		defer cancel()
		fn(ctx)
		return nil
	})
}

// Drain waits up to grace for running handlers, then cancels the rest and
// waits for them to return. It reports whether everything finished in time.
func (w *workers) Drain(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		_ = w.eg.Wait()
		close(done)
	}()

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-done:
		w.cancel()
		return true
	case <-timer.C:
		w.cancel()
		<-done
		return false
	}
}

type flusher interface {
	Close()
}

// shutdown stops intake, hands pending albums to the workers and waits for
// them. Order matters: albums flushed by Close must reach live workers.
func shutdown(stopUpdates func(), albums flusher, w *workers, grace time.Duration, logger *slog.Logger) {
	stopUpdates()
	albums.Close()
	if !w.Drain(grace) {
		logger.Warn("shutdown grace period elapsed, in-flight requests cancelled", "grace", grace)
	}
}
