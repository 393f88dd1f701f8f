package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker owns the two background loops: check cycles and log rotation.
type Worker struct {
	Logger    *zap.Logger
	Rechecker *Rechecker
	Rotation  *LogRotator
}

func NewWorker(logger *zap.Logger, rc *Rechecker, lr *LogRotator) *Worker {
	return &Worker{Logger: logger, Rechecker: rc, Rotation: lr}
}

// Run blocks until ctx is cancelled and both loops have returned.
func (w *Worker) Run(ctx context.Context) {
	w.Logger.Info("worker_started",
		zap.Duration("check_interval", w.Rechecker.Interval),
		zap.Duration("rotation_interval", w.Rotation.Interval),
		zap.Int("concurrency", w.Rechecker.Concurrency),
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		w.Rechecker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		w.Rotation.Run(ctx)
	}()
	wg.Wait()

	w.Logger.Info("worker_stopped")
}
