package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Rotator is satisfied by *outcomelog.Rotator.
type Rotator interface {
	Rotate(ctx context.Context) error
}

// LogRotator rotates outcome logs immediately and then every Interval.
// Passes run inline, so two rotations never overlap.
type LogRotator struct {
	Logger   *zap.Logger
	Rotator  Rotator
	Interval time.Duration
}

func NewLogRotator(logger *zap.Logger, rotator Rotator, interval time.Duration) *LogRotator {
	if interval < 0 {
		interval = 0
	}
	return &LogRotator{Logger: logger, Rotator: rotator, Interval: interval}
}

func (l *LogRotator) Run(ctx context.Context) {
	if l.Interval == 0 {
		l.Logger.Info("log_rotation_disabled")
		return
	}
	t := time.NewTicker(l.Interval)
	defer t.Stop()

	l.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("log_rotation_stopped")
			return
		case <-t.C:
			l.runOnce(ctx)
		}
	}
}

func (l *LogRotator) runOnce(ctx context.Context) {
	// Per-log failures are already logged by the rotator.
	if err := l.Rotator.Rotate(context.WithoutCancel(ctx)); err != nil {
		l.Logger.Debug("log_rotation_incomplete", zap.Error(err))
	}
}
