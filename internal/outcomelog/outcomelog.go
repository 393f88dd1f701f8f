// Package outcomelog writes one JSON line per check execution and rotates
// those logs into compressed archives.
package outcomelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

type Logger struct {
	Sink repo.LogSink
}

func NewLogger(sink repo.LogSink) *Logger { return &Logger{Sink: sink} }

// Append writes rec to the log of the check it describes.
func (l *Logger) Append(ctx context.Context, rec domain.LogRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal log record: %w", err)
	}
	if err := l.Sink.Append(ctx, rec.Check.ID, line); err != nil {
		return fmt.Errorf("append log %s: %w", rec.Check.ID, err)
	}
	return nil
}

type Rotator struct {
	Sink   repo.LogSink
	Logger *zap.Logger
	Now    func() time.Time
}

func NewRotator(sink repo.LogSink, logger *zap.Logger) *Rotator {
	return &Rotator{Sink: sink, Logger: logger, Now: time.Now}
}

// ArchiveID names the archive a rotation of id at t produces.
func ArchiveID(id string, t time.Time) string {
	return id + "-" + strconv.FormatInt(t.UnixMilli(), 10)
}

// Rotate archives and truncates every live log. A failing log is reported
// and skipped; the returned error combines all per-log failures.
func (r *Rotator) Rotate(ctx context.Context) error {
	ids, err := r.Sink.List(ctx, false)
	if err != nil {
		r.Logger.Warn("rotation_list_error", zap.Error(err))
		return fmt.Errorf("list logs: %w", err)
	}

	var errs error
	rotated := 0
	for _, id := range ids {
		if err := r.rotateOne(ctx, id); err != nil {
			r.Logger.Warn("rotation_log_failed", zap.String("log_id", id), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		rotated++
	}

	r.Logger.Info("rotation_done",
		zap.Int("logs", len(ids)),
		zap.Int("rotated", rotated),
		zap.Int("failed", len(multierr.Errors(errs))),
	)
	return errs
}

// rotateOne leaves the live log alone when archiving failed, so nothing is
// truncated that was not archived first. Sinks that can do both steps under
// one lock are asked to, so concurrent appends are not lost.
func (r *Rotator) rotateOne(ctx context.Context, id string) error {
	dest := ArchiveID(id, r.Now())
	if at, ok := r.Sink.(repo.ArchiveTruncater); ok {
		if err := at.ArchiveAndTruncate(ctx, id, dest); err != nil {
			return fmt.Errorf("rotate %s: %w", id, err)
		}
		r.Logger.Debug("rotation_log_archived", zap.String("log_id", id), zap.String("archive_id", dest))
		return nil
	}
	if err := r.Sink.Archive(ctx, id, dest); err != nil {
		return fmt.Errorf("archive %s: %w", id, err)
	}
	if err := r.Sink.Truncate(ctx, id); err != nil {
		return fmt.Errorf("truncate %s: %w", id, err)
	}
	r.Logger.Debug("rotation_log_archived", zap.String("log_id", id), zap.String("archive_id", dest))
	return nil
}
