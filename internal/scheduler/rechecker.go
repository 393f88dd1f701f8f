package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/validate"
)

// CycleStats summarizes one pass over all checks.
type CycleStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Listed     int           `json:"listed"`
	ReadErrors int           `json:"read_errors"`
	Invalid    int           `json:"invalid"`
	Busy       int           `json:"busy"`
	Executed   int           `json:"executed"`
	Up         int           `json:"up"`
	Down       int           `json:"down"`
	Alerts     int           `json:"alerts"`
}

type Rechecker struct {
	Logger      *zap.Logger
	Checks      repo.CheckStore
	Executor    probe.Executor
	Processor   *Processor
	Interval    time.Duration
	Concurrency int // <= 0 means no limit

	mu       sync.Mutex
	inflight map[string]struct{}
	last     *CycleStats
	cycles   sync.WaitGroup
}

func NewRechecker(
	logger *zap.Logger,
	checks repo.CheckStore,
	executor probe.Executor,
	processor *Processor,
	interval time.Duration,
	concurrency int,
) *Rechecker {
	if interval < 0 {
		interval = 0
	}
	return &Rechecker{
		Logger:      logger,
		Checks:      checks,
		Executor:    executor,
		Processor:   processor,
		Interval:    interval,
		Concurrency: concurrency,
		inflight:    make(map[string]struct{}),
	}
}

// Run does an immediate pass, then starts one every tick without waiting for
// the previous one. When ctx is cancelled it stops ticking and waits for the
// running passes to finish.
func (r *Rechecker) Run(ctx context.Context) {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("rechecker_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.start(ctx)

	for {
		select {
		case <-ctx.Done():
			r.cycles.Wait()
			r.Logger.Info("rechecker_stopped")
			return
		case <-t.C:
			r.start(ctx)
		}
	}
}

func (r *Rechecker) start(ctx context.Context) {
	r.cycles.Add(1)
	go func() {
		defer r.cycles.Done()
		r.RunOnce(ctx)
	}()
}

// RunOnce runs one full cycle and returns when every check in it is done.
// Work on a check, once started, is not cut short by ctx: each request
// already carries its own deadline.
func (r *Rechecker) RunOnce(ctx context.Context) CycleStats {
	stats := CycleStats{StartedAt: time.Now().UTC()}

	ids, err := r.Checks.List(ctx)
	if err != nil {
		r.Logger.Warn("rechecker_list_error", zap.Error(err))
		return stats
	}
	stats.Listed = len(ids)
	if len(ids) == 0 {
		r.Logger.Debug("rechecker_no_checks")
	}

	work := context.WithoutCancel(ctx)
	var mu sync.Mutex
	g := new(errgroup.Group)
	if r.Concurrency > 0 {
		g.SetLimit(r.Concurrency)
	}
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res := r.pipeline(work, id)
			mu.Lock()
			res.addTo(&stats)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(stats.StartedAt)
	r.mu.Lock()
	last := stats
	r.last = &last
	r.mu.Unlock()

	r.Logger.Info("rechecker_cycle_done",
		zap.Int("listed", stats.Listed),
		zap.Int("executed", stats.Executed),
		zap.Int("invalid", stats.Invalid),
		zap.Int("busy", stats.Busy),
		zap.Int("up", stats.Up),
		zap.Int("down", stats.Down),
		zap.Int("alerts", stats.Alerts),
		zap.Duration("took", stats.Duration),
	)
	return stats
}

// Last returns the stats of the most recent finished cycle.
func (r *Rechecker) Last() (CycleStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return CycleStats{}, false
	}
	return *r.last, true
}

type pipelineResult int

const (
	resultBusy pipelineResult = iota
	resultReadError
	resultInvalid
	resultUp
	resultDown
	resultUpAlert
	resultDownAlert
)

func (p pipelineResult) addTo(s *CycleStats) {
	switch p {
	case resultBusy:
		s.Busy++
	case resultReadError:
		s.ReadErrors++
	case resultInvalid:
		s.Invalid++
	default:
		s.Executed++
		if p == resultUp || p == resultUpAlert {
			s.Up++
		} else {
			s.Down++
		}
		if p == resultUpAlert || p == resultDownAlert {
			s.Alerts++
		}
	}
}

func (r *Rechecker) acquire(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[id]; busy {
		return false
	}
	r.inflight[id] = struct{}{}
	return true
}

func (r *Rechecker) release(id string) {
	r.mu.Lock()
	delete(r.inflight, id)
	r.mu.Unlock()
}

// pipeline runs read → validate → execute → process for one check id. A
// check still running from an earlier cycle is skipped.
func (r *Rechecker) pipeline(ctx context.Context, id string) pipelineResult {
	if !r.acquire(id) {
		r.Logger.Debug("rechecker_check_busy", zap.String("check_id", id))
		return resultBusy
	}
	defer r.release(id)

	raw, err := r.Checks.Read(ctx, id)
	if err != nil {
		r.Logger.Warn("rechecker_read_error", zap.String("check_id", id), zap.Error(err))
		return resultReadError
	}

	v := validate.Check(raw)
	if !v.Eligible {
		r.Logger.Warn("rechecker_invalid_check", zap.String("check_id", id), zap.Error(v.Err))
		return resultInvalid
	}

	out := r.Executor.Execute(ctx, v.Check)
	d := r.Processor.Process(ctx, v.Check, out)

	r.Logger.Debug("rechecker_checked",
		zap.String("check_id", id),
		zap.String("target", v.Check.Target()),
		zap.Int("status", out.ResponseCode),
		zap.String("state", string(d.State)),
		zap.Bool("alert", d.Alert),
	)

	switch {
	case d.State == domain.StateUp && d.AlertSent:
		return resultUpAlert
	case d.State == domain.StateUp:
		return resultUp
	case d.AlertSent:
		return resultDownAlert
	default:
		return resultDown
	}
}
