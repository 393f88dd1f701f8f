package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/notify"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// OutcomeWriter records one log line per execution attempt.
type OutcomeWriter interface {
	Append(ctx context.Context, rec domain.LogRecord) error
}

// Decision is what the processor concluded for one attempt.
type Decision struct {
	Attempt   string
	State     domain.State
	Alert     bool // a transition worth alerting on was detected
	AlertSent bool
	Persisted bool
	Logged    bool
}

type Processor struct {
	Logger     *zap.Logger
	Checks     repo.CheckStore
	Outcomes   OutcomeWriter
	Notifier   notify.Notifier
	Now        func() time.Time
	NewAttempt func() string
}

func NewProcessor(logger *zap.Logger, checks repo.CheckStore, outcomes OutcomeWriter, notifier notify.Notifier) *Processor {
	return &Processor{
		Logger:     logger,
		Checks:     checks,
		Outcomes:   outcomes,
		Notifier:   notifier,
		Now:        time.Now,
		NewAttempt: uuid.NewString,
	}
}

// AlertMessage is the text sent to a check's owner after a transition.
func AlertMessage(c *domain.Check) string {
	return fmt.Sprintf("Alert: Your check for %s %s://%s is currently %s", c.Method, c.Protocol, c.URL, c.State)
}

// Process decides the new state of c from out and applies the side effects:
// log line, full-record write, then the alert. The transition is computed
// from c as read, before anything is overwritten. A check that never ran
// before does not alert.
func (p *Processor) Process(ctx context.Context, c domain.Check, out domain.Outcome) Decision {
	state := out.Decide(&c)
	d := Decision{
		Attempt: p.NewAttempt(),
		State:   state,
		Alert:   !c.NeverChecked() && state != c.State,
	}
	checkedAt := domain.EpochMillis(p.Now())

	fields := []zap.Field{
		zap.String("check_id", c.ID),
		zap.String("attempt", d.Attempt),
		zap.String("state", string(state)),
	}

	rec := domain.LogRecord{
		Check:   c,
		Outcome: out,
		State:   state,
		Alert:   d.Alert,
		Time:    checkedAt,
		Attempt: d.Attempt,
	}
	if err := p.Outcomes.Append(ctx, rec); err != nil {
		p.Logger.Warn("outcome_log_append_error", append(fields, zap.Error(err))...)
	} else {
		d.Logged = true
	}

	updated := c
	updated.State = state
	updated.LastChecked = checkedAt
	if err := p.Checks.Write(ctx, &updated); err != nil {
		// Without the new state stored, the next cycle sees the same
		// transition again; alerting now would alert twice.
		p.Logger.Warn("check_update_error", append(fields, zap.Error(err))...)
		return d
	}
	d.Persisted = true

	if !d.Alert {
		p.Logger.Debug("check_outcome_unchanged", fields...)
		return d
	}

	msg := AlertMessage(&updated)
	if err := p.Notifier.Send(ctx, c.UserPhone, msg); err != nil {
		var partial *notify.PartialError
		if !errors.As(err, &partial) {
			p.Logger.Warn("alert_send_error", append(fields, zap.Error(err))...)
			return d
		}
		p.Logger.Warn("alert_send_partial", append(fields, zap.Int("delivered", partial.Delivered), zap.Error(partial.Err))...)
	}
	d.AlertSent = true
	p.Logger.Info("alert_sent", append(fields, zap.String("message", msg))...)
	return d
}
