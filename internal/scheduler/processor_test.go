package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/uptimeworker/internal/domain"
	"github.com/hamed0406/uptimeworker/internal/notify"
	"github.com/hamed0406/uptimeworker/internal/repo"
)

// ---- shared helpers ----

type memOutcomes struct {
	mu   sync.Mutex
	recs []domain.LogRecord
	err  error
}

func (m *memOutcomes) Append(ctx context.Context, rec domain.LogRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memOutcomes) records() []domain.LogRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LogRecord(nil), m.recs...)
}

type memChecks struct {
	mu      sync.Mutex
	written []domain.Check
	err     error
}

func (m *memChecks) List(ctx context.Context) ([]string, error)        { return nil, nil }
func (m *memChecks) Read(ctx context.Context, id string) ([]byte, error) { return nil, repo.ErrNotFound }
func (m *memChecks) Write(ctx context.Context, c *domain.Check) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, *c)
	return nil
}

type memNotifier struct {
	mu    sync.Mutex
	n     int
	owner string
	msg   string
	err   error
}

func (m *memNotifier) Send(ctx context.Context, owner, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	m.owner, m.msg = owner, message
	return m.err
}

func (m *memNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

var fixedNow = time.UnixMilli(1700000000000)

func newTestProcessor(checks repo.CheckStore, outcomes OutcomeWriter, nt *memNotifier) *Processor {
	p := NewProcessor(zap.NewNop(), checks, outcomes, nt)
	p.Now = func() time.Time { return fixedNow }
	return p
}

func sampleCheck(state domain.State, lastChecked int64) domain.Check {
	return domain.Check{
		ID:             "abcdefghij0123456789",
		UserPhone:      "55551234",
		Protocol:       domain.ProtocolHTTPS,
		URL:            "example.com/health",
		Method:         "GET",
		SuccessCodes:   []int{200, 201},
		TimeoutSeconds: 2,
		State:          state,
		LastChecked:    lastChecked,
	}
}

// ---- tests ----

func TestProcessor_FirstRunNeverAlerts(t *testing.T) {
	for _, out := range []domain.Outcome{
		domain.Responded(200),
		domain.Responded(500),
		domain.Failed(domain.ErrorKindTimeout, "timeout"),
	} {
		checks, outcomes, nt := &memChecks{}, &memOutcomes{}, &memNotifier{}
		d := newTestProcessor(checks, outcomes, nt).Process(context.Background(), sampleCheck(domain.StateDown, 0), out)

		if d.Alert || d.AlertSent || nt.count() != 0 {
			t.Fatalf("first run must not alert (outcome %+v): %+v", out, d)
		}
		if len(checks.written) != 1 || checks.written[0].LastChecked != fixedNow.UnixMilli() {
			t.Fatalf("first run should persist lastChecked: %+v", checks.written)
		}
	}
}

func TestProcessor_AlertsOnTransition(t *testing.T) {
	checks, outcomes, nt := &memChecks{}, &memOutcomes{}, &memNotifier{}
	p := newTestProcessor(checks, outcomes, nt)

	d := p.Process(context.Background(), sampleCheck(domain.StateUp, 1), domain.Responded(404))

	if d.State != domain.StateDown || !d.Alert || !d.AlertSent {
		t.Fatalf("want down with alert, got %+v", d)
	}
	if nt.owner != "55551234" {
		t.Fatalf("alert went to %q", nt.owner)
	}
	want := "Alert: Your check for GET https://example.com/health is currently down"
	if nt.msg != want {
		t.Fatalf("unexpected message:\nwant %q\ngot  %q", want, nt.msg)
	}

	recs := outcomes.records()
	if len(recs) != 1 {
		t.Fatalf("want one log record, got %d", len(recs))
	}
	// the record carries the check as it was before the overwrite
	if recs[0].Check.State != domain.StateUp || recs[0].State != domain.StateDown || !recs[0].Alert {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
	if recs[0].Attempt == "" || recs[0].Attempt != d.Attempt {
		t.Fatalf("record attempt %q does not match decision %q", recs[0].Attempt, d.Attempt)
	}
	if checks.written[0].State != domain.StateDown {
		t.Fatalf("state not persisted: %+v", checks.written[0])
	}
}

func TestProcessor_NoAlertWithoutChange(t *testing.T) {
	cases := []struct {
		prev domain.State
		out  domain.Outcome
	}{
		{domain.StateDown, domain.Responded(500)},
		{domain.StateDown, domain.Failed(domain.ErrorKindNetwork, "refused")},
		{domain.StateUp, domain.Responded(201)},
	}
	for _, tc := range cases {
		nt := &memNotifier{}
		d := newTestProcessor(&memChecks{}, &memOutcomes{}, nt).Process(context.Background(), sampleCheck(tc.prev, 1), tc.out)
		if d.State != tc.prev || d.Alert || nt.count() != 0 {
			t.Fatalf("prev=%s outcome=%+v: unexpected %+v", tc.prev, tc.out, d)
		}
	}
}

func TestProcessor_PersistFailureKeepsLogAndSkipsAlert(t *testing.T) {
	checks := &memChecks{err: errors.New("disk full")}
	outcomes, nt := &memOutcomes{}, &memNotifier{}

	d := newTestProcessor(checks, outcomes, nt).Process(context.Background(), sampleCheck(domain.StateDown, 1), domain.Responded(200))

	if !d.Alert || d.AlertSent || d.Persisted {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if len(outcomes.records()) != 1 {
		t.Fatalf("log record must be written even when the update fails")
	}
	if nt.count() != 0 {
		t.Fatalf("no alert may be sent for an unpersisted transition")
	}
}

func TestProcessor_LogFailureStillPersistsAndAlerts(t *testing.T) {
	checks, nt := &memChecks{}, &memNotifier{}
	outcomes := &memOutcomes{err: errors.New("log dir gone")}

	d := newTestProcessor(checks, outcomes, nt).Process(context.Background(), sampleCheck(domain.StateDown, 1), domain.Responded(200))

	if d.Logged || !d.Persisted || !d.AlertSent {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if len(checks.written) != 1 || nt.count() != 1 {
		t.Fatalf("update and alert should still happen")
	}
}

func TestProcessor_NotifierFailureIsReported(t *testing.T) {
	nt := &memNotifier{err: errors.New("sms gateway down")}
	d := newTestProcessor(&memChecks{}, &memOutcomes{}, nt).Process(context.Background(), sampleCheck(domain.StateUp, 1), domain.Failed(domain.ErrorKindTimeout, "timeout"))

	if !d.Alert || d.AlertSent || !d.Persisted {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if nt.count() != 1 {
		t.Fatalf("notifier should be tried exactly once, got %d", nt.count())
	}
}

func TestProcessor_PartialDeliveryCountsAsSent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sms := &memNotifier{err: &notify.TransportError{Err: errors.New("sms gateway down")}}
	slack := &memNotifier{}
	p := NewProcessor(zap.New(core), &memChecks{}, &memOutcomes{}, notify.Multi{sms, slack})
	p.Now = func() time.Time { return fixedNow }

	d := p.Process(context.Background(), sampleCheck(domain.StateUp, 1), domain.Failed(domain.ErrorKindTimeout, "timeout"))

	if !d.Alert || !d.AlertSent {
		t.Fatalf("one provider delivered, alert should count as sent: %+v", d)
	}
	if sms.count() != 1 || slack.count() != 1 {
		t.Fatalf("both providers should be tried once: sms=%d slack=%d", sms.count(), slack.count())
	}
	partial := logs.FilterMessage("alert_send_partial").All()
	if len(partial) != 1 {
		t.Fatalf("want one alert_send_partial entry, got %d", len(partial))
	}
	if got := partial[0].ContextMap()["delivered"]; got != int64(1) {
		t.Fatalf("delivered=%v", got)
	}
	if logs.FilterMessage("alert_send_error").Len() != 0 || logs.FilterMessage("alert_sent").Len() != 1 {
		t.Fatalf("partial delivery should log alert_sent and no alert_send_error")
	}
}

func TestProcessor_LogsEachSideEffectFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := NewProcessor(zap.New(core), &memChecks{err: errors.New("disk full")}, &memOutcomes{err: errors.New("log dir gone")}, &memNotifier{})

	p.Process(context.Background(), sampleCheck(domain.StateUp, 1), domain.Responded(500))

	for _, event := range []string{"outcome_log_append_error", "check_update_error"} {
		entries := logs.FilterMessage(event).All()
		if len(entries) != 1 {
			t.Fatalf("want one %s entry, got %d", event, len(entries))
		}
		if got := entries[0].ContextMap()["check_id"]; got != "abcdefghij0123456789" {
			t.Fatalf("%s: check_id=%v", event, got)
		}
	}
	if logs.FilterMessage("alert_sent").Len() != 0 {
		t.Fatalf("no alert may be logged as sent")
	}
}
