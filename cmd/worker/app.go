package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeworker/internal/config"
	"github.com/hamed0406/uptimeworker/internal/logging"
	"github.com/hamed0406/uptimeworker/internal/notify"
	"github.com/hamed0406/uptimeworker/internal/outcomelog"
	"github.com/hamed0406/uptimeworker/internal/probe"
	"github.com/hamed0406/uptimeworker/internal/repo"
	"github.com/hamed0406/uptimeworker/internal/repo/file"
	"github.com/hamed0406/uptimeworker/internal/repo/memory"
	"github.com/hamed0406/uptimeworker/internal/repo/postgres"
	"github.com/hamed0406/uptimeworker/internal/repo/sqlite"
	"github.com/hamed0406/uptimeworker/internal/scheduler"
)

// logSink is what the worker needs from the outcome log backend.
type logSink interface {
	repo.LogSink
	repo.ArchiveReader
}

type putFunc func(ctx context.Context, id string, raw []byte) error

// app holds everything built from config for one command invocation.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	checks  repo.CheckStore
	put     putFunc
	logs    logSink
	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}

	if err := a.openStores(ctx); err != nil {
		_ = log.Sync()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.Store {
	case config.StoreMemory:
		m := memory.New()
		a.checks = m
		a.put = func(_ context.Context, id string, raw []byte) error { m.Put(id, raw); return nil }
		a.logs = memory.NewLogSink()
		return nil

	case config.StoreSQLite:
		s, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		a.checks, a.put = s, s.Put
		a.closers = append(a.closers, s.Close)

	case config.StorePostgres:
		s, err := postgres.New(ctx, a.cfg.DatabaseURL, a.log)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return fmt.Errorf("postgres migrate: %w", err)
		}
		a.checks, a.put = s, s.Put
		a.closers = append(a.closers, func() error { s.Close(); return nil })

	default:
		s, err := file.NewCheckStore(a.cfg.DataDir)
		if err != nil {
			return fmt.Errorf("check store: %w", err)
		}
		a.checks = s
		a.put = func(_ context.Context, id string, raw []byte) error { return s.Put(id, raw) }
	}

	sink, err := file.NewLogSink(a.cfg.OutcomeLogDir)
	if err != nil {
		return fmt.Errorf("outcome log: %w", err)
	}
	a.logs = sink
	return nil
}

// notifier fans out to every configured provider, or only logs alerts when
// none is configured.
func (a *app) notifier() notify.Notifier {
	var m notify.Multi
	if sms := notify.NewSMS(a.cfg.TwilioAccountSID, a.cfg.TwilioAuthToken, a.cfg.TwilioFromPhone, a.cfg.SMSCountryPrefix); sms != nil {
		m = append(m, sms)
	}
	if slack := notify.NewSlack(a.cfg.SlackWebhook); slack != nil {
		m = append(m, slack)
	}
	if len(m) == 0 {
		a.log.Warn("notifier_not_configured")
		return notify.Log{Logger: a.log}
	}
	return m
}

func (a *app) executor() *probe.HTTPExecutor {
	x := probe.NewHTTPExecutor(a.cfg.UserAgent)
	x.Annotate = probe.NewDNSClassifier().Annotate
	return x
}

func (a *app) rechecker() *scheduler.Rechecker {
	proc := scheduler.NewProcessor(a.log, a.checks, outcomelog.NewLogger(a.logs), a.notifier())
	return scheduler.NewRechecker(a.log, a.checks, a.executor(), proc, a.cfg.CheckInterval, a.cfg.MaxConcurrentChecks)
}

func (a *app) rotator() *outcomelog.Rotator {
	return outcomelog.NewRotator(a.logs, a.log)
}

func (a *app) Close() error {
	var errs error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}
	_ = a.log.Sync()
	return errs
}

const shutdownGrace = 10 * time.Second
