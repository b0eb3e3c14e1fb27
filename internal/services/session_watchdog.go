package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionRepairer validates the held session and clears it when it is no
// longer usable.
type SessionRepairer interface {
	CheckAndRepair(ctx context.Context) bool
	IsAuthenticated() bool
}

type WatchdogConfig struct {
	Interval time.Duration
}

// SessionWatchdog periodically expires stale sessions so a long running
// process never keeps sending a dead credential.
type SessionWatchdog struct {
	session SessionRepairer
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     WatchdogConfig
}

func NewSessionWatchdog(session SessionRepairer, logger *zap.Logger, cfg WatchdogConfig) *SessionWatchdog {
	if cfg.Interval < time.Second {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &SessionWatchdog{
		session: session,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = w.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		w.Check(ctx)
	})

	return w
}

func (w *SessionWatchdog) Start() {
	if w == nil || w.cron == nil {
		return
	}
	w.cron.Start()
	w.logger.Info("session watchdog started", zap.Duration("interval", w.cfg.Interval))
}

// Stop waits for a running check to finish or for ctx to end.
func (w *SessionWatchdog) Stop(ctx context.Context) {
	if w == nil || w.cron == nil {
		return
	}
	stopCtx := w.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	w.logger.Info("session watchdog stopped")
}

// Check runs one validation pass and reports whether the session survived.
func (w *SessionWatchdog) Check(ctx context.Context) bool {
	if w == nil || w.session == nil {
		return true
	}
	wasAuthenticated := w.session.IsAuthenticated()
	ok := w.session.CheckAndRepair(ctx)
	if !ok {
		w.logger.Info("session cleared by watchdog", zap.Bool("was_authenticated", wasAuthenticated))
	}
	return ok
}
