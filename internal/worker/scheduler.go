package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionPurger deletes refresh sessions that expired more than grace ago.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, grace time.Duration) (int64, error)
}

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	cron    *cron.Cron
	parser  cron.Parser
	logger  *zap.Logger
	timeout time.Duration
}

// NewScheduler builds a scheduler in UTC. Overlapping runs of a job are
// skipped and panics are recovered.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{s: logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:  logger,
		timeout: time.Minute,
	}
}

// AddSessionPurge schedules the session purge on the cron expression spec.
func (s *Scheduler) AddSessionPurge(spec string, purger SessionPurger, grace time.Duration) error {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("parse session purge schedule %q: %w", spec, err)
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		PurgeSessions(ctx, purger, grace, s.logger)
	}))
	s.logger.Info("session purge scheduled", zap.String("spec", spec), zap.Duration("grace", grace))
	return nil
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// PurgeSessions runs one purge and logs the outcome.
func PurgeSessions(ctx context.Context, purger SessionPurger, grace time.Duration, logger *zap.Logger) int64 {
	n, err := purger.PurgeExpired(ctx, grace)
	if err != nil {
		logger.Error("purge expired sessions", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.Info("expired sessions purged", zap.Int64("count", n))
	}
	return n
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
