// Package scheduler runs a job on a cron schedule for xtreamctl watch mode.
// Runs never overlap: a tick that arrives while the previous run is still
// going is skipped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"

	"github.com/jmylchreest/xtreamctl/internal/observability"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a 6-field cron expression (seconds first).
type Scheduler struct {
	mu sync.Mutex

	logger *slog.Logger

	// cron parser for validating/parsing cron expressions
	parser cron.Parser

	jobTimeout time.Duration
	runOnStart bool

	// Running state
	ctx    context.Context
	cancel context.CancelFunc
	cron   *cron.Cron
	entry  cron.EntryID
	wg     sync.WaitGroup
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// JobTimeout bounds a single run. Zero means no limit.
	JobTimeout time.Duration

	// RunOnStart runs the job once immediately when the scheduler starts.
	RunOnStart bool
}

// NewScheduler creates a new scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		logger: slog.Default(),
		parser: cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// WithConfig applies configuration to the scheduler.
func (s *Scheduler) WithConfig(config SchedulerConfig) *Scheduler {
	if config.JobTimeout > 0 {
		s.jobTimeout = config.JobTimeout
	}
	s.runOnStart = config.RunOnStart
	return s
}

// Start schedules job under name using expr. The job's context is
// cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context, expr, name string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = cron.New(cron.WithParser(s.parser), cron.WithLogger(cronLogger{s.logger}))

	wrapped := cron.NewChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	).Then(cron.FuncJob(func() { s.run(name, job) }))

	s.entry = s.cron.Schedule(schedule, wrapped)
	s.cron.Start()

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			wrapped.Run()
		}()
	}

	s.logger.Info("scheduler started",
		slog.String("job", name),
		slog.String("schedule", expr),
		slog.Time("next_run", schedule.Next(time.Now())))

	return nil
}

// Stop cancels any running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ctx == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	stopped := s.cron.Stop()
	s.mu.Unlock()

	<-stopped.Done()
	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.cron = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// Next returns the next scheduled run, or the zero time when not started.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) run(name string, job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}

	// Each run gets its own correlation id, shared by everything the job logs.
	runID := ulid.Make().String()
	ctx = observability.ContextWithCorrelationID(ctx, runID)
	logger := observability.WithCorrelationID(s.logger, runID)

	start := time.Now()
	logger.Debug("scheduled job started", slog.String("job", name))
	if err := job(ctx); err != nil {
		observability.WithError(logger, err).Error("scheduled job failed",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)))
		return
	}
	logger.Info("scheduled job completed",
		slog.String("job", name),
		slog.Duration("duration", time.Since(start)))
}

// ValidateCron validates a cron expression.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.parser.Parse(expr)
	return err
}

// cronLogger forwards robfig/cron's logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
