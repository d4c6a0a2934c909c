// Package scheduler runs the periodic background jobs: the risk data
// refresh and the session sweep
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobFunc is the body of a scheduled job
type JobFunc func(ctx context.Context) error

// Scheduler wraps a cron runner. Jobs get a context that is cancelled on Stop
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.SugaredLogger
	ctx    context.Context
	cancel context.CancelFunc

	mutex sync.Mutex
	jobs  map[string]JobFunc
}

// New creates a stopped scheduler
func New(logger *zap.SugaredLogger) *Scheduler {
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]JobFunc),
	}
}

// Add registers a job under a standard five-field cron schedule
func (s *Scheduler) Add(name, schedule string, fn JobFunc) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s is already scheduled", name)
	}
	_, err := s.cron.AddFunc(schedule, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("failed to set up cron job %s: %w", name, err)
	}
	s.jobs[name] = fn
	s.logger.Infof("Job %s has been scheduled (%s)", name, schedule)
	return nil
}

// RunNow runs a registered job once, synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mutex.Lock()
	fn, ok := s.jobs[name]
	s.mutex.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	return s.run(name, fn)
}

func (s *Scheduler) run(name string, fn JobFunc) error {
	s.logger.Debugf("Running job %s", name)
	if err := fn(s.ctx); err != nil {
		s.logger.Warnf("Scheduled job %s failed: %v", name, err)
		return err
	}
	return nil
}

// Start begins running jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return or for ctx to end
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warnf("Scheduler stopped before jobs finished: %v", ctx.Err())
	}
}

// cronLogger adapts zap to cron's logger interface
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
