// Package scheduler runs discovery periodically for watch mode. It keeps
// the latest result and notifies listeners after every run.
package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/rtspscout/internal/config"
	"github.com/anstrom/rtspscout/internal/discovery"
	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/report"
)

// Run triggers.
const (
	TriggerSchedule = "schedule"
	TriggerStartup  = "startup"
	TriggerManual   = "manual"
)

var (
	// ErrRunInProgress is returned when a run is requested while one is active.
	ErrRunInProgress = stderrors.New("discovery run already in progress")
	// ErrNotRunning is returned when triggering a stopped scheduler.
	ErrNotRunning = stderrors.New("scheduler is not running")
)

// Discoverer runs one discovery.
type Discoverer interface {
	Discover(ctx context.Context) (*report.ScanReport, error)
}

// Run is the outcome of one discovery run.
type Run struct {
	ID         uuid.UUID
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	Report     *report.ScanReport
	Err        error
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the run produced a report.
func (r *Run) Succeeded() bool {
	return r.Err == nil && r.Report != nil
}

// Listener is called after each run completes.
type Listener func(run *Run)

// Scheduler runs discovery on a cron schedule. Runs never overlap.
type Scheduler struct {
	discoverer Discoverer
	config     config.WatchConfig
	cron       *cron.Cron
	logger     *logging.Logger

	mu        sync.RWMutex
	running   bool
	entryID   cron.EntryID
	latest    *Run
	lastGood  *Run
	listeners map[int]Listener
	nextID    int

	runMu  sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler. The schedule is validated but nothing
// runs until Start.
func NewScheduler(d Discoverer, cfg config.WatchConfig, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Schedule, err)
	}

	s := &Scheduler{
		discoverer: d,
		config:     cfg,
		logger:     logging.Default().WithComponent("scheduler"),
		listeners:  make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.logger}),
		cron.SkipIfStillRunning(cronLogger{s.logger}),
	))
	return s, nil
}

// Start schedules discovery and, if configured, starts a run right away.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.execute(TriggerSchedule)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.entryID = entryID
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "schedule", s.config.Schedule)

	if s.config.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.execute(TriggerStartup)
		}()
	}
	return nil
}

// Stop cancels any active run and waits for it to finish or for ctx to
// expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cron.Remove(s.entryID)
	cronDone := s.cron.Stop()
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger starts a run in the background. It fails if the scheduler is
// stopped or a run is already active.
func (s *Scheduler) Trigger() error {
	// s.mu is held across wg.Add so Stop cannot already be in wg.Wait.
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}
	if !s.runMu.TryLock() {
		return ErrRunInProgress
	}

	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		s.run(ctx, TriggerManual)
	}()
	return nil
}

// RunNow runs discovery synchronously and returns the result.
func (s *Scheduler) RunNow(ctx context.Context) (*Run, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.run(ctx, TriggerManual), nil
}

// Latest returns the most recent completed run.
func (s *Scheduler) Latest() (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// LatestReport returns the most recent successful run.
func (s *Scheduler) LatestReport() (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastGood, s.lastGood != nil
}

// NextRun returns when the next scheduled run starts, or the zero time if
// the scheduler is stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Subscribe registers a listener and returns a function removing it.
func (s *Scheduler) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Scheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

func (s *Scheduler) execute(trigger string) {
	if !s.runMu.TryLock() {
		s.logger.Warn("Skipping run, previous run still active", "trigger", trigger)
		return
	}
	defer s.runMu.Unlock()
	s.run(s.runContext(), trigger)
}

func (s *Scheduler) run(ctx context.Context, trigger string) *Run {
	run := &Run{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	logger := s.logger.WithRunID(run.ID.String())
	logger.Info("Run started", "trigger", trigger)

	run.Report, run.Err = s.discoverer.Discover(discovery.ContextWithRunID(ctx, run.ID.String()))
	run.FinishedAt = time.Now()

	if run.Err != nil {
		logger.Error("Run failed", "error", run.Err, "duration", run.Duration())
	} else {
		logger.Info("Run finished", "duration", run.Duration())
	}

	s.mu.Lock()
	s.latest = run
	if run.Succeeded() {
		s.lastGood = run
	}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(run)
	}
	return run
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
