// Package workers runs the jobs of one pipeline stage on a bounded pool of
// goroutines. A stage is a barrier: Run returns only after every job that
// was started has finished. The first failing job, including one that
// panics, cancels the context of the remaining jobs and becomes the
// stage's error.
package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anstrom/rtspscout/internal/logging"
	"github.com/anstrom/rtspscout/internal/metrics"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job and returns an error if it fails.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Job statuses reported to metrics.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusPanic   = "panic"
)

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the maximum number of jobs running at once.
	Size int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{Size: 64}
}

// Pool executes batches of jobs with bounded concurrency. A Pool holds no
// goroutines between calls and may be shared by concurrent callers; the
// limit applies per Run call.
type Pool struct {
	config  Config
	logger  *logging.Logger
	metrics metrics.Recorder
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithMetrics sets the recorder job outcomes are reported to.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(p *Pool) {
		p.metrics = recorder
	}
}

// New creates a new worker pool with the given configuration.
func New(config Config, opts ...Option) *Pool {
	if config.Size <= 0 {
		config.Size = DefaultConfig().Size
	}
	p := &Pool{
		config:  config,
		logger:  logging.Default().WithComponent("workers"),
		metrics: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int {
	return p.config.Size
}

// PanicError is returned for a job that panicked.
type PanicError struct {
	JobID   string
	JobType string
	Value   any
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s job %s panicked: %v", e.JobType, e.JobID, e.Value)
}

// Run executes jobs with at most Size of them in flight and waits for all
// of them. Jobs not yet started when another job fails are skipped.
func (p *Pool) Run(ctx context.Context, jobs []Job) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Size)

	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return p.execute(gctx, job)
		})
	}

	return g.Wait()
}

func (p *Pool) execute(ctx context.Context, job Job) (err error) {
	start := time.Now()
	status := StatusSuccess

	defer func() {
		if r := recover(); r != nil {
			status = StatusPanic
			err = &PanicError{
				JobID:   job.ID(),
				JobType: job.Type(),
				Value:   r,
				Stack:   debug.Stack(),
			}
			p.logger.Error("Job panicked",
				"job_id", job.ID(),
				"job_type", job.Type(),
				"panic", r)
		} else if err != nil {
			status = StatusFailure
		}

		duration := time.Since(start)
		p.metrics.RecordJob(job.Type(), status, duration)
		p.logger.Debug("Job finished",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"status", status,
			"duration", duration)
	}()

	return job.Execute(ctx)
}

type funcJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

func (j *funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }
func (j *funcJob) ID() string                        { return j.id }
func (j *funcJob) Type() string                      { return j.jobType }

// NewJob wraps a function as a Job.
func NewJob(id, jobType string, fn func(ctx context.Context) error) Job {
	return &funcJob{id: id, jobType: jobType, fn: fn}
}

// Map runs fn for every item on the pool and returns the results in item
// order. If any call fails the first error is returned and the results are
// discarded.
func Map[T, R any](ctx context.Context, p *Pool, jobType string, items []T,
	fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	jobs := make([]Job, len(items))

	for i, item := range items {
		jobs[i] = NewJob(fmt.Sprintf("%s-%d", jobType, i), jobType, func(ctx context.Context) error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := p.Run(ctx, jobs); err != nil {
		return nil, err
	}
	return results, nil
}
