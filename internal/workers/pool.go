// Package workers provides a bounded worker pool for concurrent probe
// execution in fwprobe. It supports job queuing, optional rate limiting and
// graceful shutdown, and integrates with the structured logging and metrics
// systems. At most Size jobs are in flight at any instant.
package workers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwprobe/fwprobe/internal/logging"
)

// Job represents a unit of work to be executed by a worker.
type Job interface {
	// Execute performs the job. The context is canceled when the pool shuts
	// down; the job is responsible for its own per-attempt timeout.
	Execute(ctx context.Context) error
	// ID returns a unique identifier for the job.
	ID() string
	// Type returns the job type for metrics and logging.
	Type() string
}

// Result represents the result of executing a job. Domain payloads travel
// through the job's own sink; the pool only reports execution outcome.
type Result struct {
	JobID    string
	JobType  string
	Error    error
	Duration time.Duration
}

// Config holds configuration for the worker pool.
type Config struct {
	// Size is the number of worker goroutines to create.
	Size int
	// QueueSize is the maximum number of jobs that can be queued.
	QueueSize int
	// ShutdownTimeout is the maximum time to wait for workers to finish.
	ShutdownTimeout time.Duration
	// RateLimit is the maximum number of jobs per second (0 = no limit).
	RateLimit int
}

// DefaultConfig returns a default worker pool configuration.
func DefaultConfig() Config {
	return Config{
		Size:            10,
		QueueSize:       100,
		ShutdownTimeout: 30 * time.Second,
		RateLimit:       0,
	}
}

// Pool manages a pool of worker goroutines for concurrent job execution.
type Pool struct {
	config      Config
	jobs        chan Job
	results     chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	rateLimiter *time.Ticker
	startOnce   sync.Once
	drainOnce   sync.Once
	shutdown32  int32 // atomic shutdown flag
}

// worker represents a single worker goroutine.
type worker struct {
	id   int
	pool *Pool
}

// New creates a new worker pool with the given configuration.
func New(config Config) *Pool {
	if config.Size <= 0 {
		config.Size = 1
	}
	if config.QueueSize < config.Size {
		config.QueueSize = config.Size
	}

	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		config:  config,
		jobs:    make(chan Job, config.QueueSize),
		results: make(chan Result, config.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	if config.RateLimit > 0 {
		interval := time.Second / time.Duration(config.RateLimit)
		pool.rateLimiter = time.NewTicker(interval)
	}

	return pool
}

// Start begins the worker pool operations.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		logging.Debug("Starting worker pool",
			"worker_count", p.config.Size,
			"queue_size", p.config.QueueSize,
			"rate_limit", p.config.RateLimit)

		for i := 0; i < p.config.Size; i++ {
			w := &worker{id: i, pool: p}
			p.wg.Add(1)
			go w.run()
		}
	})
}

// Submit adds a job to the worker pool queue. It blocks while the queue is
// full so callers can feed an arbitrarily large work set through a bounded
// queue.
func (p *Pool) Submit(job Job) error {
	if atomic.LoadInt32(&p.shutdown32) == 1 {
		return fmt.Errorf("worker pool is shut down")
	}

	select {
	case p.jobs <- job:
		logging.Debug("Job submitted to worker pool",
			"job_id", job.ID(),
			"job_type", job.Type())
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns a channel for receiving job execution outcomes.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Drain closes the job queue and waits for all queued jobs to finish. The
// results channel is closed once the last worker exits, so consumers can
// range over Results().
func (p *Pool) Drain() {
	p.drainOnce.Do(func() {
		atomic.StoreInt32(&p.shutdown32, 1)
		close(p.jobs)

		go func() {
			p.wg.Wait()
			close(p.results)
			if p.rateLimiter != nil {
				p.rateLimiter.Stop()
			}
		}()
	})
}

// Shutdown aborts the pool without waiting for queued jobs. In-flight jobs
// are allowed to hit their own timeouts; queued jobs are discarded.
func (p *Pool) Shutdown() error {
	if !atomic.CompareAndSwapInt32(&p.shutdown32, 0, 1) {
		return nil
	}

	logging.Debug("Shutting down worker pool")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Debug("Worker pool shutdown completed")
	case <-time.After(p.config.ShutdownTimeout):
		logging.Warn("Worker pool shutdown timeout, forcing termination")
		<-done
	}

	close(p.results)
	if p.rateLimiter != nil {
		p.rateLimiter.Stop()
	}
	return nil
}

// run executes the worker loop.
func (w *worker) run() {
	defer w.pool.wg.Done()

	logging.Debug("Worker started", "worker_id", w.id)
	defer logging.Debug("Worker stopped", "worker_id", w.id)

	for {
		select {
		case job, ok := <-w.pool.jobs:
			if !ok {
				return
			}
			w.executeJob(job)

		case <-w.pool.ctx.Done():
			return
		}
	}
}

// executeJob executes a single job. Each job is attempted exactly once; the
// probe layer treats a failed attempt as a terminal outcome, not a retryable
// condition.
func (w *worker) executeJob(job Job) {
	if w.pool.rateLimiter != nil {
		select {
		case <-w.pool.rateLimiter.C:
		case <-w.pool.ctx.Done():
			return
		}
	}

	start := time.Now()
	err := job.Execute(w.pool.ctx)
	duration := time.Since(start)

	w.pool.results <- Result{
		JobID:    job.ID(),
		JobType:  job.Type(),
		Error:    err,
		Duration: duration,
	}

	if err != nil {
		logging.Debug("Job failed",
			"job_id", job.ID(),
			"job_type", job.Type(),
			"duration", duration,
			"worker_id", w.id,
			"error", err)
		return
	}
	logging.Debug("Job completed",
		"job_id", job.ID(),
		"job_type", job.Type(),
		"duration", duration,
		"worker_id", w.id)
}

// FuncJob adapts a closure to the Job interface.
type FuncJob struct {
	id      string
	jobType string
	fn      func(ctx context.Context) error
}

// NewFuncJob creates a job from a closure.
func NewFuncJob(id, jobType string, fn func(ctx context.Context) error) *FuncJob {
	return &FuncJob{id: id, jobType: jobType, fn: fn}
}

// Execute implements the Job interface.
func (j *FuncJob) Execute(ctx context.Context) error {
	return j.fn(ctx)
}

// ID implements the Job interface.
func (j *FuncJob) ID() string {
	return j.id
}

// Type implements the Job interface.
func (j *FuncJob) Type() string {
	return j.jobType
}
