// Package scheduler recomputes projection reports in the background on a
// bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrPoolStopped       = errors.New("worker pool is not running")
	ErrQueueFull         = errors.New("job queue is full")
	ErrAlreadyQueued     = errors.New("job already queued")
	ErrInvalidPoolConfig = errors.New("invalid worker pool configuration")
)

// WarmJob asks for one report to be recomputed. A nil ScenarioID is the
// baseline. Attempt counts from zero.
type WarmJob struct {
	OrganizationID uuid.UUID
	ScenarioID     *uuid.UUID
	Attempt        int
}

// key identifies the report the job produces; two jobs with the same key are
// never queued together.
func (j WarmJob) key() string {
	if j.ScenarioID == nil {
		return j.OrganizationID.String() + "/baseline"
	}
	return j.OrganizationID.String() + "/" + j.ScenarioID.String()
}

func (j WarmJob) fields() []zap.Field {
	fields := []zap.Field{zap.String("organization_id", j.OrganizationID.String()), zap.Int("attempt", j.Attempt)}
	if j.ScenarioID != nil {
		fields = append(fields, zap.String("scenario_id", j.ScenarioID.String()))
	}
	return fields
}

// Runner recomputes the report of a job
type Runner interface {
	Run(ctx context.Context, job WarmJob) error
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, job WarmJob) error

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, job WarmJob) error {
	return f(ctx, job)
}

// PoolConfig sizes the pool. A job gets Retries more attempts after its
// first failure, RetryDelay apart.
type PoolConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Retries    int
	RetryDelay time.Duration
}

// DefaultPoolConfig returns the pool settings used by the cache warmer
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:    2,
		QueueSize:  100,
		JobTimeout: time.Minute,
		Retries:    2,
		RetryDelay: 30 * time.Second,
	}
}

// Validate checks the configuration
func (c PoolConfig) Validate() error {
	switch {
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidPoolConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue size must be positive", ErrInvalidPoolConfig)
	case c.JobTimeout <= 0:
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidPoolConfig)
	case c.Retries < 0, c.RetryDelay < 0:
		return fmt.Errorf("%w: retry settings cannot be negative", ErrInvalidPoolConfig)
	}
	return nil
}

// PoolStats counts finished jobs since Start
type PoolStats struct {
	Succeeded int64
	Abandoned int64 // failed on every attempt
	Retried   int64
}

// Pool feeds warm jobs to a fixed set of workers. A job stays registered
// from Submit until it succeeds or runs out of attempts.
type Pool struct {
	config PoolConfig
	runner Runner
	logger *zap.Logger

	queue   chan WarmJob
	pending map[string]struct{}
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	workers sync.WaitGroup
	delayed sync.WaitGroup

	succeeded atomic.Int64
	abandoned atomic.Int64
	retried   atomic.Int64
}

// NewPool creates a stopped pool
func NewPool(config PoolConfig, runner Runner, logger *zap.Logger) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		config:  config,
		runner:  runner,
		logger:  logger.Named("warm_pool"),
		queue:   make(chan WarmJob, config.QueueSize),
		pending: make(map[string]struct{}),
	}, nil
}

// Start launches the workers. Starting a running pool is a no-op.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.workers.Add(p.config.Workers)
	for id := range p.config.Workers {
		go p.work(ctx, id)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)
	return nil
}

// Stop cancels in-flight jobs and pending retries, then waits for the
// workers until ctx expires.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.workers.Wait()
		p.delayed.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.logger.Info("Worker pool stopped", zap.Int64("succeeded", p.succeeded.Load()),
			zap.Int64("abandoned", p.abandoned.Load()))
		return nil
	case <-ctx.Done():
		p.logger.Warn("Worker pool stop timed out")
		return ctx.Err()
	}
}

// Running reports whether the workers are started
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns the counters since the pool was created
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Succeeded: p.succeeded.Load(),
		Abandoned: p.abandoned.Load(),
		Retried:   p.retried.Load(),
	}
}

// Submit queues a job without blocking. A job whose report is already
// queued, running or waiting for a retry is rejected with ErrAlreadyQueued.
func (p *Pool) Submit(job WarmJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrPoolStopped
	}
	key := job.key()
	if _, ok := p.pending[key]; ok {
		return ErrAlreadyQueued
	}
	if err := p.enqueue(job); err != nil {
		return err
	}
	p.pending[key] = struct{}{}
	return nil
}

// enqueue must be called with mu held
func (p *Pool) enqueue(job WarmJob) error {
	select {
	case p.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) release(job WarmJob) {
	p.mu.Lock()
	delete(p.pending, job.key())
	p.mu.Unlock()
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			p.execute(ctx, id, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, workerID int, job WarmJob) {
	log := p.logger.With(job.fields()...).With(zap.Int("worker_id", workerID))

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	started := time.Now()
	err := p.runner.Run(jobCtx, job)
	cancel()

	if err == nil {
		p.succeeded.Add(1)
		p.release(job)
		log.Debug("Report warmed", zap.Duration("took", time.Since(started)))
		return
	}
	if job.Attempt >= p.config.Retries || ctx.Err() != nil {
		p.abandoned.Add(1)
		p.release(job)
		log.Error("Report warm-up abandoned", zap.Error(err))
		return
	}

	log.Warn("Report warm-up failed, retrying", zap.Duration("delay", p.config.RetryDelay), zap.Error(err))
	p.retried.Add(1)
	job.Attempt++
	p.retryAfter(ctx, job, log)
}

// retryAfter re-queues job once RetryDelay has passed, unless the pool stops
// first. The job keeps its pending slot meanwhile.
func (p *Pool) retryAfter(ctx context.Context, job WarmJob, log *zap.Logger) {
	p.delayed.Add(1)
	go func() {
		defer p.delayed.Done()
		timer := time.NewTimer(p.config.RetryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			p.release(job)
			return
		case <-timer.C:
		}

		p.mu.Lock()
		err := p.enqueue(job)
		if err != nil {
			delete(p.pending, job.key())
		}
		p.mu.Unlock()
		if err != nil {
			p.abandoned.Add(1)
			log.Warn("Failed to re-queue report warm-up", zap.Error(err))
		}
	}()
}
