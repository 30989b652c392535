// Package worker provides background persistence for finished comparisons.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"github.com/ewilliams-labs/artistcompare/internal/core/domain"
	"github.com/ewilliams-labs/artistcompare/internal/core/ports"
	"github.com/ewilliams-labs/artistcompare/internal/logging"
)

const (
	saveTimeout  = 5 * time.Second
	saveAttempts = 3
	saveDelay    = 50 * time.Millisecond
)

// Job is one comparison waiting to be stored.
type Job struct {
	Comparison domain.Comparison
}

// Pool manages background workers that write comparisons to the repository.
type Pool struct {
	repo    ports.ComparisonRepository
	jobs    chan Job
	workers int
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

var _ ports.ComparisonRecorder = (*Pool)(nil)

// NewPool creates a worker pool with the given worker count and queue size.
func NewPool(repo ports.ComparisonRepository, workers int, queueSize int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		repo:    repo,
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  logger.With("component", "worker"),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to be written.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. Jobs are dropped when the queue is
// full or the pool has stopped.
func (p *Pool) Submit(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("dropping comparison, pool stopped", "run_id", job.Comparison.RunID.String())
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		p.logger.Warn("dropping comparison, queue full", "run_id", job.Comparison.RunID.String())
		return false
	}
}

// Record implements ports.ComparisonRecorder.
func (p *Pool) Record(c domain.Comparison) {
	p.Submit(Job{Comparison: c})
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	runID := job.Comparison.RunID.String()
	err := retry.Do(
		func() error {
			return p.repo.Save(ctx, job.Comparison)
		},
		retry.Attempts(saveAttempts),
		retry.Delay(saveDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Debug("save attempt failed", "run_id", runID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		p.logger.Warn("failed to save comparison", "run_id", runID, "error", err)
		return
	}
	p.logger.Debug("saved comparison", "run_id", runID,
		"left", job.Comparison.Left.Name, "right", job.Comparison.Right.Name)
}
