// Package service manages asynchronous reconciliation jobs on top of
// the batch orchestrator. Jobs run in background goroutines and are
// tracked in memory; only one reconciliation runs at a time.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/reconcile-backend/internal/application/reconcile"
)

// JobStatus represents the current state of a reconciliation job.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Job staleness thresholds
const (
	// DefaultJobStaleThreshold is how long a job can go without progress
	// before being considered hung or crashed.
	DefaultJobStaleThreshold = 10 * time.Minute

	// DefaultJobMaxDuration is the maximum time a job can run before
	// being forcefully marked as failed.
	DefaultJobMaxDuration = 30 * time.Minute
)

// RunRequest holds parameters for starting a reconciliation.
type RunRequest struct {
	DryRun             bool
	AutoApplyThreshold float64
	MaxTransactions    int
}

// Job represents a running or completed reconciliation job.
type Job struct {
	ID          string
	Status      JobStatus
	Request     RunRequest
	StartedAt   time.Time
	CompletedAt *time.Time
	LastUpdate  time.Time
	Report      *reconcile.Report
	Error       error
	cancelFunc  context.CancelFunc
}

// Runner is the batch entry point the service drives. Satisfied by
// *reconcile.Orchestrator.
type Runner interface {
	Run(ctx context.Context, opts reconcile.Options) (*reconcile.Report, error)
}

// ReconcileService manages reconciliation jobs.
type ReconcileService struct {
	runner Runner
	logger *slog.Logger

	// Job management
	jobs      map[string]*Job
	jobsMutex sync.RWMutex

	// Only one reconciliation at a time; concurrent runs would race on
	// the unreconciled transaction pool. A one-slot semaphore keeps
	// release idempotent: both the job goroutine and the stale-job
	// sweep may try to free it.
	runSlot chan struct{}

	// Background cleanup
	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

// NewReconcileService creates a new reconciliation job service.
func NewReconcileService(runner Runner, logger *slog.Logger) *ReconcileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconcileService{
		runner:  runner,
		logger:  logger,
		jobs:    make(map[string]*Job),
		runSlot: make(chan struct{}, 1),
	}
}

// StartRun starts a new reconciliation job asynchronously.
// Note: the passed context is NOT used as the parent for the background
// job. Jobs use context.Background() so they survive the HTTP request
// that started them. Use CancelRun() to cancel a running job.
func (s *ReconcileService) StartRun(_ context.Context, req RunRequest) (string, error) {
	select {
	case s.runSlot <- struct{}{}:
	default:
		return "", fmt.Errorf("a reconciliation run is already in progress")
	}

	jobID := uuid.NewString()

	jobCtx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	job := &Job{
		ID:         jobID,
		Status:     StatusPending,
		Request:    req,
		StartedAt:  now,
		LastUpdate: now,
		cancelFunc: cancel,
	}

	s.jobsMutex.Lock()
	s.jobs[jobID] = job
	s.jobsMutex.Unlock()

	go s.runJob(jobCtx, job)

	s.logger.Info("reconciliation job started",
		"job_id", jobID,
		"dry_run", req.DryRun,
		"threshold", req.AutoApplyThreshold,
		"max_transactions", req.MaxTransactions,
	)

	return jobID, nil
}

// GetJob retrieves a job by ID.
func (s *ReconcileService) GetJob(jobID string) (*Job, error) {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return job, nil
}

// ListActiveJobs returns all running or pending jobs.
func (s *ReconcileService) ListActiveJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	var active []*Job
	for _, job := range s.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			active = append(active, job)
		}
	}
	return active
}

// ListAllJobs returns all tracked jobs.
func (s *ReconcileService) ListAllJobs() []*Job {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelRun cancels a running reconciliation job.
func (s *ReconcileService) CancelRun(jobID string) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if job.Status != StatusPending && job.Status != StatusRunning {
		return fmt.Errorf("job cannot be cancelled: status=%s", job.Status)
	}

	job.cancelFunc()
	job.Status = StatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	job.LastUpdate = now

	s.logger.Info("reconciliation job cancelled", "job_id", jobID)
	return nil
}

// runJob executes the reconciliation in a background goroutine.
func (s *ReconcileService) runJob(ctx context.Context, job *Job) {
	defer s.releaseRunSlot()

	s.setStatus(job.ID, StatusRunning)

	opts := reconcile.DefaultOptions()
	opts.DryRun = job.Request.DryRun
	opts.MaxTransactions = job.Request.MaxTransactions
	if job.Request.AutoApplyThreshold > 0 {
		opts.AutoApplyThreshold = job.Request.AutoApplyThreshold
	}

	report, err := s.runner.Run(ctx, opts)
	if err != nil {
		if ctx.Err() == context.Canceled {
			// Already marked as cancelled in CancelRun.
			return
		}
		s.failJob(job.ID, err)
		return
	}

	s.completeJob(job.ID, report)
}

func (s *ReconcileService) setStatus(jobID string, status JobStatus) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		job.Status = status
		job.LastUpdate = time.Now()
	}
}

// completeJob marks a job as completed with its report.
func (s *ReconcileService) completeJob(jobID string, report *reconcile.Report) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusCompleted
		job.CompletedAt = &now
		job.LastUpdate = now
		job.Report = report
		s.logger.Info("reconciliation job completed",
			"job_id", jobID,
			"matched", report.Matched,
			"needs_review", report.NeedsReview,
			"unmatched", report.Unmatched,
			"categorized", report.Categorized,
		)
	}
}

// failJob marks a job as failed with an error.
func (s *ReconcileService) failJob(jobID string, err error) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job, exists := s.jobs[jobID]; exists {
		now := time.Now()
		job.Status = StatusFailed
		job.CompletedAt = &now
		job.LastUpdate = now
		job.Error = err
		s.logger.Error("reconciliation job failed", "job_id", jobID, "error", err)
	}
}

// CleanupOldJobs removes finished jobs older than maxAge.
func (s *ReconcileService) CleanupOldJobs(maxAge time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for id, job := range s.jobs {
		if job.Status == StatusCompleted || job.Status == StatusFailed || job.Status == StatusCancelled {
			if job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
				delete(s.jobs, id)
				removed++
			}
		}
	}

	if removed > 0 {
		s.logger.Debug("cleaned up old reconciliation jobs", "removed", removed)
	}
	return removed
}

// MarkStaleJobsAsFailed finds jobs that appear to be stuck and marks
// them as failed. A job is stale if it has run longer than maxDuration
// or has not updated within staleThreshold. This covers goroutine
// panics and jobs orphaned by a restart.
func (s *ReconcileService) MarkStaleJobsAsFailed(staleThreshold, maxDuration time.Duration) int {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	now := time.Now()
	marked := 0

	for id, job := range s.jobs {
		if job.Status != StatusRunning && job.Status != StatusPending {
			continue
		}

		isStale := false
		reason := ""

		if now.Sub(job.StartedAt) > maxDuration {
			isStale = true
			reason = fmt.Sprintf("exceeded max duration of %v (started %v ago)", maxDuration, now.Sub(job.StartedAt).Round(time.Second))
		}

		if !isStale && now.Sub(job.LastUpdate) > staleThreshold {
			isStale = true
			reason = fmt.Sprintf("no update for %v (threshold: %v)", now.Sub(job.LastUpdate).Round(time.Second), staleThreshold)
		}

		if isStale {
			if job.cancelFunc != nil {
				job.cancelFunc()
			}

			job.Status = StatusFailed
			job.CompletedAt = &now
			job.LastUpdate = now
			job.Error = fmt.Errorf("job marked as stale: %s", reason)

			s.releaseRunSlot()

			s.logger.Warn("marked stale job as failed",
				"job_id", id,
				"reason", reason,
				"started_at", job.StartedAt,
			)

			marked++
		}
	}

	return marked
}

// releaseRunSlot frees the run slot. Safe to call when the slot is
// already free.
func (s *ReconcileService) releaseRunSlot() {
	select {
	case <-s.runSlot:
	default:
	}
}

// StartBackgroundCleanup starts a goroutine that periodically marks
// stale jobs as failed and removes old finished jobs. Call
// StopBackgroundCleanup to stop it.
func (s *ReconcileService) StartBackgroundCleanup(checkInterval time.Duration) {
	s.cleanupStop = make(chan struct{})
	s.cleanupDone = make(chan struct{})

	go func() {
		defer close(s.cleanupDone)

		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()

		s.logger.Info("background job cleanup started",
			"check_interval", checkInterval,
			"stale_threshold", DefaultJobStaleThreshold,
			"max_duration", DefaultJobMaxDuration,
		)

		for {
			select {
			case <-s.cleanupStop:
				s.logger.Info("background job cleanup stopped")
				return
			case <-ticker.C:
				staleMarked := s.MarkStaleJobsAsFailed(DefaultJobStaleThreshold, DefaultJobMaxDuration)
				if staleMarked > 0 {
					s.logger.Info("marked stale jobs as failed", "count", staleMarked)
				}

				cleaned := s.CleanupOldJobs(24 * time.Hour)
				if cleaned > 0 {
					s.logger.Debug("cleaned up old jobs", "count", cleaned)
				}
			}
		}
	}()
}

// StopBackgroundCleanup stops the background cleanup goroutine and
// blocks until it has fully stopped.
func (s *ReconcileService) StopBackgroundCleanup() {
	if s.cleanupStop == nil {
		return
	}
	close(s.cleanupStop)
	<-s.cleanupDone
}
