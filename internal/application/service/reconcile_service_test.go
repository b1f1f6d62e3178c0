package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/reconcile-backend/internal/application/reconcile"
)

// fakeRunner is a controllable Runner for service tests.
type fakeRunner struct {
	mu      sync.Mutex
	calls   int
	lastOpt reconcile.Options

	report  *reconcile.Report
	err     error
	release chan struct{} // when non-nil, Run blocks until closed or ctx done
}

func (f *fakeRunner) Run(ctx context.Context, opts reconcile.Options) (*reconcile.Report, error) {
	f.mu.Lock()
	f.calls++
	f.lastOpt = opts
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.report != nil {
		return f.report, nil
	}
	return &reconcile.Report{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitForStatus(t *testing.T, svc *ReconcileService, jobID string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.GetJob(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestReconcileService_StartRunCompletes(t *testing.T) {
	runner := &fakeRunner{report: &reconcile.Report{Matched: 2, NeedsReview: 1}}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{MaxTransactions: 25})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	job := waitForStatus(t, svc, jobID, StatusCompleted)
	require.NotNil(t, job.Report)
	assert.Equal(t, 2, job.Report.Matched)
	assert.NotNil(t, job.CompletedAt)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 25, runner.lastOpt.MaxTransactions)
}

func TestReconcileService_ThresholdOverridePassedThrough(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{AutoApplyThreshold: 0.9, DryRun: true})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusCompleted)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, 0.9, runner.lastOpt.AutoApplyThreshold)
	assert.True(t, runner.lastOpt.DryRun)
}

func TestReconcileService_RejectsConcurrentRuns(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	svc := NewReconcileService(runner, testLogger())

	first, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	_, err = svc.StartRun(context.Background(), RunRequest{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already in progress")

	close(runner.release)
	waitForStatus(t, svc, first, StatusCompleted)

	// Lock released, a new run is accepted.
	second, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, second, StatusCompleted)
}

func TestReconcileService_FailedRunSurfacesError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("database unavailable")}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	job := waitForStatus(t, svc, jobID, StatusFailed)
	require.Error(t, job.Error)
	assert.Contains(t, job.Error.Error(), "database unavailable")
}

func TestReconcileService_CancelRun(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusRunning)

	require.NoError(t, svc.CancelRun(jobID))

	job, err := svc.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, job.Status)
	assert.NotNil(t, job.CompletedAt)

	// Cancelling twice is an error.
	assert.Error(t, svc.CancelRun(jobID))
}

func TestReconcileService_GetJob_NotFound(t *testing.T) {
	svc := NewReconcileService(&fakeRunner{}, testLogger())

	_, err := svc.GetJob("non-existent")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReconcileService_ListActiveJobs(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	svc := NewReconcileService(runner, testLogger())

	assert.Empty(t, svc.ListActiveJobs())

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)

	active := svc.ListActiveJobs()
	require.Len(t, active, 1)
	assert.Equal(t, jobID, active[0].ID)

	close(runner.release)
	waitForStatus(t, svc, jobID, StatusCompleted)
	assert.Empty(t, svc.ListActiveJobs())
	assert.Len(t, svc.ListAllJobs(), 1)
}

func TestReconcileService_CancelRun_NotFound(t *testing.T) {
	svc := NewReconcileService(&fakeRunner{}, testLogger())

	err := svc.CancelRun("non-existent")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReconcileService_CleanupOldJobs(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusCompleted)

	// Fresh jobs are kept.
	assert.Equal(t, 0, svc.CleanupOldJobs(time.Hour))

	// Age the job past the cutoff.
	svc.jobsMutex.Lock()
	old := time.Now().Add(-2 * time.Hour)
	svc.jobs[jobID].CompletedAt = &old
	svc.jobsMutex.Unlock()

	assert.Equal(t, 1, svc.CleanupOldJobs(time.Hour))
	assert.Empty(t, svc.ListAllJobs())
}

func TestReconcileService_MarkStaleJobsAsFailed(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	svc := NewReconcileService(runner, testLogger())

	jobID, err := svc.StartRun(context.Background(), RunRequest{})
	require.NoError(t, err)
	waitForStatus(t, svc, jobID, StatusRunning)

	// A healthy running job is untouched.
	assert.Equal(t, 0, svc.MarkStaleJobsAsFailed(time.Minute, time.Hour))

	// Backdate the last update so the job looks hung.
	svc.jobsMutex.Lock()
	svc.jobs[jobID].LastUpdate = time.Now().Add(-10 * time.Minute)
	svc.jobsMutex.Unlock()

	assert.Equal(t, 1, svc.MarkStaleJobsAsFailed(time.Minute, time.Hour))

	job, err := svc.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	require.Error(t, job.Error)
	assert.Contains(t, job.Error.Error(), "stale")
}

func TestJobStatus_Values(t *testing.T) {
	assert.Equal(t, "pending", string(StatusPending))
	assert.Equal(t, "running", string(StatusRunning))
	assert.Equal(t, "completed", string(StatusCompleted))
	assert.Equal(t, "failed", string(StatusFailed))
	assert.Equal(t, "cancelled", string(StatusCancelled))
}
