package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/application/reconcile"
	"github.com/clearledger/reconcile-backend/internal/application/service"
)

// stubRunner returns a fixed report immediately.
type stubRunner struct {
	report *reconcile.Report
}

func (s *stubRunner) Run(_ context.Context, _ reconcile.Options) (*reconcile.Report, error) {
	if s.report != nil {
		return s.report, nil
	}
	return &reconcile.Report{}, nil
}

func newReconcileRouter(svc *service.ReconcileService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewReconcileHandler(svc)
	router.POST("/api/reconcile", h.Start)
	router.GET("/api/reconcile", h.List)
	router.GET("/api/reconcile/:jobId", h.Get)
	router.DELETE("/api/reconcile/:jobId", h.Cancel)
	return router
}

func newTestService(runner service.Runner) *service.ReconcileService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return service.NewReconcileService(runner, logger)
}

func waitForJob(t *testing.T, router *gin.Engine, jobID string, want string) dto.JobResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reconcile/"+jobID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var job dto.JobResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
		if job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return dto.JobResponse{}
}

func TestReconcileHandler_StartAndPoll(t *testing.T) {
	runner := &stubRunner{report: &reconcile.Report{RunID: 7, Matched: 3, NeedsReview: 1}}
	router := newReconcileRouter(newTestService(runner))

	body := strings.NewReader(`{"dry_run": true, "max_transactions": 10}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", body))

	require.Equal(t, http.StatusAccepted, w.Code)

	var started dto.StartRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	require.NotEmpty(t, started.JobID)
	assert.True(t, started.DryRun)

	job := waitForJob(t, router, started.JobID, "completed")
	require.NotNil(t, job.Report)
	assert.Equal(t, int64(7), job.Report.RunID)
	assert.Equal(t, 3, job.Report.Matched)
	assert.Equal(t, 1, job.Report.NeedsReview)
}

func TestReconcileHandler_StartWithEmptyBody(t *testing.T) {
	router := newReconcileRouter(newTestService(&stubRunner{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestReconcileHandler_StartRejectsBadThreshold(t *testing.T) {
	router := newReconcileRouter(newTestService(&stubRunner{}))

	body := strings.NewReader(`{"auto_apply_threshold": 1.5}`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "auto_apply_threshold")
}

func TestReconcileHandler_StartRejectsMalformedBody(t *testing.T) {
	router := newReconcileRouter(newTestService(&stubRunner{}))

	body := strings.NewReader(`{not json`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReconcileHandler_GetNotFound(t *testing.T) {
	router := newReconcileRouter(newTestService(&stubRunner{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reconcile/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReconcileHandler_List(t *testing.T) {
	svc := newTestService(&stubRunner{})
	router := newReconcileRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var started dto.StartRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	waitForJob(t, router, started.JobID, "completed")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reconcile", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list dto.JobListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	// Active filter excludes finished jobs.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reconcile?active=true", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)
}

func TestReconcileHandler_CancelFinishedJobConflicts(t *testing.T) {
	router := newReconcileRouter(newTestService(&stubRunner{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var started dto.StartRunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	waitForJob(t, router, started.JobID, "completed")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/reconcile/"+started.JobID, nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
