package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/application/service"
)

// ReconcileHandler handles reconciliation job requests.
type ReconcileHandler struct {
	service *service.ReconcileService
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(svc *service.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{service: svc}
}

// Start handles POST /api/reconcile - starts a new reconciliation job.
func (h *ReconcileHandler) Start(c *gin.Context) {
	var req dto.StartRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid request body"))
			return
		}
	}

	if req.AutoApplyThreshold < 0 || req.AutoApplyThreshold > 1 {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("auto_apply_threshold must be between 0 and 1"))
		return
	}
	if req.MaxTransactions < 0 {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("max_transactions must not be negative"))
		return
	}

	jobID, err := h.service.StartRun(c.Request.Context(), service.RunRequest{
		DryRun:             req.DryRun,
		AutoApplyThreshold: req.AutoApplyThreshold,
		MaxTransactions:    req.MaxTransactions,
	})
	if err != nil {
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, dto.StartRunResponse{
		JobID:  jobID,
		Status: string(service.StatusPending),
		DryRun: req.DryRun,
	})
}

// Get handles GET /api/reconcile/:jobId - returns job status.
func (h *ReconcileHandler) Get(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := h.service.GetJob(jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("reconciliation job"))
		return
	}

	c.JSON(http.StatusOK, toJobResponse(job))
}

// List handles GET /api/reconcile - lists all jobs.
// Pass ?active=true to restrict to pending and running jobs.
func (h *ReconcileHandler) List(c *gin.Context) {
	var jobs []*service.Job
	if c.Query("active") == "true" {
		jobs = h.service.ListActiveJobs()
	} else {
		jobs = h.service.ListAllJobs()
	}

	response := dto.JobListResponse{
		Jobs:  make([]dto.JobResponse, 0, len(jobs)),
		Count: len(jobs),
	}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, toJobResponse(job))
	}

	c.JSON(http.StatusOK, response)
}

// Cancel handles DELETE /api/reconcile/:jobId - cancels a running job.
func (h *ReconcileHandler) Cancel(c *gin.Context) {
	jobID := c.Param("jobId")

	if err := h.service.CancelRun(jobID); err != nil {
		c.JSON(http.StatusConflict, dto.ConflictError(err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "reconciliation job cancelled"})
}

// toJobResponse converts a service model to an API response.
func toJobResponse(job *service.Job) dto.JobResponse {
	response := dto.JobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		DryRun:    job.Request.DryRun,
		StartedAt: job.StartedAt.Format(time.RFC3339),
	}

	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}

	if job.Report != nil {
		response.Report = &dto.ReportResponse{
			RunID:        job.Report.RunID,
			Matched:      job.Report.Matched,
			NeedsReview:  job.Report.NeedsReview,
			Unmatched:    job.Report.Unmatched,
			Categorized:  job.Report.Categorized,
			FailedWrites: job.Report.FailedWrites,
		}
	}

	if job.Error != nil {
		errMsg := job.Error.Error()
		response.Error = &errMsg
	}

	return response
}
