package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

// RunsHandler serves historical reconciliation runs.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{Base: NewBase(repo)}
}

// List handles GET /api/runs.
func (h *RunsHandler) List(c *gin.Context) {
	limit := IntQuery(c, "limit", 20)

	runs, err := h.repo.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:  make([]dto.RunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for i := range runs {
		// Suggestions are omitted from the list view; fetch a single
		// run to see them.
		run := toRunResponse(&runs[i])
		run.Suggestions = nil
		response.Runs = append(response.Runs, run)
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/runs/:id.
func (h *RunsHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid run ID"))
		return
	}

	run, err := h.repo.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run))
}

func toRunResponse(run *storage.ReconcileRun) dto.RunResponse {
	response := dto.RunResponse{
		ID:              run.ID,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
		Threshold:       run.Threshold,
		MaxTransactions: run.MaxTransactions,
		DryRun:          run.DryRun,
		Matched:         run.Matched,
		NeedsReview:     run.NeedsReview,
		Unmatched:       run.Unmatched,
		Categorized:     run.Categorized,
		FailedWrites:    run.FailedWrites,
		Status:          run.Status,
	}
	if run.SuggestionsJSON != "" {
		response.Suggestions = json.RawMessage(run.SuggestionsJSON)
	}
	return response
}
