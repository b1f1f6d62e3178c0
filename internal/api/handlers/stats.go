package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

// StatsHandler serves aggregate bookkeeping statistics.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{Base: NewBase(repo)}
}

// Get handles GET /api/stats.
func (h *StatsHandler) Get(c *gin.Context) {
	stats, err := h.repo.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	c.JSON(http.StatusOK, dto.StatsResponse{
		TotalTransactions:      stats.TotalTransactions,
		ReconciledTransactions: stats.ReconciledTransactions,
		CategorizedCount:       stats.CategorizedCount,
		OpenInvoices:           stats.OpenInvoices,
		TotalExpenses:          stats.TotalExpenses,
		TotalRuns:              stats.TotalRuns,
	})
}
