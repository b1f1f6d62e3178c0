package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/domain/ledger"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

// TransactionsHandler serves bank-feed transactions.
type TransactionsHandler struct {
	*Base
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo storage.Repository) *TransactionsHandler {
	return &TransactionsHandler{Base: NewBase(repo)}
}

// List handles GET /api/transactions - the unreconciled work queue.
func (h *TransactionsHandler) List(c *gin.Context) {
	limit := IntQuery(c, "limit", 100)

	transactions, err := h.repo.ListUnreconciledTransactions(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.TransactionListResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(transactions)),
		Count:        len(transactions),
	}
	for i := range transactions {
		response.Transactions = append(response.Transactions, toTransactionResponse(&transactions[i]))
	}

	c.JSON(http.StatusOK, response)
}

// Get handles GET /api/transactions/:id.
func (h *TransactionsHandler) Get(c *gin.Context) {
	tx, err := h.repo.GetTransaction(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, dto.NotFoundError("transaction"))
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(tx))
}

func toTransactionResponse(tx *ledger.Transaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          tx.ID,
		Amount:      tx.Amount.String(),
		Date:        tx.Date.Format("2006-01-02"),
		Description: tx.Description,
		Merchant:    tx.Merchant,
		Category:    tx.Category,
		Reconciled:  tx.Reconciled,
	}
}
