// Package handlers contains the HTTP handlers for the reconciliation
// API. Handlers translate between transport DTOs and the application
// layer; no business logic lives here.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// IntQuery parses an integer query parameter with a default value.
func IntQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
