package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearledger/reconcile-backend/internal/api/dto"
	"github.com/clearledger/reconcile-backend/internal/infrastructure/storage"
)

func newRunsRouter(repo storage.Repository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewRunsHandler(repo)
	router.GET("/api/runs", h.List)
	router.GET("/api/runs/:id", h.Get)
	return router
}

func seedRun(t *testing.T, repo *storage.MockRepository) int64 {
	t.Helper()
	runID, err := repo.StartRun(0.85, 50, false)
	require.NoError(t, err)
	require.NoError(t, repo.CompleteRun(runID, storage.RunSummary{
		Matched:         4,
		NeedsReview:     2,
		Unmatched:       1,
		Status:          "completed",
		SuggestionsJSON: `[{"score":0.7}]`,
	}))
	return runID
}

func TestRunsHandler_List(t *testing.T) {
	repo := storage.NewMockRepository()
	seedRun(t, repo)

	router := newRunsRouter(repo)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.RunListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, 4, response.Runs[0].Matched)
	assert.Empty(t, response.Runs[0].Suggestions, "list view omits suggestions")
}

func TestRunsHandler_GetIncludesSuggestions(t *testing.T) {
	repo := storage.NewMockRepository()
	runID := seedRun(t, repo)

	router := newRunsRouter(repo)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/1", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, runID, response.ID)
	assert.Equal(t, 2, response.NeedsReview)
	assert.JSONEq(t, `[{"score":0.7}]`, string(response.Suggestions))
}

func TestRunsHandler_GetInvalidID(t *testing.T) {
	router := newRunsRouter(storage.NewMockRepository())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunsHandler_GetNotFound(t *testing.T) {
	router := newRunsRouter(storage.NewMockRepository())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/42", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
