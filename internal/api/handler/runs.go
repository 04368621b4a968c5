package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/eulergen/internal/domain"
	"github.com/timmy/eulergen/internal/logger"
	"github.com/timmy/eulergen/internal/service"
	"gorm.io/gorm"
)

// RunStore reads the run ledger. *repository.RunRepository implements it.
type RunStore interface {
	ListRuns(ctx context.Context, limit, offset int) ([]domain.GenerationRun, error)
	GetRun(ctx context.Context, id string) (*domain.GenerationRun, error)
	ListProblems(ctx context.Context, runID string) ([]domain.ProblemRecord, error)
}

// Generator starts a full generation run. *service.GenerateService implements it.
type Generator interface {
	GenerateAll(ctx context.Context) (*service.RunStats, error)
}

// RunHandler serves run history and triggers new runs.
type RunHandler struct {
	store     RunStore
	generator Generator
	base      context.Context

	mu            sync.RWMutex
	isRunning     bool
	lastStats     *service.RunStats
	lastRunTime   time.Time
	lastRunStatus string
	done          chan struct{}
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - store: run ledger reader; nil disables history endpoints.
//   - generator: generation service; nil disables the trigger endpoint.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(store RunStore, generator Generator) *RunHandler {
	return &RunHandler{store: store, generator: generator, base: context.Background()}
}

// WithBaseContext makes triggered runs stop submitting batches once ctx is canceled.
func (h *RunHandler) WithBaseContext(ctx context.Context) *RunHandler {
	h.base = ctx
	return h
}

// RunStatusResponse reports the state of the trigger endpoint.
type RunStatusResponse struct {
	IsRunning     bool              `json:"is_running"`
	LastRunTime   string            `json:"last_run_time,omitempty"`
	LastRunStatus string            `json:"last_run_status,omitempty"`
	LastStats     *service.RunStats `json:"last_stats,omitempty"`
}

// RunDetailResponse is a run together with its per-problem outcomes.
type RunDetailResponse struct {
	Run      *domain.GenerationRun  `json:"run"`
	Problems []domain.ProblemRecord `json:"problems"`
}

// ListRuns returns runs newest first, paginated by limit and offset.
func (h *RunHandler) ListRuns(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run ledger disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.store.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		logger.CtxError(c.Request.Context(), "Failed to list runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

// GetRun returns one run and its recorded problems.
func (h *RunHandler) GetRun(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run ledger disabled"})
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	run, err := h.store.GetRun(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		logger.CtxError(ctx, "Failed to get run %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}

	problems, err := h.store.ListProblems(ctx, id)
	if err != nil {
		logger.CtxError(ctx, "Failed to list problems of run %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list problems"})
		return
	}
	c.JSON(http.StatusOK, RunDetailResponse{Run: run, Problems: problems})
}

// TriggerRun starts a full generation run in the background.
// Only one run may be active at a time.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	ctx := c.Request.Context()
	if h.generator == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "generation disabled"})
		return
	}

	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Run request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": "generation is already running"})
		return
	}
	h.isRunning = true
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting generation run, client_ip=%s", c.ClientIP())

	// The run outlives the request but keeps its logger fields
	runCtx := logger.FromContext(ctx).WithContext(h.base)
	go func() {
		defer close(done)
		stats, err := h.generator.GenerateAll(runCtx)

		h.mu.Lock()
		defer h.mu.Unlock()
		h.isRunning = false
		h.lastStats = stats
		h.lastRunTime = time.Now()
		if err != nil {
			h.lastRunStatus = "failed: " + err.Error()
			logger.CtxError(runCtx, "Generation run failed: %v", err)
		} else {
			h.lastRunStatus = "success"
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "generation started"})
}

// Status reports whether a triggered run is active and how the last one ended.
func (h *RunHandler) Status(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := RunStatusResponse{
		IsRunning:     h.isRunning,
		LastRunStatus: h.lastRunStatus,
		LastStats:     h.lastStats,
	}
	if !h.lastRunTime.IsZero() {
		resp.LastRunTime = h.lastRunTime.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

// Wait blocks until the triggered run, if any, has finished.
func (h *RunHandler) Wait() {
	h.mu.RLock()
	done := h.done
	h.mu.RUnlock()
	if done != nil {
		<-done
	}
}
