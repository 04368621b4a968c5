package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/eulergen/internal/domain"
	"gorm.io/gorm"
)

// RunRepository persists the generation run ledger.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// StartRun inserts a run in the running state.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record; Status and StartedAt are filled in when empty.
// Returns:
//   - error: non-nil if the insert fails.
func (r *RunRepository) StartRun(ctx context.Context, run *domain.GenerationRun) error {
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(run).Error
}

// RecordBatch stores the outcomes of one batch and advances the run counters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run the batch belongs to.
//   - outcomes: every outcome of the batch.
//   - lastGenerated: high-water mark after the batch.
// Returns:
//   - error: non-nil if the transaction fails.
func (r *RunRepository) RecordBatch(ctx context.Context, runID string, outcomes []domain.GenerationOutcome, lastGenerated int) error {
	var written, skipped, failed int
	records := make([]domain.ProblemRecord, 0, len(outcomes))
	for _, o := range outcomes {
		records = append(records, domain.NewProblemRecord(runID, o))
		switch o.Status() {
		case "written":
			written++
		case "skipped":
			skipped++
		case "failed":
			failed++
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(records) > 0 {
			if err := tx.CreateInBatches(records, 100).Error; err != nil {
				return fmt.Errorf("failed to insert problem records: %w", err)
			}
		}
		return tx.Model(&domain.GenerationRun{}).
			Where("id = ?", runID).
			Updates(map[string]interface{}{
				"batches":        gorm.Expr("batches + ?", 1),
				"written_items":  gorm.Expr("written_items + ?", written),
				"skipped_items":  gorm.Expr("skipped_items + ?", skipped),
				"failed_items":   gorm.Expr("failed_items + ?", failed),
				"last_generated": lastGenerated,
			}).Error
	})
}

// FinishRun marks a run completed, or failed when errLog is not empty.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run to close.
//   - lastGenerated: final high-water mark.
//   - errLog: failure description; empty on success.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) FinishRun(ctx context.Context, runID string, lastGenerated int, errLog string) error {
	status := domain.RunStatusCompleted
	if errLog != "" {
		status = domain.RunStatusFailed
	}
	now := time.Now()
	return r.db.WithContext(ctx).Model(&domain.GenerationRun{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"status":         status,
			"last_generated": lastGenerated,
			"completed_at":   &now,
			"error_log":      errLog,
		}).Error
}

// GetRun retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.GenerationRun: run record if found.
//   - error: gorm.ErrRecordNotFound when absent.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.GenerationRun, error) {
	var run domain.GenerationRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns runs newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit, offset int) ([]domain.GenerationRun, error) {
	var runs []domain.GenerationRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// ListProblems returns the outcomes recorded for a run ordered by problem ID.
func (r *RunRepository) ListProblems(ctx context.Context, runID string) ([]domain.ProblemRecord, error) {
	var records []domain.ProblemRecord
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("problem_id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list problems of run %s: %w", runID, err)
	}
	return records, nil
}
