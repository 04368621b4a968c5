package domain

import "time"

// RunStatus represents the status of a generation run.
// Values include RunStatusRunning, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// GenerationRun is the ledger record of one batch generation run.
type GenerationRun struct {
	ID            string     `gorm:"type:text;primaryKey" json:"id"`
	Source        string     `gorm:"type:text;not null;index" json:"source"`
	Destination   string     `gorm:"type:text" json:"destination"`
	Status        RunStatus  `gorm:"type:text;default:running" json:"status"`
	Batches       int        `gorm:"default:0" json:"batches"`
	LastGenerated int        `gorm:"default:0" json:"last_generated"`
	WrittenItems  int        `gorm:"default:0" json:"written_items"`
	SkippedItems  int        `gorm:"default:0" json:"skipped_items"`
	FailedItems   int        `gorm:"default:0" json:"failed_items"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ErrorLog      string     `json:"error_log,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for GenerationRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (GenerationRun) TableName() string {
	return "generation_runs"
}

// ProblemRecord is the ledger record of one job outcome within a run.
type ProblemRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RunID     string    `gorm:"type:text;not null;index:idx_problem_records_run" json:"run_id"`
	ProblemID int       `gorm:"not null;index:idx_problem_records_run" json:"problem_id"`
	Class     PageClass `gorm:"type:text" json:"class"`
	Status    string    `gorm:"type:text" json:"status"`
	Path      string    `gorm:"type:text" json:"path,omitempty"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for ProblemRecord.
func (ProblemRecord) TableName() string {
	return "problem_records"
}

// NewProblemRecord converts an outcome into its ledger record.
func NewProblemRecord(runID string, o GenerationOutcome) ProblemRecord {
	rec := ProblemRecord{
		RunID:     runID,
		ProblemID: o.ID,
		Class:     o.Class,
		Status:    o.Status(),
		Path:      o.Path,
		CreatedAt: time.Now(),
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}
