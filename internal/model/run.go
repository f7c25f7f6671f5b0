package model

import "time"

// RunStatus represents the current state of a selection run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusSelecting RunStatus = "selecting"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// DatasetRef identifies the dataset a run was executed against.
type DatasetRef struct {
	Path    string `json:"path"`
	Label   string `json:"label"`
	Records int    `json:"records"`
}

// BoardEntry is one accepted round of the backward-selection trace.
type BoardEntry struct {
	Score      float64  `json:"score"`
	Covariates []string `json:"covariates"`
}

// Run represents a single covariate-selection run.
type Run struct {
	ID        string     `json:"id"`
	Dataset   DatasetRef `json:"dataset"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Board    []BoardEntry `json:"board"`
	Selected []string     `json:"selected"`
	Folds    int          `json:"folds"`
	Seed     int64        `json:"seed"`
	Error    string       `json:"error,omitempty"`
}
