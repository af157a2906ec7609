package models

import "time"

// JobStatus is the lifecycle state of an asynchronous batch
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// BatchJobRequest represents a batch submission
type BatchJobRequest struct {
	Companies []string `json:"companies" binding:"required,min=1,max=1000" example:"Padaria Central Lda,Café & Bar Sol"`
}

// CleanNames trims entries and drops blanks
func (r *BatchJobRequest) CleanNames() []string {
	queries := NewCompanyQueries(r.Companies)
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		out = append(out, q.RawName)
	}
	return out
}

// JobResponse is returned on submission and by the status endpoint
type JobResponse struct {
	ID         string          `json:"id" example:"3f8e2a1c-9d4b-4b5e-8f1a-2c3d4e5f6a7b"`
	Status     JobStatus       `json:"status" example:"running"`
	Total      int             `json:"total" example:"10"`
	Completed  int             `json:"completed" example:"4"`
	CreatedAt  time.Time       `json:"created_at" example:"2024-01-15T10:30:00Z"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Error      string          `json:"error,omitempty"`
	Summary    *BatchSummary   `json:"summary,omitempty"`
	Results    []CompanyResult `json:"results,omitempty"`
}
