package models

import "time"

const (
	ExportStatusQueued     = "queued"
	ExportStatusProcessing = "processing"
	ExportStatusCompleted  = "completed"
	ExportStatusFailed     = "failed"
)

type ExportJob struct {
	ID        string     `json:"id"`
	Table     string     `json:"table"`
	Type      ExportType `json:"type"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	FileName  string     `json:"file_name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ExportRequest is the body of an export call, also used as the
// background task payload
type ExportRequest struct {
	JobID    string      `json:"job_id,omitempty"`
	Table    string      `json:"table,omitempty"`
	Type     ExportType  `json:"type"`
	Filters  FilterState `json:"filters,omitempty"`
	Sort     SortState   `json:"sort,omitempty"`
	Selected []string    `json:"selected,omitempty"`
}
