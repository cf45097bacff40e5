package entity

import (
	"time"

	"github.com/joseph-ayodele/convenio-extractor/constants"
)

// Job represents a conversion job for data transfer between layers.
type Job struct {
	ID             string              `json:"id"`
	Filename       string              `json:"filename"`
	StoragePath    string              `json:"-"`
	Status         constants.JobStatus `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	TotalPages     int                 `json:"total_pages"` // 0 until orchestration begins
	ProcessedPages int                 `json:"processed_pages"`
	ErrorMessage   string              `json:"error_message,omitempty"`
}

// Progress is the polling view of a job.
type Progress struct {
	JobID          string              `json:"job_id"`
	Status         constants.JobStatus `json:"status"`
	TotalPages     int                 `json:"total_pages"`
	ProcessedPages int                 `json:"processed_pages"`
	Percent        float64             `json:"progress_percentage"`
	Message        string              `json:"message"`
	ErrorMessage   string              `json:"error_message,omitempty"`
}
