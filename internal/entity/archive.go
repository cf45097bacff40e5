package entity

import (
	"time"

	"github.com/joseph-ayodele/convenio-extractor/constants"
)

// ArchivedJob is the durable summary of a job that reached a terminal state.
// It outlives the in-memory job table.
type ArchivedJob struct {
	ID               string              `json:"id"`
	Filename         string              `json:"filename"`
	Status           constants.JobStatus `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	FinishedAt       time.Time           `json:"finished_at"`
	TotalPages       int                 `json:"total_pages"`
	ProcessedPages   int                 `json:"processed_pages"`
	RelevantPages    int                 `json:"relevant_pages"`
	RecordCount      int                 `json:"record_count"`
	HasSuspectValues bool                `json:"has_suspect_values"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	DurationMS       int64               `json:"processing_time_ms"`
}

// NewArchivedJob summarizes a terminal job and its result, if any.
func NewArchivedJob(job Job, result *JobResult) ArchivedJob {
	a := ArchivedJob{
		ID:             job.ID,
		Filename:       job.Filename,
		Status:         job.Status,
		CreatedAt:      job.CreatedAt,
		TotalPages:     job.TotalPages,
		ProcessedPages: job.ProcessedPages,
		ErrorMessage:   job.ErrorMessage,
	}
	if job.CompletedAt != nil {
		a.FinishedAt = *job.CompletedAt
	}
	if result != nil {
		a.RelevantPages = result.RelevantPages
		a.RecordCount = result.RecordCount
		a.HasSuspectValues = result.Aggregate.HasSuspectValues
		a.DurationMS = result.DurationMS
	}
	return a
}
