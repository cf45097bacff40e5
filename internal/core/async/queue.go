package async

import (
	"context"
	"time"
)

// Task is the smallest useful unit of work: one uploaded document.
type Task struct {
	JobID       string
	Filename    string
	Path        string
	SubmittedAt time.Time
}

type Queue interface {
	Submit(ctx context.Context, task Task) error
	Shutdown(ctx context.Context)
}

// Reporter is how a running pipeline talks back to the job table. Calls
// are turned into events and applied in order by a single writer.
type Reporter interface {
	// Started records the page count and moves the job to PROCESSING.
	Started(totalPages int) error
	// Progress records the number of pages processed so far.
	Progress(processedPages int)
	// Cancelled reports whether the job was cancelled by a client.
	Cancelled() bool
}
