package jobs

import (
	"fmt"

	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// EventKind names a worker-side lifecycle step.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is what workers send instead of touching the job table directly.
type Event struct {
	Kind           EventKind
	JobID          string
	TotalPages     int
	ProcessedPages int
	Result         *entity.JobResult
	Message        string
}

// Apply routes an event to the matching transition. It is the single writer
// entrypoint for worker updates.
func (m *Manager) Apply(ev Event) error {
	switch ev.Kind {
	case EventStarted:
		return m.Start(ev.JobID, ev.TotalPages)
	case EventProgress:
		m.UpdateProgress(ev.JobID, ev.ProcessedPages)
		return nil
	case EventCompleted:
		if ev.Result == nil {
			return fmt.Errorf("completed event for %s without result", ev.JobID)
		}
		return m.Complete(ev.JobID, *ev.Result)
	case EventFailed:
		return m.Fail(ev.JobID, ev.Message)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
