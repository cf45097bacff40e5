package constants

// JobStatus is the lifecycle state of a conversion job.
type JobStatus string

// Stable values (exposed over HTTP and stored in the archive).
const (
	JobStatusPending    JobStatus = "PENDING"    // accepted, waiting for a worker
	JobStatusProcessing JobStatus = "PROCESSING" // pages being OCR'd
	JobStatusDone       JobStatus = "DONE"       // result attached
	JobStatusError      JobStatus = "ERROR"      // terminal failure
	JobStatusCancelled  JobStatus = "CANCELLED"  // user cancelled
)

// IsTerminal reports whether no further transition is allowed from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusDone, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// ParseJobStatus accepts the exact upper-case names only.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch st := JobStatus(s); st {
	case JobStatusPending, JobStatusProcessing, JobStatusDone, JobStatusError, JobStatusCancelled:
		return st, true
	}
	return "", false
}
