// Package jobs owns the in-memory job table and its state machine.
package jobs

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// TerminalHook observes a job right after it reaches DONE, ERROR or
// CANCELLED. It runs outside the manager lock.
type TerminalHook func(job entity.Job, result *entity.JobResult)

// Manager tracks jobs. Every method is safe for concurrent use; all of them
// share one lock, so readers never observe a half-applied transition.
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*entity.Job
	results map[string]entity.JobResult

	now    func() time.Time
	logger *slog.Logger
	hooks  []TerminalHook
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithTerminalHook(h TerminalHook) Option {
	return func(m *Manager) {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		jobs:    make(map[string]*entity.Job),
		results: make(map[string]entity.JobResult),
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create registers a PENDING job.
func (m *Manager) Create(id, filename, path string) (entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; ok {
		return entity.Job{}, common.NewAppError(common.CodeConflict, fmt.Sprintf("job %s already exists", id), common.ErrAlreadyExists)
	}
	j := &entity.Job{
		ID:          id,
		Filename:    filename,
		StoragePath: path,
		Status:      constants.JobStatusPending,
		CreatedAt:   m.now(),
	}
	m.jobs[id] = j
	m.logger.Info("job.created", "job_id", id, "filename", filename)
	return *j, nil
}

// Start moves a PENDING job to PROCESSING and records its page count, which
// must be positive.
func (m *Manager) Start(id string, totalPages int) error {
	if totalPages <= 0 {
		return common.InvalidInputErrorf("job %s: total pages must be positive, got %d", id, totalPages)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return common.NotFoundErrorf("job %s not found", id)
	}
	if j.Status != constants.JobStatusPending {
		return common.InvalidStateErrorf("job %s is %s, want %s", id, j.Status, constants.JobStatusPending)
	}
	now := m.now()
	j.Status = constants.JobStatusProcessing
	j.TotalPages = totalPages
	j.StartedAt = &now
	m.logger.Info("job.started", "job_id", id, "total_pages", totalPages)
	return nil
}

// UpdateProgress records pages processed so far. Unknown jobs, jobs not
// PROCESSING and regressions are ignored; values are clamped to the total.
func (m *Manager) UpdateProgress(id string, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok || j.Status != constants.JobStatusProcessing {
		return
	}
	if processed > j.TotalPages {
		processed = j.TotalPages
	}
	if processed > j.ProcessedPages {
		j.ProcessedPages = processed
	}
}

// Complete attaches result and moves the job to DONE. A cancelled job stays
// cancelled and ErrCancelled is returned.
func (m *Manager) Complete(id string, result entity.JobResult) error {
	job, err := m.finish(id, func(j *entity.Job) {
		j.Status = constants.JobStatusDone
		if j.TotalPages > 0 {
			j.ProcessedPages = j.TotalPages
		}
		m.results[id] = result
	})
	if err != nil {
		return err
	}
	m.logger.Info("job.done", "job_id", id, "records", result.RecordCount, "has_suspect_values", result.Aggregate.HasSuspectValues)
	m.notify(job, &result)
	return nil
}

// Fail moves the job to ERROR with a client-facing message.
func (m *Manager) Fail(id, message string) error {
	job, err := m.finish(id, func(j *entity.Job) {
		j.Status = constants.JobStatusError
		j.ErrorMessage = message
	})
	if err != nil {
		return err
	}
	m.logger.Warn("job.failed", "job_id", id, "error", message)
	m.notify(job, nil)
	return nil
}

func (m *Manager) finish(id string, apply func(*entity.Job)) (entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return entity.Job{}, common.NotFoundErrorf("job %s not found", id)
	}
	switch j.Status {
	case constants.JobStatusCancelled:
		return entity.Job{}, common.NewAppError(common.CodeState, fmt.Sprintf("job %s was cancelled", id), common.ErrCancelled)
	case constants.JobStatusDone, constants.JobStatusError:
		return entity.Job{}, common.InvalidStateErrorf("job %s already %s", id, j.Status)
	}
	now := m.now()
	apply(j)
	j.CompletedAt = &now
	return *j, nil
}

// Cancel marks a PENDING or PROCESSING job CANCELLED. Cancelling an already
// cancelled job is a no-op; DONE and ERROR jobs are rejected.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	j, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return common.NotFoundErrorf("job %s not found", id)
	}
	switch j.Status {
	case constants.JobStatusCancelled:
		m.mu.Unlock()
		return nil
	case constants.JobStatusDone, constants.JobStatusError:
		st := j.Status
		m.mu.Unlock()
		return common.InvalidStateErrorf("job %s already %s", id, st)
	}
	now := m.now()
	j.Status = constants.JobStatusCancelled
	j.CompletedAt = &now
	job := *j
	m.mu.Unlock()

	m.logger.Info("job.cancelled", "job_id", id)
	m.notify(job, nil)
	return nil
}

// Get returns a copy of the job.
func (m *Manager) Get(id string) (entity.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return entity.Job{}, false
	}
	return *j, true
}

// Status is a cheap status read used between batches.
func (m *Manager) Status(id string) (constants.JobStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return "", false
	}
	return j.Status, true
}

// Progress returns the polling snapshot for a job.
func (m *Manager) Progress(id string) (entity.Progress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return entity.Progress{}, false
	}
	return progressOf(j), true
}

// Result returns the result of a DONE job.
func (m *Manager) Result(id string) (entity.JobResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	return r, ok
}

// List returns jobs newest first, optionally restricted to one status.
func (m *Manager) List(status *constants.JobStatus) []entity.Job {
	m.mu.RLock()
	out := make([]entity.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if status != nil && j.Status != *status {
			continue
		}
		out = append(out, *j)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID < out[b].ID
	})
	return out
}

// Sweep forgets terminal jobs that finished more than maxAge ago and returns
// them. Jobs that are not terminal are never removed.
func (m *Manager) Sweep(maxAge time.Duration) []entity.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-maxAge)
	var removed []entity.Job
	for id, j := range m.jobs {
		if !j.Status.IsTerminal() || j.CompletedAt == nil {
			continue
		}
		if j.CompletedAt.Before(cutoff) {
			removed = append(removed, *j)
			delete(m.jobs, id)
			delete(m.results, id)
		}
	}
	if len(removed) > 0 {
		m.logger.Info("jobs.swept", "removed", len(removed), "max_age", maxAge.String())
	}
	return removed
}

func (m *Manager) notify(job entity.Job, result *entity.JobResult) {
	for _, h := range m.hooks {
		h(job, result)
	}
}

func progressOf(j *entity.Job) entity.Progress {
	p := entity.Progress{
		JobID:          j.ID,
		Status:         j.Status,
		TotalPages:     j.TotalPages,
		ProcessedPages: j.ProcessedPages,
		ErrorMessage:   j.ErrorMessage,
	}
	if j.TotalPages > 0 {
		pct := float64(j.ProcessedPages) / float64(j.TotalPages) * 100
		p.Percent = math.Round(pct*100) / 100
	}
	switch j.Status {
	case constants.JobStatusPending:
		p.Message = "Aguardando processamento"
	case constants.JobStatusProcessing:
		p.Message = fmt.Sprintf("Processando página %d/%d", j.ProcessedPages, j.TotalPages)
	case constants.JobStatusDone:
		p.Message = "Processamento concluído"
	case constants.JobStatusError:
		p.Message = "Erro: " + j.ErrorMessage
	case constants.JobStatusCancelled:
		p.Message = "Processamento cancelado"
	}
	return p
}
