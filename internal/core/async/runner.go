package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/jobs"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// Pipeline converts one document into a result.
type Pipeline interface {
	Process(ctx context.Context, task Task, report Reporter) (entity.JobResult, error)
}

// Runner executes tasks on a fixed pool of workers. Workers never mutate the
// job table themselves: they send events to a single loop that applies them.
type Runner struct {
	pipeline Pipeline
	jobs     *jobs.Manager
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch     chan Task
	events chan envelope
	wg     sync.WaitGroup
	loop   chan struct{}
	once   sync.Once

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}
}

type envelope struct {
	ev    jobs.Event
	reply chan error
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.ch = make(chan Task, n)
		}
	}
}

// WithJobTimeout bounds a single job. Zero means no limit.
func WithJobTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewRunner(p Pipeline, mgr *jobs.Manager, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		pipeline: p,
		jobs:     mgr,
		logger:   logger,
		workers:  2,
		ch:       make(chan Task, 64),
		events:   make(chan envelope),
		loop:     make(chan struct{}),
		inflight: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(r)
	}
	r.start()
	return r
}

func (r *Runner) Workers() int { return r.workers }

func (r *Runner) start() {
	r.once.Do(func() {
		go r.applyLoop()
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go func(workerID int) {
				defer r.wg.Done()
				r.logger.Info("worker started", "worker_id", workerID)
				for task := range r.ch {
					r.run(workerID, task)
				}
				r.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// applyLoop is the only goroutine that writes worker updates to the job table.
func (r *Runner) applyLoop() {
	defer close(r.loop)
	for env := range r.events {
		err := r.jobs.Apply(env.ev)
		switch {
		case err == nil:
		case errors.Is(err, common.ErrCancelled):
			r.logger.Info("late update for cancelled job dropped", "job_id", env.ev.JobID, "kind", env.ev.Kind)
		default:
			r.logger.Warn("job event rejected", "job_id", env.ev.JobID, "kind", env.ev.Kind, "error", err)
		}
		env.reply <- err
	}
}

func (r *Runner) send(ev jobs.Event) error {
	reply := make(chan error, 1)
	r.events <- envelope{ev: ev, reply: reply}
	return <-reply
}

// Submit queues a task without blocking. A full queue returns ErrQueueFull.
func (r *Runner) Submit(_ context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("cannot submit: runner is shutting down", "job_id", task.JobID)
		return common.ErrShuttingDown
	}
	if _, dup := r.inflight[task.JobID]; dup {
		return common.InvalidStateErrorf("job %s is already queued", task.JobID)
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}
	select {
	case r.ch <- task:
		r.inflight[task.JobID] = struct{}{}
		r.logger.Info("queued job for processing", "job_id", task.JobID, "queued", len(r.ch))
		return nil
	default:
		r.logger.Warn("queue full, rejecting job", "job_id", task.JobID)
		return common.ErrQueueFull
	}
}

func (r *Runner) run(workerID int, task Task) {
	defer func() {
		r.mu.Lock()
		delete(r.inflight, task.JobID)
		r.mu.Unlock()
	}()

	ctx := common.WithWorkerID(common.WithJobID(context.Background(), task.JobID), workerID)
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	logger := common.Logger(ctx, r.logger)

	rep := &reporter{runner: r, jobID: task.JobID}
	start := time.Now()
	res, err := r.pipeline.Process(ctx, task, rep)
	elapsed := time.Since(start)

	switch {
	case rep.startErr != nil:
		// Another worker owns the job, or it was cancelled before it started.
		logger.Warn("job not started", "error", rep.startErr)
	case err != nil && (errors.Is(err, common.ErrCancelled) || rep.Cancelled()):
		logger.Info("processing stopped: job cancelled", "elapsed_ms", elapsed.Milliseconds())
	case err != nil:
		msg := common.FailureMessage(err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Tempo limite de processamento excedido"
		}
		logger.Error("processing failed", "error", err, "elapsed_ms", elapsed.Milliseconds())
		_ = r.send(jobs.Event{Kind: jobs.EventFailed, JobID: task.JobID, Message: msg})
	default:
		logger.Info("processed job successfully", "records", res.RecordCount, "elapsed_ms", elapsed.Milliseconds())
		_ = r.send(jobs.Event{Kind: jobs.EventCompleted, JobID: task.JobID, Result: &res})
	}
}

// Shutdown stops accepting tasks, drains the queue and waits for workers.
func (r *Runner) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.ch)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-ctx.Done():
		r.logger.Warn("shutdown interrupted by context")
		return
	case <-done:
	}
	close(r.events)
	<-r.loop
	r.logger.Info("queue drained, shutdown complete")
}

type reporter struct {
	runner   *Runner
	jobID    string
	startErr error
}

func (p *reporter) Started(totalPages int) error {
	err := p.runner.send(jobs.Event{Kind: jobs.EventStarted, JobID: p.jobID, TotalPages: totalPages})
	if err != nil {
		p.startErr = err
	}
	return err
}

func (p *reporter) Progress(processedPages int) {
	_ = p.runner.send(jobs.Event{Kind: jobs.EventProgress, JobID: p.jobID, ProcessedPages: processedPages})
}

func (p *reporter) Cancelled() bool {
	st, ok := p.runner.jobs.Status(p.jobID)
	return !ok || st == constants.JobStatusCancelled
}
