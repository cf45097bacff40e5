package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/async"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// IngestedDir is the hidden folder, next to the source, that ingested files
// are moved into so a restart does not pick them up again.
const IngestedDir = ".ingested"

// JobTable is the part of the job manager the inbox needs.
type JobTable interface {
	Create(id, filename, path string) (entity.Job, error)
	Fail(id, message string) error
}

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	JobID      string
	HashHex    string
	Size       int64
	Err        string
}

// Inbox turns files dropped into a directory into queued jobs, the same way
// an HTTP upload followed by a process request would.
type Inbox struct {
	store  *Store
	jobs   JobTable
	queue  async.Queue
	logger *slog.Logger
	newID  func() string
}

func NewInbox(store *Store, jobs JobTable, queue async.Queue, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		store:  store,
		jobs:   jobs,
		queue:  queue,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// IngestPath stores one PDF, registers a job for it and submits the job.
// A job that cannot be queued is failed so it does not linger as PENDING.
func (in *Inbox) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{SourcePath: path}
	name := filepath.Base(path)
	if err := common.ValidateAndReturnError(common.NewValidator().
		Field("filename", name, common.Required, common.PDFFilename, common.MaxLength(255))); err != nil {
		return out, err
	}

	id := in.newID()
	logger := in.logger.With("job_id", id, "path", path)
	stored, err := in.store.SaveFile(id, path)
	if err != nil {
		logger.Warn("inbox.store.failed", "error", err)
		return out, err
	}
	out.JobID, out.HashHex, out.Size = id, stored.HashHex, stored.Size

	if _, err := in.jobs.Create(id, name, stored.Path); err != nil {
		_ = in.store.Remove(id)
		return out, err
	}
	task := async.Task{JobID: id, Filename: name, Path: stored.Path, SubmittedAt: time.Now()}
	if err := in.queue.Submit(ctx, task); err != nil {
		logger.Warn("inbox.submit.failed", "error", err)
		if ferr := in.jobs.Fail(id, "Fila de processamento indisponível"); ferr != nil {
			logger.Warn("inbox.fail.failed", "error", ferr)
		}
		_ = in.store.Remove(id)
		return out, err
	}

	if err := moveAside(path); err != nil {
		logger.Warn("inbox.move.failed", "error", err)
	}
	logger.Info("inbox.ingested", "size", stored.Size, "sha256", stored.HashHex)
	return out, nil
}

// Run consumes watcher events until ctx is done or the watcher stops.
func (in *Inbox) Run(ctx context.Context, cfg WatchConfig) error {
	if cfg.Logger == nil {
		cfg.Logger = in.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	in.logger.Info("inbox watching", "roots", cfg.Roots)
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if _, err := in.IngestPath(ctx, p); err != nil && !errors.Is(err, common.ErrShuttingDown) {
				in.logger.Error("inbox.ingest.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			in.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

func moveAside(path string) error {
	dir := filepath.Join(filepath.Dir(path), IngestedDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	dst := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(dst); err == nil {
		dst = filepath.Join(dir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, dst)
}
