package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/aggregate"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/async"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/batch"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/extract"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/filter"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// Client-facing failure messages.
const (
	MsgUnreadable   = "Não foi possível abrir o documento"
	MsgNoPages      = "Documento sem páginas"
	MsgNoRelevant   = "Nenhuma página relevante encontrada"
	MsgNoValues     = "Nenhum dado financeiro encontrado"
	msgTooManyPages = "Documento excede o limite de %d páginas"
)

// Processor runs one document through OCR, relevance filtering, label
// extraction and aggregation.
type Processor struct {
	logger        *slog.Logger
	counter       ocr.PageCounter
	orchestrator  *batch.Orchestrator
	filter        *filter.Filter
	extractor     *extract.LabelExtractor
	maxPages      int
	removeUploads bool
}

type ProcessorOption func(*Processor)

// WithMaxPages rejects documents longer than n pages.
func WithMaxPages(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithRemoveUploads deletes the source file once a job finishes, whatever the outcome.
func WithRemoveUploads(remove bool) ProcessorOption {
	return func(p *Processor) { p.removeUploads = remove }
}

func WithFilter(f *filter.Filter) ProcessorOption {
	return func(p *Processor) {
		if f != nil {
			p.filter = f
		}
	}
}

func NewProcessor(logger *slog.Logger, counter ocr.PageCounter, orchestrator *batch.Orchestrator, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:       logger,
		counter:      counter,
		orchestrator: orchestrator,
		filter:       filter.NewDefault(),
		extractor:    extract.NewLabelExtractor(),
		maxPages:     900,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process implements async.Pipeline.
func (p *Processor) Process(ctx context.Context, task async.Task, report async.Reporter) (entity.JobResult, error) {
	start := time.Now()
	logger := common.Logger(ctx, p.logger)
	if p.removeUploads {
		defer func() {
			if err := os.Remove(task.Path); err != nil && !os.IsNotExist(err) {
				logger.Warn("processor.cleanup.failed", "path", task.Path, "error", err)
			}
		}()
	}

	total, err := p.counter.PageCount(ctx, task.Path)
	if err != nil {
		logger.Error("processor.pagecount.failed", "error", err)
		return entity.JobResult{}, common.JobFailure(MsgUnreadable, err)
	}
	if total == 0 {
		return entity.JobResult{}, common.JobFailure(MsgNoPages, nil)
	}
	if total > p.maxPages {
		return entity.JobResult{}, common.JobFailure(fmt.Sprintf(msgTooManyPages, p.maxPages), nil)
	}
	if err := report.Started(total); err != nil {
		return entity.JobResult{}, err
	}
	logger.Info("processor.start", "pages", total, "batch_size", p.orchestrator.Size())

	var (
		values    []entity.LabeledValue
		failed    []int
		relevant  int
		processed int
	)
	err = p.orchestrator.Run(ctx, task.Path, total, func(b batch.Batch) error {
		if report.Cancelled() {
			return common.ErrCancelled
		}
		for _, pg := range b.Pages {
			if pg.Failed() {
				failed = append(failed, pg.Page)
			}
		}
		kept := p.filter.Relevant(b.Pages)
		relevant += len(kept)
		values = append(values, p.extractor.ExtractPages(kept)...)

		processed += len(b.Pages)
		report.Progress(processed)
		logger.Debug("processor.batch.ok",
			"batch", b.Index+1, "of", b.Of,
			"relevant", len(kept), "values", len(values),
		)
		return nil
	})
	if err != nil {
		return entity.JobResult{}, err
	}

	if relevant == 0 {
		return entity.JobResult{}, common.JobFailure(MsgNoRelevant, nil)
	}
	if len(values) == 0 {
		return entity.JobResult{}, common.JobFailure(MsgNoValues, nil)
	}

	agg := aggregate.Aggregate(values)
	movements := extract.ToMovements(values)
	elapsed := time.Since(start)
	res := entity.JobResult{
		JobID:         task.JobID,
		Filename:      task.Filename,
		TotalPages:    total,
		RelevantPages: relevant,
		FailedPages:   failed,
		RecordCount:   len(movements),
		Values:        values,
		Movements:     movements,
		Aggregate:     agg,
		Duration:      elapsed,
		DurationMS:    elapsed.Milliseconds(),
	}
	if res.FailedPages == nil {
		res.FailedPages = []int{}
	}
	logger.Info("processor.done",
		"pages", total,
		"relevant", relevant,
		"failed_pages", len(failed),
		"values", len(values),
		"records", len(movements),
		"blocked_fields", len(agg.Summary.BlockedFields),
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return res, nil
}

// ProcessFile runs the pipeline synchronously, outside the job table.
func (p *Processor) ProcessFile(ctx context.Context, path string, onProgress func(done, total int)) (entity.JobResult, error) {
	rep := &directReporter{onProgress: onProgress}
	return p.Process(ctx, async.Task{JobID: "local", Filename: path, Path: path}, rep)
}

type directReporter struct {
	total      int
	onProgress func(done, total int)
}

func (d *directReporter) Started(total int) error {
	d.total = total
	return nil
}

func (d *directReporter) Progress(done int) {
	if d.onProgress != nil {
		d.onProgress(done, d.total)
	}
}

func (d *directReporter) Cancelled() bool { return false }
