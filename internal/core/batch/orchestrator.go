// Package batch pages a document through OCR a bounded range at a time.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// DefaultSize is the number of pages rendered per batch.
const DefaultSize = 10

// Range is an inclusive, 1-based page range.
type Range struct {
	First int
	Last  int
}

func (r Range) Len() int { return r.Last - r.First + 1 }

// Plan splits pages 1..total into consecutive ranges of at most size pages.
func Plan(total, size int) []Range {
	if total <= 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultSize
	}
	out := make([]Range, 0, (total+size-1)/size)
	for first := 1; first <= total; first += size {
		last := first + size - 1
		if last > total {
			last = total
		}
		out = append(out, Range{First: first, Last: last})
	}
	return out
}

// Batch is the OCR outcome of one range, in page order.
type Batch struct {
	Index int // 0-based
	Of    int // number of batches in the run
	Range Range
	Pages []entity.PageResult
}

// Orchestrator renders and recognizes one batch at a time. Images of a batch
// are released before the next batch is requested.
type Orchestrator struct {
	raster ocr.Rasterizer
	rec    ocr.Recognizer
	size   int
	logger *slog.Logger
}

type Option func(*Orchestrator)

func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.size = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(raster ocr.Rasterizer, rec ocr.Recognizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		raster: raster,
		rec:    rec,
		size:   DefaultSize,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Size() int { return o.size }

// Run processes pages 1..total in order and hands each batch to fn before the
// next one is rendered. It stops early when ctx is done or fn returns an error.
func (o *Orchestrator) Run(ctx context.Context, path string, total int, fn func(Batch) error) error {
	plan := Plan(total, o.size)
	for i, r := range plan {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := o.RunBatch(ctx, path, r)
		if err != nil {
			return err
		}
		b.Index, b.Of = i, len(plan)
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

// RunBatch renders and recognizes a single range. Page failures are recorded
// on the page; only context cancellation is returned as an error.
func (o *Orchestrator) RunBatch(ctx context.Context, path string, r Range) (Batch, error) {
	start := time.Now()
	logger := common.Logger(ctx, o.logger).With("first", r.First, "last", r.Last)
	b := Batch{Range: r, Pages: make([]entity.PageResult, 0, r.Len())}

	images, release, err := o.raster.RenderPages(ctx, path, r.First, r.Last)
	if release != nil {
		defer release()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return b, ctxErr
		}
		logger.Warn("batch.render.failed", "error", err)
		for p := r.First; p <= r.Last; p++ {
			b.Pages = append(b.Pages, entity.PageResult{Page: p, Err: err.Error()})
		}
		return b, nil
	}

	byPage := make(map[int]ocr.PageImage, len(images))
	for _, img := range images {
		byPage[img.Page] = img
	}
	failed := 0
	for p := r.First; p <= r.Last; p++ {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		img, ok := byPage[p]
		if !ok {
			failed++
			b.Pages = append(b.Pages, entity.PageResult{Page: p, Err: fmt.Sprintf("page %d not rendered", p)})
			continue
		}
		text, err := o.rec.Recognize(ctx, img)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return b, ctxErr
			}
			failed++
			logger.Warn("batch.page.failed", "page", p, "error", err)
			b.Pages = append(b.Pages, entity.PageResult{Page: p, Err: err.Error()})
			continue
		}
		b.Pages = append(b.Pages, entity.PageResult{Page: p, Text: text})
	}

	logger.Debug("batch.ok", "pages", r.Len(), "failed", failed, "elapsed_ms", time.Since(start).Milliseconds())
	return b, nil
}
