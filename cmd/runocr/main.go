package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/internal/app"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/batch"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/extract"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/filter"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/ocr"
)

// runocr OCRs a page range of a statement and prints what the pipeline sees:
// the relevance verdict, the labeled values and optionally the raw text.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		in       = flag.String("in", "", "PDF statement (required)")
		first    = flag.Int("first", 1, "first page, 1-based")
		last     = flag.Int("last", 0, "last page (defaults to first)")
		showText = flag.Bool("text", false, "print the normalized OCR text")
	)
	flag.Parse()
	if *in == "" {
		logger.Error("usage", "cmd", "runocr -in <file.pdf> [-first N] [-last M] [-text]")
		os.Exit(2)
	}
	if *last == 0 {
		*last = *first
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := ocr.ValidatePDF(*in); err != nil {
		logger.Error("invalid pdf", "file", *in, "error", err)
		os.Exit(1)
	}
	total, err := ocr.PDFCPU{}.PageCount(ctx, *in)
	if err != nil {
		logger.Error("page count", "file", *in, "error", err)
		os.Exit(1)
	}
	if *first < 1 || *last < *first || *last > total {
		logger.Error("page range out of bounds", "first", *first, "last", *last, "total_pages", total)
		os.Exit(2)
	}

	orch := app.NewOrchestrator(cfg, logger)
	start := time.Now()
	b, err := orch.RunBatch(ctx, *in, batch.Range{First: *first, Last: *last})
	if err != nil {
		logger.Error("ocr failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	relevance := filter.NewDefault()
	extractor := extract.NewLabelExtractor()
	for _, p := range b.Pages {
		if p.Failed() {
			fmt.Printf("== página %d: FALHA (%s)\n", p.Page, p.Err)
			continue
		}
		v := relevance.Check(p.Text)
		fmt.Printf("== página %d: relevante=%t termos=%v\n", p.Page, v.Relevant, v.Matched)
		for _, lv := range extractor.ExtractPage(p.Page, p.Text) {
			value := "-"
			if lv.Value != nil {
				value = lv.Value.StringFixed(2)
			}
			fmt.Printf("   %-10s %-28q %14s %s %s\n", lv.Field, lv.Label, value, lv.Status, lv.Reason)
		}
		if *showText {
			fmt.Println(p.Text)
		}
	}

	logger.Info("ocr OK",
		"pages", len(b.Pages),
		"total_pages", total,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
