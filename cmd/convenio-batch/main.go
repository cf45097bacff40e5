package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/convenio-extractor/internal/app"
	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/export"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		in        = flag.String("in", "", "PDF statement to process (required)")
		out       = flag.String("out", "", "output XLSX path (optional, defaults next to the input)")
		batchSize = flag.Int("batch", 0, "pages per OCR batch (defaults to BATCH_SIZE)")
	)
	flag.Parse()

	if *in == "" {
		printError("Error: -in is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".xlsx"
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *batchSize > 0 {
		cfg.Worker.BatchSize = *batchSize
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// Progress goes to stdout as it happens, logs go to stderr.
	logger := common.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	processor := app.NewProcessor(cfg, logger, false)
	result, err := processor.ProcessFile(ctx, *in, func(done, total int) {
		fmt.Printf("\rProcessando página %d/%d", done, total)
	})
	fmt.Println()
	if err != nil {
		logger.Error("processing failed", "file", *in, "error", err)
		printError("Erro: %s\n", common.FailureMessage(err))
		os.Exit(1)
	}

	summary := result.Aggregate.Summary
	fmt.Printf("Processamento concluído!\n")
	fmt.Printf("- Páginas: %d (relevantes: %d, falhas: %d)\n", result.TotalPages, result.RelevantPages, len(result.FailedPages))
	fmt.Printf("- Valores: %d (OK: %d, suspeitos: %d, %.2f%% OK)\n",
		summary.TotalValues, summary.OKValues, summary.SuspectValues, summary.PercentOK)
	for _, t := range result.Aggregate.Totals {
		if t.IsBlocked() {
			fmt.Printf("- %s: BLOQUEADO (%s)\n", t.Field, t.Blocked.Reason)
			continue
		}
		fmt.Printf("- %s: %s (%d lançamentos)\n", t.Field, t.Sum.StringFixed(2), t.Count)
	}

	data, err := export.NewService(logger).BuildXLSX(ctx, result)
	if errors.Is(err, export.ErrNoRecords) {
		fmt.Printf("- Nenhum registro para exportar\n")
		return
	}
	if err != nil {
		logger.Error("failed to build workbook", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("failed to write output file", "output", *out, "error", err)
		os.Exit(1)
	}
	fmt.Printf("- Output: %s\n", *out)
}
