// Package app assembles the extractor from configuration. Both the daemon
// and the batch CLI build their pipeline here so they never drift apart.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/core"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/batch"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/jobs"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/ocr"
	"github.com/joseph-ayodele/convenio-extractor/internal/repository"
)

const (
	// archiveSaveTimeout bounds one archive write made from a terminal hook.
	archiveSaveTimeout = 5 * time.Second
	// toolTimeout bounds one pdftoppm or tesseract run.
	toolTimeout = 2 * time.Minute
)

// OCRConfig maps the OCR section of the process config onto the OCR package.
func OCRConfig(cfg *common.Config) ocr.Config {
	return ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		PSM:           cfg.OCR.PSM,
	}
}

// NewOrchestrator wires pdftoppm and tesseract behind the batch orchestrator.
func NewOrchestrator(cfg *common.Config, logger *slog.Logger) *batch.Orchestrator {
	ocrCfg := OCRConfig(cfg)
	// Tesseract's own threading competes with the worker pool.
	runner := ocr.ExecRunner{Env: []string{"OMP_THREAD_LIMIT=1"}, Timeout: toolTimeout}
	raster := ocr.NewPDFRasterizer(ocrCfg, runner, logger)
	rec := ocr.NewTesseractRecognizer(ocrCfg, runner, logger)
	return batch.New(raster, rec,
		batch.WithBatchSize(cfg.Worker.BatchSize),
		batch.WithLogger(logger),
	)
}

// NewProcessor builds the document processor used by the worker pool.
// removeUploads is true for the daemon, which owns its upload copies, and
// false for the batch CLI, which reads the operator's own files.
func NewProcessor(cfg *common.Config, logger *slog.Logger, removeUploads bool) *core.Processor {
	return core.NewProcessor(logger, ocr.PDFCPU{}, NewOrchestrator(cfg, logger),
		core.WithMaxPages(cfg.Server.MaxPages),
		core.WithRemoveUploads(removeUploads),
	)
}

// ArchiveDBConfig maps the archive section onto the repository layer.
func ArchiveDBConfig(cfg *common.Config) repository.Config {
	return repository.Config{
		Driver:           cfg.Archive.Driver,
		DSN:              cfg.Archive.DSN,
		MaxConns:         cfg.Archive.MaxConns,
		MinConns:         1,
		MaxConnLifetime:  30 * time.Minute,
		MaxConnIdleTime:  5 * time.Minute,
		DialTimeout:      cfg.Archive.DialTimeout,
		StatementTimeout: cfg.Archive.StatementTimeout,
	}
}

// Archive is an opened and migrated archive database.
type Archive struct {
	DB   *repository.DB
	Repo repository.ArchiveRepository
}

// OpenArchive returns nil without error when no ARCHIVE_DSN is configured.
func OpenArchive(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Archive, error) {
	if cfg.Archive.DSN == "" {
		logger.Info("archive disabled")
		return nil, nil
	}
	db, err := repository.Open(ctx, ArchiveDBConfig(cfg), logger)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open archive", err)
	}
	repo := repository.NewArchiveRepository(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		db.Close(logger)
		return nil, common.NewAppError(common.CodeConfig, "migrate archive", err)
	}
	return &Archive{DB: db, Repo: repo}, nil
}

// Hook returns the terminal-job observer that persists into the archive.
func (a *Archive) Hook(logger *slog.Logger) jobs.TerminalHook {
	return repository.ArchiveHook(a.Repo, archiveSaveTimeout, logger)
}

func (a *Archive) Close(logger *slog.Logger) {
	if a == nil {
		return
	}
	a.DB.Close(logger)
}
