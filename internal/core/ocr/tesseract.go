package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// TesseractRecognizer OCRs page images with the tesseract CLI.
type TesseractRecognizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractRecognizer(cfg Config, runner Runner, logger *slog.Logger) *TesseractRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &TesseractRecognizer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, img PageImage) (string, error) {
	// tesseract <file> stdout -l <lang> --psm <psm>
	args := []string{img.Path, "stdout", "-l", t.cfg.TesseractLang, "--psm", strconv.Itoa(t.cfg.PSM)}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, t.logger, args...)
	if err != nil {
		return "", toolError(fmt.Sprintf("tesseract page %d", img.Page), errb, err)
	}
	return Normalize(string(out)), nil
}
