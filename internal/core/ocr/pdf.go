package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPU reads document structure with pdfcpu, without rendering.
type PDFCPU struct{}

func (PDFCPU) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}

// ValidatePDF checks that path parses as a PDF, tolerating common producer quirks.
func ValidatePDF(path string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, cfg); err != nil {
		return fmt.Errorf("invalid pdf: %w", err)
	}
	return nil
}

// PDFRasterizer renders page ranges with pdftoppm.
type PDFRasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewPDFRasterizer(cfg Config, runner Runner, logger *slog.Logger) *PDFRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PDFRasterizer{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (r *PDFRasterizer) RenderPages(ctx context.Context, path string, first, last int) ([]PageImage, func(), error) {
	noop := func() {}
	if first < 1 || last < first {
		return nil, noop, fmt.Errorf("invalid page range %d-%d", first, last)
	}
	tmpDir, err := os.MkdirTemp(r.cfg.TempDir, "convenio-pp-*")
	if err != nil {
		return nil, noop, err
	}
	release := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f <first> -l <last> -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, r.logger,
		"-f", strconv.Itoa(first),
		"-l", strconv.Itoa(last),
		"-r", strconv.Itoa(r.cfg.DPI),
		"-png", path, prefix)
	if err != nil {
		release()
		return nil, noop, toolError(fmt.Sprintf("pdftoppm pages %d-%d", first, last), errb, err)
	}

	images, err := collectPages(prefix)
	if err != nil {
		release()
		return nil, noop, err
	}
	if len(images) == 0 {
		release()
		return nil, noop, fmt.Errorf("pdftoppm produced no images for pages %d-%d", first, last)
	}
	return images, release, nil
}

// collectPages finds prefix-N.png files. pdftoppm zero-pads N to the width of
// the document's page count, so the number is parsed rather than sorted as text.
func collectPages(prefix string) ([]PageImage, error) {
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	images := make([]PageImage, 0, len(matches))
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(m, prefix+"-"), ".png")
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		images = append(images, PageImage{Page: n, Path: m})
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Page < images[j].Page })
	return images, nil
}
