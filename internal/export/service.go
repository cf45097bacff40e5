package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/convenio-extractor/internal/common"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

const (
	SheetMovements = "Movimentações"
	SheetTotals    = "Totais"
)

// ErrNoRecords is returned when a result has no movement rows to export.
var ErrNoRecords = errors.New("no records to export")

var movementHeaders = []string{
	"Página",
	"Rótulo",
	"Campo",
	"Entrada",
	"Saída",
	"Saldo",
	"Aplicação",
	"Resgate",
	"Rendimentos",
	"Tarifa Paga",
	"Tarifa Devolvida",
	"Texto Original",
}

var totalsHeaders = []string{"Campo", "Total", "Quantidade", "Situação", "Motivo"}

// Service renders job results as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BuildXLSX returns the workbook bytes for a finished job: one row per
// movement plus a sheet of per-field totals.
func (s *Service) BuildXLSX(ctx context.Context, result entity.JobResult) ([]byte, error) {
	start := time.Now()
	if len(result.Movements) == 0 {
		return nil, ErrNoRecords
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default "Sheet1" becomes the movements sheet.
	if err := f.SetSheetName("Sheet1", SheetMovements); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetTotals); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1F4E78"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}

	if err := writeHeader(f, SheetMovements, movementHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, m := range result.Movements {
		row := i + 2
		values := []any{
			m.Page,
			m.Label,
			string(m.Field),
			cellNumber(m.Entry),
			cellNumber(m.Exit),
			cellNumber(m.Balance),
			cellNumber(m.Application),
			cellNumber(m.Redemption),
			cellNumber(m.Yield),
			cellNumber(m.FeePaid),
			cellNumber(m.FeeRefunded),
			m.OriginalLine,
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetMovements, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
	}
	last := len(result.Movements) + 1
	_ = f.SetCellStyle(SheetMovements, "D2", fmt.Sprintf("K%d", last), moneyStyle)
	_ = f.SetColWidth(SheetMovements, "A", "A", 8)
	_ = f.SetColWidth(SheetMovements, "B", "C", 22)
	_ = f.SetColWidth(SheetMovements, "D", "K", 16)
	_ = f.SetColWidth(SheetMovements, "L", "L", 60)
	_ = f.SetPanes(SheetMovements, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := writeHeader(f, SheetTotals, totalsHeaders, headerStyle); err != nil {
		return nil, err
	}
	for i, t := range result.Aggregate.Totals {
		row := i + 2
		var values []any
		if t.IsBlocked() {
			values = []any{string(t.Field), nil, t.Count, "BLOQUEADO", t.Blocked.Reason}
		} else {
			values = []any{string(t.Field), cellNumber(t.Sum), t.Count, "OK", ""}
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetTotals, cell, &values); err != nil {
			return nil, fmt.Errorf("write totals row %d: %w", row, err)
		}
	}
	if n := len(result.Aggregate.Totals); n > 0 {
		_ = f.SetCellStyle(SheetTotals, "B2", fmt.Sprintf("B%d", n+1), moneyStyle)
	}
	_ = f.SetColWidth(SheetTotals, "A", "A", 22)
	_ = f.SetColWidth(SheetTotals, "B", "D", 16)
	_ = f.SetColWidth(SheetTotals, "E", "E", 60)

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	common.Logger(ctx, s.logger).Info("export.xlsx.ok",
		"job_id", result.JobID,
		"rows", len(result.Movements),
		"totals", len(result.Aggregate.Totals),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// SaveXLSX builds the workbook and writes it to dir/<job id>.xlsx.
func (s *Service) SaveXLSX(ctx context.Context, dir string, result entity.JobResult) (string, error) {
	data, err := s.BuildXLSX(ctx, result)
	if err != nil {
		return "", err
	}
	return WriteFile(dir, result.JobID, data)
}

// WriteFile stores workbook bytes as dir/<job id>.xlsx.
func WriteFile(dir, jobID string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, jobID+".xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Filename is the download name offered for a job's workbook.
func Filename(result entity.JobResult) string {
	base := filepath.Base(result.Filename)
	base = base[:len(base)-len(filepath.Ext(base))]
	if base == "" || base == "." {
		base = result.JobID
	}
	return "movimentacoes_" + base + ".xlsx"
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	end, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", end, style)
}

// cellNumber writes decimals as spreadsheet numbers; nil stays an empty cell.
func cellNumber(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	v, _ := d.Float64()
	return v
}
