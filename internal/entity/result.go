package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/convenio-extractor/constants"
)

// ValueStatus is the validation verdict on one extracted number.
type ValueStatus string

const (
	ValueOK      ValueStatus = "OK"
	ValueSuspect ValueStatus = "SUSPECT"
)

// LabeledValue is one (label, number) occurrence found on a page.
type LabeledValue struct {
	Page         int              `json:"page"`
	Label        string           `json:"label"`
	Field        constants.Field  `json:"field"`
	RawText      string           `json:"raw_text"`
	Value        *decimal.Decimal `json:"value,omitempty"`
	Status       ValueStatus      `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	OriginalLine string           `json:"original_line"`
}

func (v LabeledValue) OK() bool { return v.Status == ValueOK }

// Blocked explains why a field total was withheld.
type Blocked struct {
	Reason       string `json:"reason"`
	SuspectCount int    `json:"suspect_count"`
}

// FieldTotal is either a reported sum or a blocked marker, never both.
// Build it with ReportedTotal or BlockedTotal.
type FieldTotal struct {
	Field   constants.Field  `json:"field"`
	Sum     *decimal.Decimal `json:"sum"`
	Count   int              `json:"count"`
	Blocked *Blocked         `json:"blocked,omitempty"`
}

func ReportedTotal(field constants.Field, sum decimal.Decimal, count int) FieldTotal {
	return FieldTotal{Field: field, Sum: &sum, Count: count}
}

func BlockedTotal(field constants.Field, reason string, suspects int) FieldTotal {
	return FieldTotal{Field: field, Blocked: &Blocked{Reason: reason, SuspectCount: suspects}}
}

func (t FieldTotal) IsBlocked() bool { return t.Blocked != nil }

// ValidationSummary counts values by verdict across a document.
type ValidationSummary struct {
	TotalValues     int      `json:"total_values"`
	OKValues        int      `json:"ok_values"`
	SuspectValues   int      `json:"suspect_values"`
	PercentOK       float64  `json:"percent_ok"`
	BlockedFields   []string `json:"blocked_fields"`
	ProcessedFields []string `json:"processed_fields"`
}

// Aggregate is the per-document outcome of the aggregation stage.
type Aggregate struct {
	Totals           []FieldTotal      `json:"totals"`
	Summary          ValidationSummary `json:"validation"`
	HasSuspectValues bool              `json:"has_suspect_values"`
}

// Total looks up the entry for f.
func (a Aggregate) Total(f constants.Field) (FieldTotal, bool) {
	for _, t := range a.Totals {
		if t.Field == f {
			return t, true
		}
	}
	return FieldTotal{}, false
}

// Movement is the row-oriented projection of an OK labeled value.
type Movement struct {
	ID               string           `json:"id"`
	Page             int              `json:"page"`
	Label            string           `json:"label"`
	Field            constants.Field  `json:"field"`
	Entry            *decimal.Decimal `json:"entrada,omitempty"`
	Exit             *decimal.Decimal `json:"saida,omitempty"`
	Balance          *decimal.Decimal `json:"saldo,omitempty"`
	Application      *decimal.Decimal `json:"aplicacao,omitempty"`
	Redemption       *decimal.Decimal `json:"resgate,omitempty"`
	Yield            *decimal.Decimal `json:"rendimentos,omitempty"`
	FeePaid          *decimal.Decimal `json:"tarifa_paga,omitempty"`
	FeeRefunded      *decimal.Decimal `json:"tarifa_devolvida,omitempty"`
	OriginalLine     string           `json:"texto_original"`
	DocumentType     string           `json:"tipo_documento"`
	ExtractionMethod string           `json:"metodo_extracao"`
}

// PageResult is the OCR outcome of one page.
type PageResult struct {
	Page int    `json:"page"`
	Text string `json:"text"`
	Err  string `json:"error,omitempty"`
}

func (p PageResult) Failed() bool { return p.Err != "" }

// JobResult is attached to a job when it reaches DONE. Immutable after that.
type JobResult struct {
	JobID         string         `json:"job_id"`
	Filename      string         `json:"filename"`
	TotalPages    int            `json:"total_pages"`
	RelevantPages int            `json:"relevant_pages"`
	FailedPages   []int          `json:"failed_pages"`
	RecordCount   int            `json:"record_count"`
	Values        []LabeledValue `json:"values"`
	Movements     []Movement     `json:"movements"`
	Aggregate     Aggregate      `json:"aggregate"`
	Duration      time.Duration  `json:"-"`
	DurationMS    int64          `json:"processing_time_ms"`
}
