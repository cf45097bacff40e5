// Package aggregate sums labeled values per field and withholds any total
// whose inputs failed validation.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/extract"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/labels"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// Aggregate builds field totals and the validation summary for a document.
// A field is either fully reported or fully blocked.
func Aggregate(values []entity.LabeledValue) entity.Aggregate {
	byField := extract.GroupByField(values)

	fields := make([]constants.Field, 0, len(byField))
	for f := range byField {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	out := entity.Aggregate{
		Totals: make([]entity.FieldTotal, 0, len(fields)),
		Summary: entity.ValidationSummary{
			BlockedFields:   []string{},
			ProcessedFields: []string{},
		},
	}
	for _, f := range fields {
		total := fieldTotal(f, byField[f])
		out.Totals = append(out.Totals, total)
		out.Summary.ProcessedFields = append(out.Summary.ProcessedFields, string(f))
		if total.IsBlocked() {
			out.Summary.BlockedFields = append(out.Summary.BlockedFields, string(f))
		}
	}

	for _, v := range values {
		out.Summary.TotalValues++
		if v.OK() {
			out.Summary.OKValues++
		} else {
			out.Summary.SuspectValues++
		}
	}
	if out.Summary.TotalValues > 0 {
		pct := float64(out.Summary.OKValues) / float64(out.Summary.TotalValues) * 100
		out.Summary.PercentOK = math.Round(pct*100) / 100
	}
	out.HasSuspectValues = len(out.Summary.BlockedFields) > 0
	return out
}

func fieldTotal(f constants.Field, values []entity.LabeledValue) entity.FieldTotal {
	var suspects []entity.LabeledValue
	sum := decimal.Zero
	count := 0
	for _, v := range values {
		if !v.OK() || v.Value == nil {
			suspects = append(suspects, v)
			continue
		}
		sum = sum.Add(*v.Value)
		count++
	}

	if len(suspects) > 0 {
		reason := fmt.Sprintf("%d valor(es) suspeito(s) detectado(s)", len(suspects))
		if first := suspects[0].Reason; first != "" {
			reason += ": " + first
		}
		return entity.BlockedTotal(f, reason, len(suspects))
	}
	if !labels.Plausible(sum) {
		return entity.BlockedTotal(f, fmt.Sprintf("Total absurdo: %s", sum.StringFixed(2)), 0)
	}
	return entity.ReportedTotal(f, sum, count)
}
