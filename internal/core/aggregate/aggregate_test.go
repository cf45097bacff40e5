package aggregate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/core/extract"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

func ok(f constants.Field, v string) entity.LabeledValue {
	d := decimal.RequireFromString(v)
	return entity.LabeledValue{Field: f, Value: &d, Status: entity.ValueOK}
}

func suspect(f constants.Field, v, reason string) entity.LabeledValue {
	d := decimal.RequireFromString(v)
	return entity.LabeledValue{Field: f, Value: &d, Status: entity.ValueSuspect, Reason: reason}
}

func TestAggregateSumsOKValues(t *testing.T) {
	agg := Aggregate([]entity.LabeledValue{
		ok(constants.FieldEntrada, "100.10"),
		ok(constants.FieldEntrada, "0.20"),
		ok(constants.FieldSaida, "50"),
	})

	entrada, found := agg.Total(constants.FieldEntrada)
	if !found || entrada.IsBlocked() {
		t.Fatalf("entrada total = %+v, want reported", entrada)
	}
	if !entrada.Sum.Equal(decimal.RequireFromString("100.30")) || entrada.Count != 2 {
		t.Fatalf("entrada = %s x%d, want 100.30 x2", entrada.Sum, entrada.Count)
	}
	if agg.HasSuspectValues {
		t.Fatalf("HasSuspectValues = true, want false")
	}
	if agg.Summary.PercentOK != 100 {
		t.Fatalf("PercentOK = %v, want 100", agg.Summary.PercentOK)
	}
	if diff := cmp.Diff([]string{"entrada", "saida"}, agg.Summary.ProcessedFields); diff != "" {
		t.Fatalf("ProcessedFields (-want +got):\n%s", diff)
	}
}

// TestAggregateBlocksFieldWithSuspect verifies one suspect value poisons its whole field only.
func TestAggregateBlocksFieldWithSuspect(t *testing.T) {
	agg := Aggregate([]entity.LabeledValue{
		ok(constants.FieldSaldoAnterior, "100"),
		suspect(constants.FieldSaldoAnterior, "3254269459.98", "Valor fora dos limites razoáveis: 3254269459.98"),
		ok(constants.FieldSaida, "10"),
	})

	saldo, _ := agg.Total(constants.FieldSaldoAnterior)
	if !saldo.IsBlocked() || saldo.Sum != nil {
		t.Fatalf("saldo_anterior = %+v, want blocked with no sum", saldo)
	}
	if saldo.Blocked.SuspectCount != 1 || !strings.Contains(saldo.Blocked.Reason, "1 valor(es) suspeito(s)") {
		t.Fatalf("blocked = %+v", saldo.Blocked)
	}
	if !strings.Contains(saldo.Blocked.Reason, "3254269459.98") {
		t.Fatalf("reason %q does not cite the magnitude", saldo.Blocked.Reason)
	}

	saida, _ := agg.Total(constants.FieldSaida)
	if saida.IsBlocked() {
		t.Fatalf("saida blocked, want reported")
	}
	if !agg.HasSuspectValues {
		t.Fatalf("HasSuspectValues = false, want true")
	}
	if diff := cmp.Diff([]string{"saldo_anterior"}, agg.Summary.BlockedFields); diff != "" {
		t.Fatalf("BlockedFields (-want +got):\n%s", diff)
	}
	if agg.Summary.TotalValues != 3 || agg.Summary.OKValues != 2 || agg.Summary.SuspectValues != 1 {
		t.Fatalf("summary = %+v", agg.Summary)
	}
	if agg.Summary.PercentOK != 66.67 {
		t.Fatalf("PercentOK = %v, want 66.67", agg.Summary.PercentOK)
	}
}

// TestAggregateBlocksAbsurdSum verifies individually plausible values can still add up to a blocked total.
func TestAggregateBlocksAbsurdSum(t *testing.T) {
	agg := Aggregate([]entity.LabeledValue{
		ok(constants.FieldEntrada, "600000000"),
		ok(constants.FieldEntrada, "500000000"),
	})
	entrada, _ := agg.Total(constants.FieldEntrada)
	if !entrada.IsBlocked() {
		t.Fatalf("entrada = %+v, want blocked", entrada)
	}
	if !strings.Contains(entrada.Blocked.Reason, "Total absurdo") {
		t.Fatalf("reason = %q", entrada.Blocked.Reason)
	}
	if !agg.HasSuspectValues {
		t.Fatalf("HasSuspectValues = false, want true")
	}
}

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil)
	if len(agg.Totals) != 0 || agg.HasSuspectValues || agg.Summary.PercentOK != 0 {
		t.Fatalf("Aggregate(nil) = %+v", agg)
	}
	if agg.Summary.BlockedFields == nil {
		t.Fatalf("BlockedFields should be an empty slice, not nil")
	}
}

// TestExtractThenAggregate runs the suspect example end to end through both stages.
func TestExtractThenAggregate(t *testing.T) {
	values := extract.NewLabelExtractor().ExtractPage(1, "SALDO ANTERIOR 3.254.269.459,98")
	agg := Aggregate(values)
	total, found := agg.Total(constants.FieldSaldoAnterior)
	if !found || !total.IsBlocked() {
		t.Fatalf("saldo_anterior = %+v, want blocked", total)
	}
}

// TestAggregateOneTotalPerGroup verifies totals mirror the per-field grouping,
// with interleaved fields counted into their own buckets.
func TestAggregateOneTotalPerGroup(t *testing.T) {
	values := []entity.LabeledValue{
		ok(constants.FieldSaida, "1"),
		ok(constants.FieldEntrada, "2"),
		ok(constants.FieldSaida, "3"),
		suspect(constants.FieldResgate, "4", "ambíguo"),
		ok(constants.FieldEntrada, "5"),
		ok(constants.FieldSaida, "6"),
	}
	groups := extract.GroupByField(values)
	agg := Aggregate(values)
	if len(agg.Totals) != len(groups) {
		t.Fatalf("len(Totals) = %d, want %d", len(agg.Totals), len(groups))
	}
	for _, total := range agg.Totals {
		if total.IsBlocked() {
			if total.Field != constants.FieldResgate || total.Blocked.SuspectCount != 1 {
				t.Fatalf("blocked total = %+v", total)
			}
			continue
		}
		if total.Count != len(groups[total.Field]) {
			t.Fatalf("%s count = %d, want %d", total.Field, total.Count, len(groups[total.Field]))
		}
	}
	saida, _ := agg.Total(constants.FieldSaida)
	if !saida.Sum.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("saida sum = %s, want 10", saida.Sum)
	}
}
