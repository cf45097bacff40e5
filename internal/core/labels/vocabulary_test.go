package labels

import (
	"testing"

	"github.com/joseph-ayodele/convenio-extractor/constants"
)

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Saída", "SAIDA"},
		{"APLICAÇÕES", "APLICACOES"},
		{"rendimento líquido", "RENDIMENTO LIQUIDO"},
		{"Convênio", "CONVENIO"},
		{"plain", "PLAIN"},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Fatalf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestMatchersLongestFirst verifies precedence runs from the longest label down.
func TestMatchersLongestFirst(t *testing.T) {
	ms := Matchers()
	for i := 1; i < len(ms); i++ {
		if len(ms[i-1].Label) < len(ms[i].Label) {
			t.Fatalf("matcher %d (%q) shorter than matcher %d (%q)", i-1, ms[i-1].Label, i, ms[i].Label)
		}
		if ms[i].Rank != i {
			t.Fatalf("matcher %d rank = %d", i, ms[i].Rank)
		}
	}
}

// TestMatchersDeduplicateAccents verifies accented spellings collapse to one matcher.
func TestMatchersDeduplicateAccents(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Matchers() {
		if seen[m.Label] {
			t.Fatalf("duplicate matcher %q", m.Label)
		}
		seen[m.Label] = true
	}
	if !seen["SAIDA"] || !seen["APLICACOES"] || !seen["RENDIMENTO LIQUIDO"] {
		t.Fatalf("expected folded labels in vocabulary, got %v", seen)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		label string
		want  constants.Field
	}{
		{"SALDO ANTERIOR", constants.FieldSaldoAnterior},
		{"saída", constants.FieldSaida},
		{"Aplicações", constants.FieldAplicacao},
		{"Rendimento Líquido", constants.FieldRendimentoLiquido},
		{"imposto de renda", constants.FieldIR},
		{"tarifa devolvida", constants.FieldTarifaDevolvida},
	}
	for _, tt := range tests {
		got, ok := Lookup(tt.label)
		if !ok || got != tt.want {
			t.Fatalf("Lookup(%q) = %q, %v; want %q", tt.label, got, ok, tt.want)
		}
	}
	if _, ok := Lookup("DESCONTO"); ok {
		t.Fatalf("Lookup(DESCONTO) ok = true, want false")
	}
}
