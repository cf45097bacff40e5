package labels

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/convenio-extractor/constants"
)

// Entry maps one printed label onto its canonical field.
type Entry struct {
	Label string
	Field constants.Field
}

// entries is the closed vocabulary. Numbers not introduced by one of these
// labels are never treated as financial data.
var entries = []Entry{
	{"SALDO ANTERIOR", constants.FieldSaldoAnterior},
	{"SALDO ATUAL", constants.FieldSaldoAtual},
	{"SALDO", constants.FieldSaldo},

	{"ENTRADA", constants.FieldEntrada},
	{"SAIDA", constants.FieldSaida},
	{"SAÍDA", constants.FieldSaida},

	{"APLICACAO", constants.FieldAplicacao},
	{"APLICAÇÃO", constants.FieldAplicacao},
	{"APLICACOES", constants.FieldAplicacao},
	{"APLICAÇÕES", constants.FieldAplicacao},
	{"RESGATE", constants.FieldResgate},
	{"RESGATES", constants.FieldResgate},

	{"RENDIMENTO", constants.FieldRendimento},
	{"RENDIMENTOS", constants.FieldRendimento},
	{"RENDIMENTO BRUTO", constants.FieldRendimentoBruto},
	{"RENDIMENTO LIQUIDO", constants.FieldRendimentoLiquido},
	{"RENDIMENTO LÍQUIDO", constants.FieldRendimentoLiquido},

	{"IMPOSTO DE RENDA", constants.FieldIR},
	{"IR", constants.FieldIR},
	{"IOF", constants.FieldIOF},
	{"TARIFA", constants.FieldTarifa},
	{"TARIFA PAGA", constants.FieldTarifaPaga},
	{"TARIFA DEVOLVIDA", constants.FieldTarifaDevolvida},

	{"VALOR DA COTA", constants.FieldValorCota},
	{"RENTABILIDADE", constants.FieldRentabilidade},
}

// numeral captures digits with optional "." groups and one "," decimal part.
const numeral = `([0-9]+(?:\.[0-9]+)*(?:,[0-9]+)?)`

// Matcher is a compiled vocabulary entry. Rank is its precedence: lower wins
// when two matches overlap.
type Matcher struct {
	Entry
	Rank    int
	Pattern *regexp.Regexp
}

var matchers = compile(entries)

// Matchers returns the vocabulary in precedence order: longest folded label
// first, declaration order among equals. Accented spellings that fold onto an
// existing label are dropped.
func Matchers() []Matcher {
	out := make([]Matcher, len(matchers))
	copy(out, matchers)
	return out
}

// Lookup resolves a label, in any case or accent form, to its field.
func Lookup(label string) (constants.Field, bool) {
	folded := Fold(strings.TrimSpace(label))
	for _, m := range matchers {
		if m.Label == folded {
			return m.Field, true
		}
	}
	return "", false
}

func compile(in []Entry) []Matcher {
	seen := make(map[string]bool, len(in))
	folded := make([]Entry, 0, len(in))
	for _, e := range in {
		label := Fold(e.Label)
		if seen[label] {
			continue
		}
		seen[label] = true
		folded = append(folded, Entry{Label: label, Field: e.Field})
	}
	sort.SliceStable(folded, func(i, j int) bool {
		return len(folded[i].Label) > len(folded[j].Label)
	})

	out := make([]Matcher, len(folded))
	for i, e := range folded {
		words := strings.Fields(e.Label)
		for k := range words {
			words[k] = regexp.QuoteMeta(words[k])
		}
		expr := `\b` + strings.Join(words, `\s+`) + `\b\s*[:\-]?\s*` + numeral
		out[i] = Matcher{Entry: e, Rank: i, Pattern: regexp.MustCompile(expr)}
	}
	return out
}
