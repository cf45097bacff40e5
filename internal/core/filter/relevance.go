package filter

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/convenio-extractor/internal/core/labels"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// DefaultKeywords are the terms that signal convênio or bank data on a page.
var DefaultKeywords = []string{
	"CONVÊNIO", "CONVENIO",
	"BANCO", "DADOS BANCÁRIOS", "DADOS BANCARIOS",
	"AGÊNCIA", "AGENCIA",
	"CONTA", "CONTA CORRENTE", "CONTA POUPANÇA", "POUPANCA",
	"CPF", "CNPJ",
	"INSTITUIÇÃO FINANCEIRA", "INSTITUICAO FINANCEIRA",
	"BANCO DO BRASIL", "BRADESCO", "ITAU", "ITAÚ", "SANTANDER",
	"CAIXA", "CAIXA ECONOMICA", "NUBANK", "INTER",
}

// DefaultPriorityKeywords make a page relevant on their own.
var DefaultPriorityKeywords = []string{
	"CONVÊNIO", "CONVENIO", "DADOS BANCÁRIOS", "DADOS BANCARIOS",
}

// MinDistinctKeywords is how many different ordinary keywords a page needs.
const MinDistinctKeywords = 2

type keyword struct {
	term     string
	priority bool
	re       *regexp.Regexp
}

// Filter decides which OCR'd pages are worth extracting from.
type Filter struct {
	keywords []keyword
}

// Verdict is the outcome for one page.
type Verdict struct {
	Relevant bool
	Matched  []string
}

func New(keywords, priority []string) *Filter {
	prio := make(map[string]bool, len(priority))
	for _, p := range priority {
		prio[labels.Fold(p)] = true
	}
	seen := make(map[string]bool)
	f := &Filter{}
	for _, k := range append(append([]string{}, keywords...), priority...) {
		term := labels.Fold(strings.TrimSpace(k))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		words := strings.Fields(term)
		for i := range words {
			words[i] = regexp.QuoteMeta(words[i])
		}
		f.keywords = append(f.keywords, keyword{
			term:     term,
			priority: prio[term],
			re:       regexp.MustCompile(`\b` + strings.Join(words, `\s+`) + `\b`),
		})
	}
	return f
}

// NewDefault builds a filter over DefaultKeywords and DefaultPriorityKeywords.
func NewDefault() *Filter {
	return New(DefaultKeywords, DefaultPriorityKeywords)
}

// Check evaluates one page of text.
func (f *Filter) Check(text string) Verdict {
	folded := labels.Fold(text)
	if strings.TrimSpace(folded) == "" {
		return Verdict{}
	}
	var v Verdict
	priority := false
	for _, k := range f.keywords {
		if k.re.MatchString(folded) {
			v.Matched = append(v.Matched, k.term)
			priority = priority || k.priority
		}
	}
	v.Relevant = priority || len(v.Matched) >= MinDistinctKeywords
	return v
}

// Relevant keeps pages that OCR'd without error and pass Check.
func (f *Filter) Relevant(pages []entity.PageResult) []entity.PageResult {
	out := make([]entity.PageResult, 0, len(pages))
	for _, p := range pages {
		if p.Failed() {
			continue
		}
		if f.Check(p.Text).Relevant {
			out = append(out, p)
		}
	}
	return out
}
