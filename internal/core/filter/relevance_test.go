package filter

import (
	"testing"

	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

func TestCheck(t *testing.T) {
	f := NewDefault()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"empty", "", false},
		{"blank lines", "\n  \n", false},
		{"no keywords", "Relatório anual de atividades\nPágina 3", false},
		{"single ordinary keyword", "Conta 12345-6", false},
		{"two distinct keywords", "Agência 0001 Conta 12345-6", true},
		{"priority keyword alone", "Extrato do Convênio 2024", true},
		{"priority unaccented", "DADOS BANCARIOS", true},
		{"priority accented lowercase", "dados bancários do favorecido", true},
		{"institution plus cnpj", "Banco Bradesco S.A. CNPJ 60.746.948/0001-12", true},
		{"substring is not a keyword", "INTERNACIONAL CONTABILIDADE", false},
		{"repeated keyword counts once", "CONTA CONTA CONTA", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Check(tt.text).Relevant; got != tt.want {
				t.Fatalf("Check(%q).Relevant = %v, want %v (matched %v)", tt.text, got, tt.want, f.Check(tt.text).Matched)
			}
		})
	}
}

func TestRelevantDropsFailedAndIrrelevant(t *testing.T) {
	pages := []entity.PageResult{
		{Page: 1, Text: "CONVÊNIO 123 SALDO 10,00"},
		{Page: 2, Text: "capa"},
		{Page: 3, Text: "CONVENIO", Err: "tesseract exited 1"},
		{Page: 4, Text: "Agência 1 Conta 2 ENTRADA 5,00"},
	}
	got := NewDefault().Relevant(pages)
	if len(got) != 2 || got[0].Page != 1 || got[1].Page != 4 {
		t.Fatalf("Relevant() pages = %+v, want 1 and 4", got)
	}
}

func TestNewCustomKeywords(t *testing.T) {
	f := New([]string{"alpha", "beta"}, []string{"gamma"})
	if f.Check("alpha").Relevant {
		t.Fatalf("single ordinary keyword should not be relevant")
	}
	if !f.Check("alpha beta").Relevant {
		t.Fatalf("two keywords should be relevant")
	}
	if !f.Check("Gamma").Relevant {
		t.Fatalf("priority keyword should be relevant")
	}
}
