package constants

import (
	"strings"
)

// Field is the canonical semantic bucket a recognized label maps to.
type Field string

const (
	FieldSaldoAnterior     Field = "saldo_anterior"
	FieldSaldoAtual        Field = "saldo_atual"
	FieldSaldo             Field = "saldo"
	FieldEntrada           Field = "entrada"
	FieldSaida             Field = "saida"
	FieldAplicacao         Field = "aplicacao"
	FieldResgate           Field = "resgate"
	FieldRendimento        Field = "rendimento"
	FieldRendimentoBruto   Field = "rendimento_bruto"
	FieldRendimentoLiquido Field = "rendimento_liquido"
	FieldIR                Field = "ir"
	FieldIOF               Field = "iof"
	FieldTarifa            Field = "tarifa"
	FieldTarifaPaga        Field = "tarifa_paga"
	FieldTarifaDevolvida   Field = "tarifa_devolvida"
	FieldValorCota         Field = "valor_cota"
	FieldRentabilidade     Field = "rentabilidade"
)

var allFields = []Field{
	FieldSaldoAnterior,
	FieldSaldoAtual,
	FieldSaldo,
	FieldEntrada,
	FieldSaida,
	FieldAplicacao,
	FieldResgate,
	FieldRendimento,
	FieldRendimentoBruto,
	FieldRendimentoLiquido,
	FieldIR,
	FieldIOF,
	FieldTarifa,
	FieldTarifaPaga,
	FieldTarifaDevolvida,
	FieldValorCota,
	FieldRentabilidade,
}

func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// ParseField resolves a field name, tolerating case and surrounding spaces.
func ParseField(input string) (Field, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}
	for _, f := range allFields {
		if normalized == string(f) {
			return f, true
		}
	}
	return "", false
}

// IsBalance reports whether f is one of the balance snapshots.
func (f Field) IsBalance() bool {
	switch f {
	case FieldSaldo, FieldSaldoAtual, FieldSaldoAnterior:
		return true
	}
	return false
}

// IsYield reports whether f is one of the yield fields.
func (f Field) IsYield() bool {
	switch f {
	case FieldRendimento, FieldRendimentoBruto, FieldRendimentoLiquido:
		return true
	}
	return false
}
