package extract

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

// ToMovements projects OK values onto movement rows. SUSPECT values never
// become rows.
func ToMovements(values []entity.LabeledValue) []entity.Movement {
	out := make([]entity.Movement, 0, len(values))
	for _, v := range values {
		if !v.OK() || v.Value == nil {
			continue
		}
		out = append(out, toMovement(v))
	}
	return out
}

func toMovement(v entity.LabeledValue) entity.Movement {
	m := entity.Movement{
		ID:               uuid.NewString(),
		Page:             v.Page,
		Label:            v.Label,
		Field:            v.Field,
		OriginalLine:     v.OriginalLine,
		DocumentType:     constants.DocumentTypeConvenio,
		ExtractionMethod: constants.ExtractionMethodLabel,
	}
	val := func() *decimal.Decimal { d := *v.Value; return &d }

	switch {
	case v.Field == constants.FieldEntrada:
		m.Entry = val()
	case v.Field == constants.FieldSaida:
		m.Exit = val()
	case v.Field.IsBalance():
		m.Balance = val()
	case v.Field == constants.FieldAplicacao:
		m.Application = val()
		m.Entry = val()
	case v.Field == constants.FieldResgate:
		m.Redemption = val()
		m.Exit = val()
	case v.Field.IsYield():
		m.Yield = val()
		m.Entry = val()
	case v.Field == constants.FieldTarifaPaga:
		m.FeePaid = val()
		m.Exit = val()
	case v.Field == constants.FieldTarifaDevolvida:
		m.FeeRefunded = val()
		m.Entry = val()
	}
	// ir, iof, tarifa, valor_cota and rentabilidade keep provenance only.
	return m
}
