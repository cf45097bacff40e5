package labels

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PlausibilityBound is the largest magnitude accepted for a single value or a field total.
var PlausibilityBound = decimal.NewFromInt(1_000_000_000)

var errNumeral = errors.New("unparseable numeral")

// ParseBR parses a numeral written with Brazilian grouping: "." separates
// thousands and "," separates decimals ("168.376,96" is 168376.96).
func ParseBR(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Count(s, ",") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", errNumeral, raw)
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)
	if s == "" || s == "." || strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return decimal.Zero, fmt.Errorf("%w: %q", errNumeral, raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", errNumeral, raw)
	}
	return d, nil
}

// Plausible reports whether |d| stays within PlausibilityBound.
func Plausible(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(PlausibilityBound)
}

// Verdict is the classification of one captured numeral.
type Verdict struct {
	Value  *decimal.Decimal
	OK     bool
	Reason string
}

// Classify parses raw and checks it against the plausibility bound.
// An out-of-range value is still returned so callers can show it.
func Classify(raw string) Verdict {
	d, err := ParseBR(raw)
	if err != nil {
		return Verdict{Reason: fmt.Sprintf("Numeral ilegível: %s", raw)}
	}
	if !Plausible(d) {
		return Verdict{Value: &d, Reason: fmt.Sprintf("Valor fora dos limites razoáveis: %s", d.StringFixed(2))}
	}
	return Verdict{Value: &d, OK: true}
}
