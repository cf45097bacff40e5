package labels

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseBR(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"168.376,96", "168376.96"},
		{"1.234", "1234"},
		{"0,50", "0.5"},
		{"42", "42"},
		{"3.254.269.459,98", "3254269459.98"},
		{"1.000.000.000,00", "1000000000"},
	}
	for _, tt := range tests {
		got, err := ParseBR(tt.raw)
		if err != nil {
			t.Fatalf("ParseBR(%q) error = %v", tt.raw, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Fatalf("ParseBR(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseBRRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "1,2,3", ",", "abc", "12,"} {
		if _, err := ParseBR(raw); err == nil {
			t.Fatalf("ParseBR(%q) error = nil, want error", raw)
		}
	}
}

func TestClassify(t *testing.T) {
	ok := Classify("168.376,96")
	if !ok.OK || ok.Value == nil || ok.Reason != "" {
		t.Fatalf("Classify(168.376,96) = %+v, want OK", ok)
	}

	atBound := Classify("1.000.000.000,00")
	if !atBound.OK {
		t.Fatalf("Classify(bound) = %+v, want OK at the bound", atBound)
	}

	big := Classify("3.254.269.459,98")
	if big.OK {
		t.Fatalf("Classify(3.254.269.459,98) OK = true, want SUSPECT")
	}
	if big.Value == nil || !big.Value.Equal(decimal.RequireFromString("3254269459.98")) {
		t.Fatalf("Classify kept value = %v, want 3254269459.98", big.Value)
	}
	if !strings.Contains(big.Reason, "3254269459.98") {
		t.Fatalf("reason %q does not cite the magnitude", big.Reason)
	}

	bad := Classify("1,2,3")
	if bad.OK || bad.Value != nil || bad.Reason == "" {
		t.Fatalf("Classify(1,2,3) = %+v, want unparseable SUSPECT", bad)
	}
}
