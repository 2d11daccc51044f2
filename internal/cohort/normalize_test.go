package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTerm(t *testing.T) {
	tests := map[string]string{
		"  Headache ":      "headache",
		"Nausea.":          "nausea",
		"UNKNOWN":          "",
		"":                 "",
		"Drug Ineffective": "drug ineffective",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeTerm(in), in)
	}
}

func TestNormalizeDrugName(t *testing.T) {
	assert.Equal(t, "aspirin/caffeine", NormalizeDrugName(`Aspirin\Caffeine.`))
	assert.Equal(t, "", NormalizeDrugName(" unknown "))
}

func TestAgeInYears(t *testing.T) {
	tests := []struct {
		age  float64
		code string
		want float64
		ok   bool
	}{
		{40, "YR", 40, true},
		{40, "", 40, true},
		{6, "MON", 0.5, true},
		{104, "wk", 2, true},
		{730, "DY", 2, true},
		{8760, "HR", 1, true},
		{3, "DEC", 30, true},
		{1, "XX", 0, false},
	}
	for _, tt := range tests {
		got, ok := AgeInYears(tt.age, tt.code)
		assert.Equal(t, tt.ok, ok, tt.code)
		assert.InDelta(t, tt.want, got, 1e-9, tt.code)
	}
}
