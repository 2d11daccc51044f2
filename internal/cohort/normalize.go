package cohort

import (
	"strings"
)

// RolePrimarySuspect is the DRUG table role code of the primary suspect drug
const RolePrimarySuspect = "PS"

const unknownValue = "unknown"

// NormalizeTerm lowercases and trims a MedDRA preferred term and strips a
// trailing period. Empty and "unknown" terms normalize to "".
func NormalizeTerm(term string) string {
	term = strings.ToLower(strings.TrimSpace(term))
	term = strings.TrimSuffix(term, ".")
	if term == unknownValue {
		return ""
	}
	return term
}

// NormalizeDrugName applies NormalizeTerm and unifies backslashes to slashes
func NormalizeDrugName(name string) string {
	return NormalizeTerm(strings.ReplaceAll(name, `\`, "/"))
}

// ageUnitsPerYear converts FAERS age codes to years
var ageUnitsPerYear = map[string]float64{
	"YR":  1,
	"DEC": 0.1,
	"MON": 12,
	"WK":  52,
	"DY":  365,
	"HR":  8760,
}

// AgeInYears converts an age with its FAERS unit code to years.
// Unknown codes report false.
func AgeInYears(age float64, code string) (float64, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = "YR"
	}
	perYear, ok := ageUnitsPerYear[code]
	if !ok {
		return 0, false
	}
	return age / perYear, true
}
