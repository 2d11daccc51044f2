package signal

import (
	"fmt"
	"sort"

	"github.com/todmy/faers-signals/pkg/models"
)

// Exposure selects which query-drug flag defines the exposed cohort
type Exposure int

const (
	ExposureAnyMention Exposure = iota
	ExposurePrimarySuspect
)

// Exposures lists every exposure partition an analysis run covers, in report order
var Exposures = []Exposure{ExposureAnyMention, ExposurePrimarySuspect}

// String returns the wire name of the exposure
func (e Exposure) String() string {
	switch e {
	case ExposureAnyMention:
		return "any_mention"
	case ExposurePrimarySuspect:
		return "primary_suspect"
	default:
		return fmt.Sprintf("exposure(%d)", int(e))
	}
}

// ParseExposure is the inverse of Exposure.String
func ParseExposure(s string) (Exposure, error) {
	switch s {
	case "any_mention", "":
		return ExposureAnyMention, nil
	case "primary_suspect":
		return ExposurePrimarySuspect, nil
	default:
		return 0, fmt.Errorf("%w: unknown exposure %q", ErrInvalidInput, s)
	}
}

// MarshalText encodes the exposure by name
func (e Exposure) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes an exposure name
func (e *Exposure) UnmarshalText(text []byte) error {
	parsed, err := ParseExposure(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Exposed reports whether the case belongs to the exposed side of the partition
func (e Exposure) Exposed(c models.Case) bool {
	if e == ExposurePrimarySuspect {
		return c.IsPrimarySuspectQueryDrug
	}
	return c.IsQueryDrug
}

// Cohort is a two-way split of a case collection
type Cohort struct {
	Exposed   []models.Case
	Unexposed []models.Case
}

// Partition splits cases into exposed and unexposed; every case lands on exactly one side
func Partition(cases []models.Case, exposure Exposure) Cohort {
	var cohort Cohort
	for _, c := range cases {
		if exposure.Exposed(c) {
			cohort.Exposed = append(cohort.Exposed, c)
		} else {
			cohort.Unexposed = append(cohort.Unexposed, c)
		}
	}
	return cohort
}

// Table is the 2x2 contingency table for one adverse-event term.
//
//	           term   no term
//	exposed      A       B
//	unexposed    C       D
type Table struct {
	Term string
	A    int
	B    int
	C    int
	D    int
}

// NewTable builds a table, rejecting negative cells
func NewTable(term string, a, b, c, d int) (Table, error) {
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return Table{}, fmt.Errorf("%w: negative cell in table for %q (a=%d b=%d c=%d d=%d)", ErrInvalidInput, term, a, b, c, d)
	}
	return Table{Term: term, A: a, B: b, C: c, D: d}, nil
}

// BuildTables counts, per term reported by at least one exposed case, how many
// exposed and unexposed cases report it, and drops terms with A < minCount.
// Tables are returned in ascending term order.
func BuildTables(cases []models.Case, exposure Exposure, minCount int) []Table {
	cohort := Partition(cases, exposure)
	totalExposed := len(cohort.Exposed)
	totalUnexposed := len(cohort.Unexposed)
	if totalExposed == 0 {
		return []Table{}
	}

	exposedCounts := countCasesPerTerm(cohort.Exposed)
	unexposedCounts := countCasesPerTerm(cohort.Unexposed)

	terms := make([]string, 0, len(exposedCounts))
	for term, a := range exposedCounts {
		if a >= minCount {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)

	tables := make([]Table, len(terms))
	for i, term := range terms {
		a := exposedCounts[term]
		c := unexposedCounts[term]
		tables[i] = Table{
			Term: term,
			A:    a,
			B:    totalExposed - a,
			C:    c,
			D:    totalUnexposed - c,
		}
	}
	return tables
}

// countCasesPerTerm counts cases per term; a term repeated within one case counts once
func countCasesPerTerm(cases []models.Case) map[string]int {
	counts := make(map[string]int)
	seen := make(map[string]struct{})
	for _, c := range cases {
		clear(seen)
		for _, term := range c.EventTerms {
			if term == "" {
				continue
			}
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			counts[term]++
		}
	}
	return counts
}
