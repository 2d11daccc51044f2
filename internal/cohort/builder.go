package cohort

import (
	"sort"
	"strings"

	"github.com/todmy/faers-signals/pkg/models"
)

// DrugMention is one normalized DRUG row
type DrugMention struct {
	CaseID           string `json:"case_id"`
	DrugName         string `json:"drugname"`
	ActiveIngredient string `json:"prod_ai"`
	BestMatchName    string `json:"best_match_name"`
	RxNormName       string `json:"rxnorm_name"`
	RoleCode         string `json:"role_cod"`
}

// Reaction is one normalized REAC row
type Reaction struct {
	CaseID        string `json:"case_id"`
	PreferredTerm string `json:"pt"`
}

// Demographic is one DEMO row
type Demographic struct {
	CaseID      string  `json:"case_id"`
	CaseVersion int     `json:"caseversion"`
	FDADate     string  `json:"fda_dt"` // YYYYMMDD
	Age         float64 `json:"age"`
	AgeCode     string  `json:"age_cod"`
	HasAge      bool    `json:"has_age"`
}

// MatchesDrug reports whether any name field of the mention contains the query
func MatchesDrug(m DrugMention, query string) bool {
	query = NormalizeDrugName(query)
	if query == "" {
		return false
	}
	for _, name := range []string{m.DrugName, m.ActiveIngredient, m.BestMatchName, m.RxNormName} {
		if strings.Contains(NormalizeDrugName(name), query) {
			return true
		}
	}
	return false
}

// LatestVersions keeps the highest case version per case, breaking ties on FDA date
func LatestVersions(demos []Demographic) map[string]Demographic {
	latest := make(map[string]Demographic, len(demos))
	for _, d := range demos {
		current, ok := latest[d.CaseID]
		if !ok || d.CaseVersion > current.CaseVersion ||
			(d.CaseVersion == current.CaseVersion && d.FDADate > current.FDADate) {
			latest[d.CaseID] = d
		}
	}
	return latest
}

type buildOptions struct {
	demographics map[string]Demographic
	minAge       float64
	maxAge       float64
	ageFilter    bool
	allTerms     []string
}

// Option narrows the case population
type Option func(*buildOptions)

// WithAgeRange keeps cases whose latest demographic age, in years, lies in [minAge, maxAge].
// Cases without a usable age are dropped.
func WithAgeRange(minAge, maxAge float64, demos []Demographic) Option {
	return func(o *buildOptions) {
		o.demographics = LatestVersions(demos)
		o.minAge = minAge
		o.maxAge = maxAge
		o.ageFilter = true
	}
}

// WithPreferredTerms keeps cases reporting every one of the given terms
func WithPreferredTerms(terms ...string) Option {
	return func(o *buildOptions) {
		for _, t := range terms {
			if n := NormalizeTerm(t); n != "" {
				o.allTerms = append(o.allTerms, n)
			}
		}
	}
}

// Build assembles one Case per case id found in the drug rows. The query drug
// flags come from MatchesDrug and the primary-suspect role code; event terms
// are normalized and deduplicated. Cases are returned ordered by id.
func Build(query string, drugs []DrugMention, reactions []Reaction, opts ...Option) []models.Case {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	byID := make(map[string]*models.Case)
	for _, m := range drugs {
		c, ok := byID[m.CaseID]
		if !ok {
			c = &models.Case{CaseID: m.CaseID}
			byID[m.CaseID] = c
		}
		if MatchesDrug(m, query) {
			c.IsQueryDrug = true
			if strings.EqualFold(strings.TrimSpace(m.RoleCode), RolePrimarySuspect) {
				c.IsPrimarySuspectQueryDrug = true
			}
		}
	}

	terms := make(map[string]map[string]struct{})
	for _, r := range reactions {
		if _, ok := byID[r.CaseID]; !ok {
			continue
		}
		term := NormalizeTerm(r.PreferredTerm)
		if term == "" {
			continue
		}
		if terms[r.CaseID] == nil {
			terms[r.CaseID] = make(map[string]struct{})
		}
		terms[r.CaseID][term] = struct{}{}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cases := make([]models.Case, 0, len(ids))
	for _, id := range ids {
		c := byID[id]
		c.EventTerms = sortedTerms(terms[id])

		if o.ageFilter && !o.inAgeRange(id) {
			continue
		}
		if len(o.allTerms) > 0 && !containsAll(terms[id], o.allTerms) {
			continue
		}
		cases = append(cases, *c)
	}

	return cases
}

func (o *buildOptions) inAgeRange(caseID string) bool {
	d, ok := o.demographics[caseID]
	if !ok || !d.HasAge {
		return false
	}
	age, ok := AgeInYears(d.Age, d.AgeCode)
	if !ok {
		return false
	}
	return age >= o.minAge && age <= o.maxAge
}

func sortedTerms(set map[string]struct{}) []string {
	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func containsAll(set map[string]struct{}, required []string) bool {
	for _, t := range required {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
