package models

import (
	"time"
)

// Analyst represents a registered analyst
type Analyst struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Case is one deduplicated adverse-event report with its query-drug flags
type Case struct {
	CaseID                    string   `json:"case_id"`
	IsQueryDrug               bool     `json:"is_query_drug"`
	IsPrimarySuspectQueryDrug bool     `json:"is_primary_suspect_query_drug"`
	EventTerms                []string `json:"event_terms"`
}

// SignalRecord holds the disproportionality statistics for one term
// under one exposure partition. Nil p-values mean the chi-squared
// test was undefined for the table.
type SignalRecord struct {
	Term            string   `json:"term"`
	A               int      `json:"a"`
	B               int      `json:"b"`
	C               int      `json:"c"`
	D               int      `json:"d"`
	OddsRatio       float64  `json:"odds_ratio"`
	ORCILower       float64  `json:"or_ci_lower"`
	ORCIUpper       float64  `json:"or_ci_upper"`
	PRR             float64  `json:"prr"`
	PRRSE           float64  `json:"prr_se"`
	PRRCILower      float64  `json:"prr_ci_lower"`
	PRRCIUpper      float64  `json:"prr_ci_upper"`
	ChiSquared      *float64 `json:"chi_squared"`
	PValue          *float64 `json:"p_value"`
	CorrectedPValue *float64 `json:"corrected_p_value"`
	Significant     bool     `json:"significant"`
	Signal          bool     `json:"signal"`
}

// AnalysisRun represents a persisted signal-detection run for a query drug
type AnalysisRun struct {
	ID                  string    `json:"id"`
	AnalystID           string    `json:"analyst_id"`
	Drug                string    `json:"drug"`
	MinCount            int       `json:"min_count"`
	Alpha               float64   `json:"alpha"`
	TotalCases          int       `json:"total_cases"`
	ExposedCases        int       `json:"exposed_cases"`
	PrimarySuspectCases int       `json:"primary_suspect_cases"`
	CacheKey            string    `json:"cache_key"`
	CreatedAt           time.Time `json:"created_at"`
}
