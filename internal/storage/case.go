package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/todmy/faers-signals/internal/cohort"
	"github.com/todmy/faers-signals/pkg/models"
)

// CaseQuery selects the case population and the query drug for an analysis
type CaseQuery struct {
	Drug   string
	MinAge *float64
	MaxAge *float64
}

// CaseRepository loads analysis-ready cases
type CaseRepository interface {
	LoadCases(ctx context.Context, query CaseQuery) ([]models.Case, error)
}

// PostgresCaseRepository implements CaseRepository over the ETL case tables
type PostgresCaseRepository struct {
	db *sql.DB
}

// NewPostgresCaseRepository creates a new PostgresCaseRepository
func NewPostgresCaseRepository(db *sql.DB) *PostgresCaseRepository {
	return &PostgresCaseRepository{db: db}
}

// LoadCases returns every case in the optional age range with its query-drug
// flags and distinct reaction terms, ordered by case id. Names and role codes
// are compared as cohort.Build compares them: the drug is a case-insensitive
// substring of any of the four name columns, with backslashes read as slashes,
// and the primary-suspect role code ignores case and padding.
func (r *PostgresCaseRepository) LoadCases(ctx context.Context, query CaseQuery) ([]models.Case, error) {
	drug := cohort.NormalizeDrugName(query.Drug)
	if drug == "" {
		return nil, fmt.Errorf("drug name is required")
	}

	sqlQuery := `
		SELECT c.case_id,
			   COALESCE(dq.mentioned, false),
			   COALESCE(dq.primary_suspect, false),
			   COALESCE(rx.terms, '{}')
		FROM cases c
		LEFT JOIN (
			SELECT case_id,
				   true AS mentioned,
				   bool_or(upper(trim(role_cod)) = $2) AS primary_suspect
			FROM case_drugs
			WHERE lower(replace(drugname, '\', '/')) LIKE $1
			   OR lower(replace(prod_ai, '\', '/')) LIKE $1
			   OR lower(replace(best_match_name, '\', '/')) LIKE $1
			   OR lower(replace(rxnorm_name, '\', '/')) LIKE $1
			GROUP BY case_id
		) dq ON dq.case_id = c.case_id
		LEFT JOIN (
			SELECT case_id, array_agg(DISTINCT pt ORDER BY pt) AS terms
			FROM case_reactions
			GROUP BY case_id
		) rx ON rx.case_id = c.case_id
		WHERE ($3::double precision IS NULL OR c.age_years >= $3)
		  AND ($4::double precision IS NULL OR c.age_years <= $4)
		ORDER BY c.case_id ASC
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery,
		likePattern(drug),
		cohort.RolePrimarySuspect,
		nullableFloat(query.MinAge),
		nullableFloat(query.MaxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}
	defer rows.Close()

	cases := []models.Case{}
	for rows.Next() {
		var c models.Case
		var terms []string
		if err := rows.Scan(&c.CaseID, &c.IsQueryDrug, &c.IsPrimarySuspectQueryDrug, pq.Array(&terms)); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		c.EventTerms = terms
		cases = append(cases, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load cases: %w", err)
	}

	return cases, nil
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters
func likePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(s) + "%"
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
