package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/pkg/models"
)

// ErrAnalysisNotFound is returned when an analysis run does not exist
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisRepository defines the interface for analysis run storage operations
type AnalysisRepository interface {
	// SaveRun stores a run together with the records of every exposure
	// partition. Either everything is stored or nothing is.
	SaveRun(ctx context.Context, run *models.AnalysisRun, records map[signal.Exposure][]models.SignalRecord) error
	GetByID(ctx context.Context, id string) (*models.AnalysisRun, error)
	GetByAnalystID(ctx context.Context, analystID string) ([]*models.AnalysisRun, error)
	CountByAnalystID(ctx context.Context, analystID string) (int, error)
	GetSignals(ctx context.Context, analysisID string, exposure signal.Exposure) ([]models.SignalRecord, error)
}

// PostgresAnalysisRepository implements AnalysisRepository using PostgreSQL
type PostgresAnalysisRepository struct {
	db *sql.DB
}

// NewPostgresAnalysisRepository creates a new PostgresAnalysisRepository
func NewPostgresAnalysisRepository(db *sql.DB) *PostgresAnalysisRepository {
	return &PostgresAnalysisRepository{db: db}
}

// SaveRun inserts the run row and all signal records in one transaction.
// The run ID and creation time are assigned when empty.
func (r *PostgresAnalysisRepository) SaveRun(ctx context.Context, run *models.AnalysisRun, records map[signal.Exposure][]models.SignalRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, analyst_id, drug, min_count, alpha, total_cases,
			exposed_cases, primary_suspect_cases, cache_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		run.ID,
		run.AnalystID,
		run.Drug,
		run.MinCount,
		run.Alpha,
		run.TotalCases,
		run.ExposedCases,
		run.PrimarySuspectCases,
		run.CacheKey,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	if err := insertSignals(ctx, tx, run.ID, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis run: %w", err)
	}
	return nil
}

// insertSignals writes the records of every exposure, in exposure order,
// through one prepared statement
func insertSignals(ctx context.Context, tx *sql.Tx, analysisID string, records map[signal.Exposure][]models.SignalRecord) error {
	total := 0
	for _, recs := range records {
		total += len(recs)
	}
	if total == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signal_records (analysis_id, exposure, term, a, b, c, d,
			odds_ratio, or_ci_lower, or_ci_upper, prr, prr_se, prr_ci_lower, prr_ci_upper,
			chi_squared, p_value, corrected_p_value, significant, is_signal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare signal insert: %w", err)
	}
	defer stmt.Close()

	for _, exposure := range signal.Exposures {
		for _, rec := range records[exposure] {
			_, err := stmt.ExecContext(ctx,
				analysisID,
				exposure.String(),
				rec.Term,
				rec.A,
				rec.B,
				rec.C,
				rec.D,
				rec.OddsRatio,
				rec.ORCILower,
				rec.ORCIUpper,
				rec.PRR,
				rec.PRRSE,
				rec.PRRCILower,
				rec.PRRCIUpper,
				nullableFloat(rec.ChiSquared),
				nullableFloat(rec.PValue),
				nullableFloat(rec.CorrectedPValue),
				rec.Significant,
				rec.Signal,
			)
			if err != nil {
				return fmt.Errorf("failed to save %s signal for %q: %w", exposure, rec.Term, err)
			}
		}
	}

	return nil
}

// GetByID retrieves an analysis run by its ID
func (r *PostgresAnalysisRepository) GetByID(ctx context.Context, id string) (*models.AnalysisRun, error) {
	query := `
		SELECT id, analyst_id, drug, min_count, alpha, total_cases,
			   exposed_cases, primary_suspect_cases, cache_key, created_at
		FROM analysis_runs
		WHERE id = $1
	`

	run := &models.AnalysisRun{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.AnalystID,
		&run.Drug,
		&run.MinCount,
		&run.Alpha,
		&run.TotalCases,
		&run.ExposedCases,
		&run.PrimarySuspectCases,
		&run.CacheKey,
		&run.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}

	return run, nil
}

// GetByAnalystID retrieves all runs owned by an analyst, newest first
func (r *PostgresAnalysisRepository) GetByAnalystID(ctx context.Context, analystID string) ([]*models.AnalysisRun, error) {
	query := `
		SELECT id, analyst_id, drug, min_count, alpha, total_cases,
			   exposed_cases, primary_suspect_cases, cache_key, created_at
		FROM analysis_runs
		WHERE analyst_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, analystID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*models.AnalysisRun{}
	for rows.Next() {
		run := &models.AnalysisRun{}
		err := rows.Scan(
			&run.ID,
			&run.AnalystID,
			&run.Drug,
			&run.MinCount,
			&run.Alpha,
			&run.TotalCases,
			&run.ExposedCases,
			&run.PrimarySuspectCases,
			&run.CacheKey,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// CountByAnalystID returns how many runs an analyst owns
func (r *PostgresAnalysisRepository) CountByAnalystID(ctx context.Context, analystID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM analysis_runs WHERE analyst_id = $1`, analystID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analysis runs: %w", err)
	}
	return count, nil
}

// GetSignals retrieves the records of one exposure partition ordered by term
func (r *PostgresAnalysisRepository) GetSignals(ctx context.Context, analysisID string, exposure signal.Exposure) ([]models.SignalRecord, error) {
	query := `
		SELECT term, a, b, c, d, odds_ratio, or_ci_lower, or_ci_upper,
			   prr, prr_se, prr_ci_lower, prr_ci_upper,
			   chi_squared, p_value, corrected_p_value, significant, is_signal
		FROM signal_records
		WHERE analysis_id = $1 AND exposure = $2
		ORDER BY term ASC
	`

	rows, err := r.db.QueryContext(ctx, query, analysisID, exposure.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.SignalRecord{}
	for rows.Next() {
		var rec models.SignalRecord
		var chi, p, q sql.NullFloat64
		err := rows.Scan(
			&rec.Term,
			&rec.A,
			&rec.B,
			&rec.C,
			&rec.D,
			&rec.OddsRatio,
			&rec.ORCILower,
			&rec.ORCIUpper,
			&rec.PRR,
			&rec.PRRSE,
			&rec.PRRCILower,
			&rec.PRRCIUpper,
			&chi,
			&p,
			&q,
			&rec.Significant,
			&rec.Signal,
		)
		if err != nil {
			return nil, err
		}
		if _, err := signal.NewTable(rec.Term, rec.A, rec.B, rec.C, rec.D); err != nil {
			return nil, fmt.Errorf("stored signal record for analysis %s: %w", analysisID, err)
		}
		rec.ChiSquared = floatPtr(chi)
		rec.PValue = floatPtr(p)
		rec.CorrectedPValue = floatPtr(q)
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
