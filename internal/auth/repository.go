package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/todmy/faers-signals/pkg/models"
)

const analystColumns = `id, email, password_hash, created_at, updated_at`

// PostgresRepository stores analysts in the analysts table
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the analyst under a fresh ID. The unique email constraint
// decides races between concurrent registrations: a taken email reports
// ErrAnalystExists and leaves analyst.ID empty.
func (r *PostgresRepository) Create(ctx context.Context, analyst *models.Analyst) error {
	id := uuid.New().String()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO analysts (`+analystColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`,
		id,
		analyst.Email,
		analyst.PasswordHash,
		analyst.CreatedAt,
		analyst.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analyst %s: %w", analyst.Email, err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert analyst %s: %w", analyst.Email, err)
	}
	if inserted == 0 {
		return ErrAnalystExists
	}

	analyst.ID = id
	return nil
}

// GetByID retrieves an analyst by ID
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Analyst, error) {
	return r.findOne(ctx, "id", id)
}

// GetByEmail retrieves an analyst by normalized email address
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Analyst, error) {
	return r.findOne(ctx, "email", email)
}

// findOne looks an analyst up by a unique column; column is never caller input
func (r *PostgresRepository) findOne(ctx context.Context, column, value string) (*models.Analyst, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+analystColumns+` FROM analysts WHERE `+column+` = $1`, value)

	analyst := &models.Analyst{}
	err := row.Scan(
		&analyst.ID,
		&analyst.Email,
		&analyst.PasswordHash,
		&analyst.CreatedAt,
		&analyst.UpdatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrAnalystNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to look up analyst by %s: %w", column, err)
	}

	return analyst, nil
}
