package therapists

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores therapists in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("therapists: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// GetByID fetches a therapist record.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Therapist, error) {
	query := `
		SELECT id, name, email, appointment_duration_minutes, buffer_time_minutes, created_at, updated_at
		FROM therapists
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	var t Therapist
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Email,
		&t.AppointmentDurationMinutes,
		&t.BufferTimeMinutes,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("therapists: select failed: %w", err)
	}
	return &t, nil
}
