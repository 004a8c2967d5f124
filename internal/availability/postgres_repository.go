package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/littleoak-health/intake-platform/internal/therapists"
)

// PostgresRepository stores the availability catalog in the relational database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("availability: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// CreateWindow validates and inserts a recurring window. The overlap check
// runs under the therapist row lock so concurrent admin writes cannot slip
// past each other.
func (r *PostgresRepository) CreateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("availability: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var therapistID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM therapists WHERE id = $1 FOR UPDATE`, w.TherapistID).Scan(&therapistID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return therapists.ErrNotFound
		}
		return fmt.Errorf("availability: lock therapist: %w", err)
	}

	var overlaps bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM therapist_availabilities
			WHERE therapist_id = $1
			  AND day_of_week = $2
			  AND start_time < $4
			  AND $3 < end_time
		)
	`, w.TherapistID, w.DayOfWeek, toPGTime(w.StartTime), toPGTime(w.EndTime)).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("availability: overlap check: %w", err)
	}
	if overlaps {
		return ErrWindowOverlap
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO therapist_availabilities (id, therapist_id, day_of_week, start_time, end_time, timezone, is_repeating)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, w.ID, w.TherapistID, w.DayOfWeek, toPGTime(w.StartTime), toPGTime(w.EndTime), w.Timezone, w.IsRepeating).Scan(&w.CreatedAt)
	if err != nil {
		return fmt.Errorf("availability: insert window: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("availability: commit: %w", err)
	}
	return nil
}

// WindowsFor returns the windows for one weekday, ordered by start time.
func (r *PostgresRepository) WindowsFor(ctx context.Context, therapistID uuid.UUID, dayOfWeek int) ([]*Window, error) {
	query := `
		SELECT id, therapist_id, day_of_week, start_time, end_time, timezone, is_repeating, created_at
		FROM therapist_availabilities
		WHERE therapist_id = $1 AND day_of_week = $2
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query, therapistID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("availability: select windows: %w", err)
	}
	defer rows.Close()
	return scanWindows(rows)
}

// WindowsForTherapist returns all windows for a therapist ordered by day and start.
func (r *PostgresRepository) WindowsForTherapist(ctx context.Context, therapistID uuid.UUID) ([]*Window, error) {
	query := `
		SELECT id, therapist_id, day_of_week, start_time, end_time, timezone, is_repeating, created_at
		FROM therapist_availabilities
		WHERE therapist_id = $1
		ORDER BY day_of_week, start_time
	`
	rows, err := r.pool.Query(ctx, query, therapistID)
	if err != nil {
		return nil, fmt.Errorf("availability: select windows: %w", err)
	}
	defer rows.Close()
	return scanWindows(rows)
}

// DeleteWindow removes a window by id.
func (r *PostgresRepository) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM therapist_availabilities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("availability: delete window: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTimeOff validates and inserts a time-off range.
func (r *PostgresRepository) CreateTimeOff(ctx context.Context, t *TimeOff) error {
	if err := t.Validate(time.Now().UTC()); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO therapist_time_off (id, therapist_id, start_date, end_date, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, t.ID, t.TherapistID, DateOf(t.StartDate), DateOf(t.EndDate), t.Reason).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("availability: insert time off: %w", err)
	}
	return nil
}

// TimeOffFor returns the time-off ranges intersecting [from, to].
func (r *PostgresRepository) TimeOffFor(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*TimeOff, error) {
	query := `
		SELECT id, therapist_id, start_date, end_date, reason, created_at
		FROM therapist_time_off
		WHERE therapist_id = $1 AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date
	`
	rows, err := r.pool.Query(ctx, query, therapistID, DateOf(from), DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("availability: select time off: %w", err)
	}
	defer rows.Close()

	var out []*TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.TherapistID, &t.StartDate, &t.EndDate, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan time off: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func scanWindows(rows pgx.Rows) ([]*Window, error) {
	var out []*Window
	for rows.Next() {
		var (
			w          Window
			start, end pgtype.Time
		)
		if err := rows.Scan(&w.ID, &w.TherapistID, &w.DayOfWeek, &start, &end, &w.Timezone, &w.IsRepeating, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("availability: scan window: %w", err)
		}
		w.StartTime = fromPGTime(start)
		w.EndTime = fromPGTime(end)
		out = append(out, &w)
	}
	return out, rows.Err()
}

func toPGTime(t TimeOfDay) pgtype.Time {
	return pgtype.Time{
		Microseconds: int64(t) * int64(time.Minute/time.Microsecond),
		Valid:        true,
	}
}

func fromPGTime(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / int64(time.Minute/time.Microsecond))
}
