package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/littleoak-health/intake-platform/internal/therapists"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository against Postgres. Booking runs
// under a pessimistic therapist row lock; a partial unique index on
// (therapist_id, scheduled_at) over active rows backstops the overlap check,
// so cancelled rows (which are kept forever) never block a re-booking.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `
	id, therapist_id, session_id, scheduled_at, duration_minutes, status,
	confirmation_number, confirmed_at, cancelled_at, cancellation_reason,
	location_type, virtual_link, created_at, updated_at
`

// Book acquires the therapist lock, re-checks the interval and inserts.
func (r *PostgresRepository) Book(ctx context.Context, appt *Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockTherapist(ctx, tx, appt.TherapistID); err != nil {
		return err
	}

	taken, err := intervalTaken(ctx, tx, appt.TherapistID, appt.ScheduledAt, appt.End())
	if err != nil {
		return err
	}
	if taken {
		return ErrSlotUnavailable
	}

	if err := insertAppointment(ctx, tx, appt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("appointments: commit: %w", err)
	}
	return nil
}

// GetByID loads an appointment.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return appt, nil
}

// Update locks the row, applies mutate and persists the result.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, mutate func(a *Appointment) error) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	appt, err := lockAppointment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := mutate(appt); err != nil {
		return nil, err
	}

	if err := updateAppointment(ctx, tx, appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return appt, nil
}

// Reschedule cancels the old row and books its replacement in one
// transaction under the therapist lock.
func (r *PostgresRepository) Reschedule(ctx context.Context, id uuid.UUID, replace func(old *Appointment) (*Appointment, error)) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	old, err := lockAppointment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := lockTherapist(ctx, tx, old.TherapistID); err != nil {
		return nil, err
	}

	replacement, err := replace(old)
	if err != nil {
		return nil, err
	}

	// Persist the cancellation first so the old interval no longer counts.
	if err := updateAppointment(ctx, tx, old); err != nil {
		return nil, err
	}

	taken, err := intervalTaken(ctx, tx, replacement.TherapistID, replacement.ScheduledAt, replacement.End())
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlotUnavailable
	}

	if err := insertAppointment(ctx, tx, replacement); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return replacement, nil
}

// ActiveBetween returns active appointments intersecting [from, to).
func (r *PostgresRepository) ActiveBetween(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	query := `
		SELECT ` + selectColumns + `
		FROM appointments
		WHERE therapist_id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND scheduled_at < $3
		  AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at
	`
	rows, err := r.db.Query(ctx, query, therapistID, from, to)
	if err != nil {
		return nil, fmt.Errorf("appointments: select active: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

func lockTherapist(ctx context.Context, tx pgx.Tx, therapistID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx, `SELECT id FROM therapists WHERE id = $1 FOR UPDATE`, therapistID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return therapists.ErrNotFound
		}
		return fmt.Errorf("appointments: lock therapist: %w", err)
	}
	return nil
}

func lockAppointment(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Appointment, error) {
	row := tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: lock row: %w", err)
	}
	return appt, nil
}

func intervalTaken(ctx context.Context, tx pgx.Tx, therapistID uuid.UUID, start, end time.Time) (bool, error) {
	var taken bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE therapist_id = $1
			  AND status IN ('scheduled', 'confirmed')
			  AND scheduled_at < $3
			  AND scheduled_at + make_interval(mins => duration_minutes) > $2
		)
	`, therapistID, start, end).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("appointments: overlap check: %w", err)
	}
	return taken, nil
}

func insertAppointment(ctx context.Context, tx pgx.Tx, appt *Appointment) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments (
			id, therapist_id, session_id, scheduled_at, duration_minutes, status,
			confirmation_number, location_type, virtual_link
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		appt.ID,
		appt.TherapistID,
		appt.SessionID,
		appt.ScheduledAt,
		appt.DurationMinutes,
		appt.Status,
		appt.ConfirmationNumber,
		appt.LocationType,
		appt.VirtualLink,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func updateAppointment(ctx context.Context, tx pgx.Tx, appt *Appointment) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    confirmed_at = $3,
		    cancelled_at = $4,
		    cancellation_reason = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		appt.ID,
		appt.Status,
		appt.ConfirmedAt,
		appt.CancelledAt,
		appt.CancellationReason,
		appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation,
// raised when two bookings race for the same (therapist_id, scheduled_at).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.TherapistID,
		&a.SessionID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.Status,
		&a.ConfirmationNumber,
		&a.ConfirmedAt,
		&a.CancelledAt,
		&a.CancellationReason,
		&a.LocationType,
		&a.VirtualLink,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
