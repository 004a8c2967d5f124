package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the transactional write path for the appointment calendar.
// Book and Reschedule are atomic: either the whole operation commits or no
// state changes at all.
type Repository interface {
	// Book persists a new appointment after verifying, under the therapist
	// lock, that its interval does not overlap any active appointment.
	// Returns ErrSlotUnavailable when the slot is taken.
	Book(ctx context.Context, appt *Appointment) error

	// GetByID loads an appointment.
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Update loads the appointment under lock, applies mutate, and persists
	// the result. An error from mutate rolls everything back.
	Update(ctx context.Context, id uuid.UUID, mutate func(a *Appointment) error) (*Appointment, error)

	// Reschedule atomically replaces an appointment: replace receives the
	// current row under the therapist lock, may mutate it (cancel it) and
	// returns the replacement to book. A conflict on the new interval returns
	// ErrSlotUnavailable and leaves the original untouched.
	Reschedule(ctx context.Context, id uuid.UUID, replace func(old *Appointment) (*Appointment, error)) (*Appointment, error)

	// ActiveBetween returns scheduled/confirmed appointments whose intervals
	// intersect [from, to), ordered by start time. Used by slot generation.
	ActiveBetween(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*Appointment, error)
}

// InMemoryRepository implements Repository with a mutex in place of row
// locks. It backs tests and local runs without Postgres.
type InMemoryRepository struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*Appointment
	now          func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[uuid.UUID]*Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (r *InMemoryRepository) WithNow(now func() time.Time) *InMemoryRepository {
	r.now = now
	return r
}

// Book checks the interval against active appointments and stores the row.
func (r *InMemoryRepository) Book(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts(appt.TherapistID, appt.ScheduledAt, appt.End(), uuid.Nil) {
		return ErrSlotUnavailable
	}

	now := r.now()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	copied := *appt
	r.appointments[appt.ID] = &copied
	return nil
}

// GetByID loads an appointment.
func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

// Update applies mutate to a copy and persists it only on success.
func (r *InMemoryRepository) Update(ctx context.Context, id uuid.UUID, mutate func(a *Appointment) error) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}

	working := *stored
	if err := mutate(&working); err != nil {
		return nil, err
	}
	r.appointments[id] = &working
	copied := working
	return &copied, nil
}

// Reschedule cancels the old row and books the replacement atomically.
func (r *InMemoryRepository) Reschedule(ctx context.Context, id uuid.UUID, replace func(old *Appointment) (*Appointment, error)) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}

	working := *stored
	replacement, err := replace(&working)
	if err != nil {
		return nil, err
	}

	// The old row is excluded from the conflict check: replace cancelled it.
	if r.conflicts(replacement.TherapistID, replacement.ScheduledAt, replacement.End(), id) {
		return nil, ErrSlotUnavailable
	}

	now := r.now()
	replacement.CreatedAt = now
	replacement.UpdatedAt = now

	r.appointments[id] = &working
	copied := *replacement
	r.appointments[replacement.ID] = &copied
	return replacement, nil
}

// ActiveBetween returns active appointments intersecting [from, to).
func (r *InMemoryRepository) ActiveBetween(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Appointment
	for _, a := range r.appointments {
		if a.TherapistID == therapistID && a.Active() && a.OverlapsInterval(from, to) {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *InMemoryRepository) conflicts(therapistID uuid.UUID, start, end time.Time, exclude uuid.UUID) bool {
	for _, existing := range r.appointments {
		if existing.ID == exclude || existing.TherapistID != therapistID || !existing.Active() {
			continue
		}
		if existing.OverlapsInterval(start, end) {
			return true
		}
	}
	return false
}
