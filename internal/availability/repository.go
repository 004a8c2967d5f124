package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for the availability catalog. Writes
// validate structural invariants and same-day overlap before persisting.
type Repository interface {
	CreateWindow(ctx context.Context, w *Window) error
	WindowsFor(ctx context.Context, therapistID uuid.UUID, dayOfWeek int) ([]*Window, error)
	WindowsForTherapist(ctx context.Context, therapistID uuid.UUID) ([]*Window, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
	CreateTimeOff(ctx context.Context, t *TimeOff) error
	TimeOffFor(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*TimeOff, error)
}

// InMemoryRepository is an in-memory catalog used in tests and local runs.
type InMemoryRepository struct {
	mu      sync.RWMutex
	windows map[uuid.UUID]*Window
	timeOff map[uuid.UUID]*TimeOff
	now     func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		windows: make(map[uuid.UUID]*Window),
		timeOff: make(map[uuid.UUID]*TimeOff),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock, for tests.
func (r *InMemoryRepository) WithNow(now func() time.Time) *InMemoryRepository {
	r.now = now
	return r
}

// CreateWindow validates and stores a recurring window.
func (r *InMemoryRepository) CreateWindow(ctx context.Context, w *Window) error {
	if err := w.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.windows {
		if existing.TherapistID == w.TherapistID && existing.Overlaps(w) {
			return ErrWindowOverlap
		}
	}

	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = r.now()
	}
	copied := *w
	r.windows[w.ID] = &copied
	return nil
}

// WindowsFor returns the windows for one weekday, ordered by start time.
func (r *InMemoryRepository) WindowsFor(ctx context.Context, therapistID uuid.UUID, dayOfWeek int) ([]*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Window
	for _, w := range r.windows {
		if w.TherapistID == therapistID && w.DayOfWeek == dayOfWeek {
			copied := *w
			out = append(out, &copied)
		}
	}
	sortWindows(out)
	return out, nil
}

// WindowsForTherapist returns all windows for a therapist ordered by day and start.
func (r *InMemoryRepository) WindowsForTherapist(ctx context.Context, therapistID uuid.UUID) ([]*Window, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Window
	for _, w := range r.windows {
		if w.TherapistID == therapistID {
			copied := *w
			out = append(out, &copied)
		}
	}
	sortWindows(out)
	return out, nil
}

// DeleteWindow removes a window by id.
func (r *InMemoryRepository) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.windows[id]; !ok {
		return ErrNotFound
	}
	delete(r.windows, id)
	return nil
}

// CreateTimeOff validates and stores a time-off range.
func (r *InMemoryRepository) CreateTimeOff(ctx context.Context, t *TimeOff) error {
	if err := t.Validate(r.now()); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}
	copied := *t
	r.timeOff[t.ID] = &copied
	return nil
}

// TimeOffFor returns the time-off ranges intersecting [from, to].
func (r *InMemoryRepository) TimeOffFor(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*TimeOff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fromDate, toDate := DateOf(from), DateOf(to)
	var out []*TimeOff
	for _, t := range r.timeOff {
		if t.TherapistID != therapistID {
			continue
		}
		if DateOf(t.StartDate).After(toDate) || DateOf(t.EndDate).Before(fromDate) {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func sortWindows(windows []*Window) {
	sort.Slice(windows, func(i, j int) bool {
		if windows[i].DayOfWeek != windows[j].DayOfWeek {
			return windows[i].DayOfWeek < windows[j].DayOfWeek
		}
		return windows[i].StartTime < windows[j].StartTime
	})
}
