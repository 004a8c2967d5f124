package availability

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("availability: invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON renders the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Window is a recurring weekly availability window. Wall-clock times are
// anchored in the window's own timezone; day_of_week uses 0 = Sunday.
type Window struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	DayOfWeek   int       `json:"day_of_week"`
	StartTime   TimeOfDay `json:"start_time"`
	EndTime     TimeOfDay `json:"end_time"`
	Timezone    string    `json:"timezone"`
	IsRepeating bool      `json:"is_repeating"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks the structural invariants of a window.
func (w *Window) Validate() error {
	if w.TherapistID == uuid.Nil {
		return ErrMissingTherapist
	}
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return ErrInvalidDayOfWeek
	}
	if w.StartTime >= w.EndTime {
		return ErrWindowOrder
	}
	if _, err := time.LoadLocation(w.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

// Overlaps reports whether two windows for the same therapist and day
// intersect. Adjacent windows (end == start) do not overlap.
func (w *Window) Overlaps(other *Window) bool {
	if w.DayOfWeek != other.DayOfWeek {
		return false
	}
	return w.StartTime < other.EndTime && other.StartTime < w.EndTime
}

// TimeOff is a date-range exception that removes all availability on the
// covered dates. Both bounds are inclusive whole days.
type TimeOff struct {
	ID          uuid.UUID `json:"id"`
	TherapistID uuid.UUID `json:"therapist_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks ordering and rejects ranges that are entirely in the past.
func (t *TimeOff) Validate(now time.Time) error {
	if t.TherapistID == uuid.Nil {
		return ErrMissingTherapist
	}
	start, end := DateOf(t.StartDate), DateOf(t.EndDate)
	if end.Before(start) {
		return ErrDateOrder
	}
	if end.Before(DateOf(now)) {
		return ErrTimeOffInPast
	}
	return nil
}

// Covers reports whether the given calendar date falls inside the range.
func (t *TimeOff) Covers(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(t.StartDate)) && !d.After(DateOf(t.EndDate))
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
