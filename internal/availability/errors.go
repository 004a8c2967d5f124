package availability

import "errors"

var (
	// ErrMissingTherapist is returned when the therapist reference is absent
	ErrMissingTherapist = errors.New("therapist_id is required")

	// ErrInvalidDayOfWeek is returned when day_of_week is outside 0-6
	ErrInvalidDayOfWeek = errors.New("day_of_week must be between 0 and 6")

	// ErrWindowOrder is returned when start_time is not before end_time
	ErrWindowOrder = errors.New("start_time must be before end_time")

	// ErrWindowOverlap is returned when a window overlaps an existing one on the same day
	ErrWindowOverlap = errors.New("window overlaps an existing window for this day")

	// ErrInvalidTimezone is returned when the timezone is not a valid IANA name
	ErrInvalidTimezone = errors.New("timezone must be a valid IANA name")

	// ErrDateOrder is returned when start_date is after end_date
	ErrDateOrder = errors.New("start_date must not be after end_date")

	// ErrTimeOffInPast is returned when a time-off range ends before today
	ErrTimeOffInPast = errors.New("time off must cover present or future dates")

	// ErrNotFound is returned when a window or time-off entry does not exist
	ErrNotFound = errors.New("availability entry not found")
)
