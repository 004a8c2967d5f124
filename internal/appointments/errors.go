package appointments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an appointment does not exist
	ErrNotFound = errors.New("appointment not found")

	// ErrSlotUnavailable is returned when the requested interval conflicts with
	// an existing booking. The caller must re-fetch availability and pick a
	// different slot; the engine never retries on its behalf.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrPolicyViolation is returned when a cancel or reschedule is attempted
	// inside the minimum-notice window or on a terminal appointment
	ErrPolicyViolation = errors.New("policy violation")

	// ErrMissingSession is returned when the booking has no requester reference
	ErrMissingSession = errors.New("session_id is required")

	// ErrInvalidDuration is returned when duration_minutes is not positive
	ErrInvalidDuration = errors.New("duration_minutes must be positive")

	// ErrPastSchedule is returned when scheduled_at is not in the future
	ErrPastSchedule = errors.New("scheduled_at must be in the future")

	// ErrInvalidLocation is returned when location_type is unknown
	ErrInvalidLocation = errors.New("location_type must be virtual or in_person")
)

func invalidTransition(from, to Status) error {
	return fmt.Errorf("%w: cannot move %s appointment to %s", ErrPolicyViolation, from, to)
}
