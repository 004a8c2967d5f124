package therapists

import "errors"

var (
	// ErrNotFound is returned when a therapist does not exist
	ErrNotFound = errors.New("therapist not found")
)
