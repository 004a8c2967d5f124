package appointments

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// transitions is the legal state machine. Missing keys are terminal states.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the transition s -> next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LocationType distinguishes telehealth from office visits.
type LocationType string

const (
	LocationVirtual  LocationType = "virtual"
	LocationInPerson LocationType = "in_person"
)

// Valid reports whether the location type is a known value.
func (l LocationType) Valid() bool {
	return l == LocationVirtual || l == LocationInPerson
}

// Appointment is a committed booking against a therapist's calendar.
// Rows are never deleted; cancellation is a status change.
type Appointment struct {
	ID                 uuid.UUID    `json:"id"`
	TherapistID        uuid.UUID    `json:"therapist_id"`
	SessionID          uuid.UUID    `json:"session_id"`
	ScheduledAt        time.Time    `json:"scheduled_at"`
	DurationMinutes    int          `json:"duration_minutes"`
	Status             Status       `json:"status"`
	ConfirmationNumber string       `json:"confirmation_number"`
	ConfirmedAt        *time.Time   `json:"confirmed_at,omitempty"`
	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
	CancellationReason string       `json:"cancellation_reason,omitempty"`
	LocationType       LocationType `json:"location_type"`
	VirtualLink        string       `json:"virtual_link,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// End returns the exclusive end of the appointment interval.
func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Active reports whether the appointment still occupies its slot.
func (a *Appointment) Active() bool {
	return a.Status == StatusScheduled || a.Status == StatusConfirmed
}

// OverlapsInterval applies the half-open interval test against [start, end).
func (a *Appointment) OverlapsInterval(start, end time.Time) bool {
	return Overlaps(a.ScheduledAt, a.End(), start, end)
}

// Overlaps reports whether [a0, a1) and [b0, b1) intersect.
func Overlaps(a0, a1, b0, b1 time.Time) bool {
	return a0.Before(b1) && b0.Before(a1)
}

// Confirm applies the scheduled -> confirmed transition.
func (a *Appointment) Confirm(now time.Time) error {
	if !a.Status.CanTransitionTo(StatusConfirmed) {
		return invalidTransition(a.Status, StatusConfirmed)
	}
	a.Status = StatusConfirmed
	a.ConfirmedAt = &now
	a.UpdatedAt = now
	return nil
}

// Cancel applies the transition to cancelled, recording when and why.
func (a *Appointment) Cancel(reason string, now time.Time) error {
	if !a.Status.CanTransitionTo(StatusCancelled) {
		return invalidTransition(a.Status, StatusCancelled)
	}
	a.Status = StatusCancelled
	a.CancelledAt = &now
	a.CancellationReason = reason
	a.UpdatedAt = now
	return nil
}

// Complete applies the confirmed -> completed transition.
func (a *Appointment) Complete(now time.Time) error {
	if !a.Status.CanTransitionTo(StatusCompleted) {
		return invalidTransition(a.Status, StatusCompleted)
	}
	a.Status = StatusCompleted
	a.UpdatedAt = now
	return nil
}

// MarkNoShow applies the transition to no_show. The trigger is external
// (elapsed time is judged by an operator or a separate job, not here).
func (a *Appointment) MarkNoShow(now time.Time) error {
	if !a.Status.CanTransitionTo(StatusNoShow) {
		return invalidTransition(a.Status, StatusNoShow)
	}
	a.Status = StatusNoShow
	a.UpdatedAt = now
	return nil
}

// ConfirmationNumber derives a stable, non-sequential reference from the
// appointment id: the first 8 hex characters, uppercased.
func ConfirmationNumber(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[:8])
}
