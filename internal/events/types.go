package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names carried on outbox entries.
const (
	TypeAppointmentBooked      = "appointment.booked.v1"
	TypeAppointmentConfirmed   = "appointment.confirmed.v1"
	TypeAppointmentCancelled   = "appointment.cancelled.v1"
	TypeAppointmentRescheduled = "appointment.rescheduled.v1"
)

// AppointmentEventV1 is the payload shared by all appointment lifecycle
// events. Notification collaborators consume it after commit; it carries
// everything they need so they never read the booking tables.
type AppointmentEventV1 struct {
	AppointmentID      uuid.UUID `json:"appointment_id"`
	TherapistID        uuid.UUID `json:"therapist_id"`
	SessionID          uuid.UUID `json:"session_id"`
	ScheduledAt        time.Time `json:"scheduled_at"`
	DurationMinutes    int       `json:"duration_minutes"`
	Status             string    `json:"status"`
	ConfirmationNumber string    `json:"confirmation_number"`
	LocationType       string    `json:"location_type"`
	VirtualLink        string    `json:"virtual_link,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`

	// Set on reschedule events only.
	PreviousAppointmentID uuid.UUID  `json:"previous_appointment_id,omitempty"`
	PreviousScheduledAt   *time.Time `json:"previous_scheduled_at,omitempty"`
}
