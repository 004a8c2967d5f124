package therapists

import (
	"time"

	"github.com/google/uuid"
)

// Therapist holds the scheduling-relevant fields of a provider record.
// The matching and clinical profile surfaces live in other services.
type Therapist struct {
	ID                         uuid.UUID `json:"id"`
	Name                       string    `json:"name"`
	Email                      string    `json:"email"`
	AppointmentDurationMinutes int       `json:"appointment_duration_minutes"`
	BufferTimeMinutes          int       `json:"buffer_time_minutes"`
	CreatedAt                  time.Time `json:"created_at"`
	UpdatedAt                  time.Time `json:"updated_at"`
}

// TotalSlotDuration is the atomic step size used for slot generation:
// clinical duration plus the buffer before the next slot may start.
func (t *Therapist) TotalSlotDuration() time.Duration {
	return time.Duration(t.AppointmentDurationMinutes+t.BufferTimeMinutes) * time.Minute
}
