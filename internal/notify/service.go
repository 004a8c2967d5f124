package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/littleoak-health/intake-platform/internal/events"
	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

// Service turns appointment lifecycle events into therapist notifications.
// It runs strictly after commit, fed by the outbox deliverer; a failure here
// never affects the booking itself.
type Service struct {
	email      EmailSender
	therapists therapists.Repository
	logger     *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, therapistRepo therapists.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:      email,
		therapists: therapistRepo,
		logger:     logger,
	}
}

// Handle implements events.DeliveryHandler.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	var evt events.AppointmentEventV1
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		// A malformed payload will never deliver; drop it rather than loop.
		s.logger.Error("notify: undecodable event payload, dropping", "event_id", entry.ID, "type", entry.Type)
		return nil
	}

	if s.email == nil || s.therapists == nil {
		s.logger.Debug("notify: email not configured, skipping", "event_id", entry.ID)
		return nil
	}

	therapist, err := s.therapists.GetByID(ctx, evt.TherapistID)
	if err != nil {
		return fmt.Errorf("notify: load therapist: %w", err)
	}
	if therapist.Email == "" {
		s.logger.Debug("notify: therapist has no email", "therapist_id", therapist.ID)
		return nil
	}

	subject, body := composeEmail(entry.Type, &evt)
	if subject == "" {
		s.logger.Warn("notify: unknown event type", "type", entry.Type)
		return nil
	}

	msg := EmailMessage{
		To:      therapist.Email,
		ToName:  therapist.Name,
		Subject: subject,
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return err
	}

	s.logger.Info("notification sent",
		"event_id", entry.ID,
		"type", entry.Type,
		"therapist_id", therapist.ID,
	)
	return nil
}

func composeEmail(eventType string, evt *events.AppointmentEventV1) (subject, body string) {
	when := evt.ScheduledAt.Format(time.RFC1123)

	switch eventType {
	case events.TypeAppointmentBooked:
		subject = fmt.Sprintf("New appointment %s", evt.ConfirmationNumber)
		body = fmt.Sprintf(
			"A new appointment has been booked.\n\nWhen: %s\nDuration: %d minutes\nLocation: %s\nConfirmation: %s\n",
			when, evt.DurationMinutes, evt.LocationType, evt.ConfirmationNumber,
		)
	case events.TypeAppointmentConfirmed:
		subject = fmt.Sprintf("Appointment %s confirmed", evt.ConfirmationNumber)
		body = fmt.Sprintf("The family confirmed the appointment on %s.\n", when)
	case events.TypeAppointmentCancelled:
		subject = fmt.Sprintf("Appointment %s cancelled", evt.ConfirmationNumber)
		body = fmt.Sprintf("The appointment on %s was cancelled.\nReason: %s\n", when, evt.CancellationReason)
	case events.TypeAppointmentRescheduled:
		subject = fmt.Sprintf("Appointment %s rescheduled", evt.ConfirmationNumber)
		body = fmt.Sprintf("An appointment moved to %s.", when)
		if evt.PreviousScheduledAt != nil {
			body = fmt.Sprintf("%s\nPreviously: %s", body, evt.PreviousScheduledAt.Format(time.RFC1123))
		}
		body += "\n"
	}
	return subject, body
}
