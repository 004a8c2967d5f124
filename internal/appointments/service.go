package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/littleoak-health/intake-platform/internal/events"
	"github.com/littleoak-health/intake-platform/internal/observability/metrics"
	"github.com/littleoak-health/intake-platform/internal/therapists"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("littleoak.internal.appointments")

// EventSink records lifecycle events for post-commit delivery.
type EventSink interface {
	Insert(ctx context.Context, therapistID uuid.UUID, eventType string, payload any) (uuid.UUID, error)
}

// SlotInvalidator drops cached slot computations after calendar mutations.
type SlotInvalidator interface {
	Invalidate(ctx context.Context, therapistID uuid.UUID) error
}

// Service is the booking coordinator. All mutations run through the
// repository's transactional primitives; notifications and cache
// invalidation happen only after commit.
type Service struct {
	repo       Repository
	therapists therapists.Repository
	policy     NoticePolicy
	outbox     EventSink
	cache      SlotInvalidator
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	now        func() time.Time
}

// NewService constructs a booking service. outbox, cache and metrics may be
// nil; the corresponding side effects are skipped.
func NewService(repo Repository, therapistRepo therapists.Repository, policy NoticePolicy, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if therapistRepo == nil {
		panic("appointments: therapist repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:       repo,
		therapists: therapistRepo,
		policy:     policy,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithOutbox attaches the post-commit event sink.
func (s *Service) WithOutbox(outbox EventSink) *Service {
	s.outbox = outbox
	return s
}

// WithSlotCache attaches the slot cache invalidator.
func (s *Service) WithSlotCache(cache SlotInvalidator) *Service {
	s.cache = cache
	return s
}

// WithMetrics attaches booking metrics.
func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// BookRequest carries the inputs for a booking attempt.
type BookRequest struct {
	TherapistID     uuid.UUID
	SessionID       uuid.UUID
	ScheduledAt     time.Time
	DurationMinutes int
	LocationType    LocationType
	VirtualLink     string
}

// Book atomically claims the requested interval. A conflict returns
// ErrSlotUnavailable; the caller must re-query availability and pick another
// slot, never retry the same one blindly.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("littleoak.therapist_id", req.TherapistID.String()),
		attribute.String("littleoak.session_id", req.SessionID.String()),
	)

	now := s.now()
	if req.SessionID == uuid.Nil {
		return nil, ErrMissingSession
	}
	if !req.ScheduledAt.After(now) {
		return nil, ErrPastSchedule
	}
	if req.LocationType == "" {
		req.LocationType = LocationVirtual
	}
	if !req.LocationType.Valid() {
		return nil, ErrInvalidLocation
	}

	therapist, err := s.therapists.GetByID(ctx, req.TherapistID)
	if err != nil {
		return nil, err
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = therapist.AppointmentDurationMinutes
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}

	id := uuid.New()
	appt := &Appointment{
		ID:                 id,
		TherapistID:        req.TherapistID,
		SessionID:          req.SessionID,
		ScheduledAt:        req.ScheduledAt.UTC(),
		DurationMinutes:    duration,
		Status:             StatusScheduled,
		ConfirmationNumber: ConfirmationNumber(id),
		LocationType:       req.LocationType,
		VirtualLink:        req.VirtualLink,
	}

	if err := s.repo.Book(ctx, appt); err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrSlotUnavailable) {
			s.metrics.ObserveBooking("book", "conflict")
		} else {
			s.metrics.ObserveBooking("book", "error")
		}
		return nil, err
	}
	s.metrics.ObserveBooking("book", "booked")

	s.afterCommit(ctx, events.TypeAppointmentBooked, appt, nil)
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"therapist_id", appt.TherapistID,
		"session_id", appt.SessionID,
		"scheduled_at", appt.ScheduledAt,
		"confirmation_number", appt.ConfirmationNumber,
	)
	return appt, nil
}

// Get loads an appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Confirm applies scheduled -> confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.confirm")
	defer span.End()

	now := s.now()
	appt, err := s.repo.Update(ctx, id, func(a *Appointment) error {
		return a.Confirm(now)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveTransition(string(StatusConfirmed))

	s.afterCommit(ctx, events.TypeAppointmentConfirmed, appt, nil)
	s.logger.Info("appointment confirmed", "appointment_id", appt.ID)
	return appt, nil
}

// Cancel enforces the notice policy and moves the appointment to cancelled.
// The row is kept; cancellation is a status change, not a delete.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.cancel")
	defer span.End()

	now := s.now()
	appt, err := s.repo.Update(ctx, id, func(a *Appointment) error {
		if err := s.policy.EnsureCancellable(a, now); err != nil {
			return err
		}
		return a.Cancel(reason, now)
	})
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrPolicyViolation) {
			s.metrics.ObserveBooking("cancel", "policy_violation")
		}
		return nil, err
	}
	s.metrics.ObserveBooking("cancel", "cancelled")
	s.metrics.ObserveTransition(string(StatusCancelled))

	s.afterCommit(ctx, events.TypeAppointmentCancelled, appt, nil)
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "reason", reason)
	return appt, nil
}

// Reschedule atomically cancels the appointment and books the same session
// onto a new time. A race on the new slot returns ErrSlotUnavailable and
// leaves the original booking intact.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newScheduledAt time.Time) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.reschedule")
	defer span.End()

	now := s.now()
	if !newScheduledAt.After(now) {
		return nil, ErrPastSchedule
	}

	var previous Appointment
	replacement, err := s.repo.Reschedule(ctx, id, func(old *Appointment) (*Appointment, error) {
		if err := s.policy.EnsureReschedulable(old, now); err != nil {
			return nil, err
		}
		previous = *old
		if err := old.Cancel("rescheduled", now); err != nil {
			return nil, err
		}

		newID := uuid.New()
		return &Appointment{
			ID:                 newID,
			TherapistID:        old.TherapistID,
			SessionID:          old.SessionID,
			ScheduledAt:        newScheduledAt.UTC(),
			DurationMinutes:    old.DurationMinutes,
			Status:             StatusScheduled,
			ConfirmationNumber: ConfirmationNumber(newID),
			LocationType:       old.LocationType,
			VirtualLink:        old.VirtualLink,
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrSlotUnavailable):
			s.metrics.ObserveBooking("reschedule", "conflict")
		case errors.Is(err, ErrPolicyViolation):
			s.metrics.ObserveBooking("reschedule", "policy_violation")
		}
		return nil, err
	}
	s.metrics.ObserveBooking("reschedule", "booked")

	s.afterCommit(ctx, events.TypeAppointmentRescheduled, replacement, &previous)
	s.logger.Info("appointment rescheduled",
		"previous_appointment_id", previous.ID,
		"appointment_id", replacement.ID,
		"scheduled_at", replacement.ScheduledAt,
	)
	return replacement, nil
}

// Complete applies confirmed -> completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	now := s.now()
	appt, err := s.repo.Update(ctx, id, func(a *Appointment) error {
		return a.Complete(now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(StatusCompleted))
	s.logger.Info("appointment completed", "appointment_id", appt.ID)
	return appt, nil
}

// MarkNoShow applies the externally driven no_show transition.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	now := s.now()
	appt, err := s.repo.Update(ctx, id, func(a *Appointment) error {
		return a.MarkNoShow(now)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(StatusNoShow))
	s.logger.Info("appointment marked no-show", "appointment_id", appt.ID)
	return appt, nil
}

// afterCommit records the lifecycle event and drops stale slot caches. Both
// run outside the transaction; failures are logged, never propagated into
// the booking result.
func (s *Service) afterCommit(ctx context.Context, eventType string, appt *Appointment, previous *Appointment) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, appt.TherapistID); err != nil {
			s.logger.Warn("slot cache invalidation failed", "error", err, "therapist_id", appt.TherapistID)
		}
	}
	if s.outbox == nil {
		return
	}

	payload := events.AppointmentEventV1{
		AppointmentID:      appt.ID,
		TherapistID:        appt.TherapistID,
		SessionID:          appt.SessionID,
		ScheduledAt:        appt.ScheduledAt,
		DurationMinutes:    appt.DurationMinutes,
		Status:             string(appt.Status),
		ConfirmationNumber: appt.ConfirmationNumber,
		LocationType:       string(appt.LocationType),
		VirtualLink:        appt.VirtualLink,
		CancellationReason: appt.CancellationReason,
	}
	if previous != nil {
		payload.PreviousAppointmentID = previous.ID
		prevAt := previous.ScheduledAt
		payload.PreviousScheduledAt = &prevAt
	}
	if _, err := s.outbox.Insert(ctx, appt.TherapistID, eventType, payload); err != nil {
		s.logger.Error("failed to record outbox event", "error", err, "type", eventType, "appointment_id", appt.ID)
	}
}
