package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/littleoak-health/intake-platform/internal/availability"
	"github.com/littleoak-health/intake-platform/internal/observability/metrics"
	"github.com/littleoak-health/intake-platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("littleoak.internal.scheduling")

// Service answers slot queries, consulting the cache before computing.
type Service struct {
	generator *Generator
	cache     *SlotCache
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// NewService constructs a scheduling service.
func NewService(generator *Generator, cache *SlotCache, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if generator == nil {
		panic("scheduling: generator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{generator: generator, cache: cache, metrics: m, logger: logger}
}

// ComputeAvailableSlots resolves the timezone and returns the bookable slots
// for the range, serving from cache when possible.
func (s *Service) ComputeAvailableSlots(ctx context.Context, therapistID uuid.UUID, startDate, endDate time.Time, tz string) ([]Slot, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.compute_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("littleoak.therapist_id", therapistID.String()),
		attribute.String("littleoak.timezone", tz),
	)

	output, err := time.LoadLocation(tz)
	if err != nil {
		return nil, availability.ErrInvalidTimezone
	}

	if slots, ok := s.cache.Get(ctx, therapistID, startDate, endDate, tz); ok {
		s.metrics.ObserveSlotCache(true)
		return slots, nil
	}
	s.metrics.ObserveSlotCache(false)

	began := time.Now()
	slots, err := s.generator.ComputeSlots(ctx, therapistID, startDate, endDate, output)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveSlotCompute(time.Since(began).Seconds())

	s.cache.Set(ctx, therapistID, startDate, endDate, tz, slots)
	return slots, nil
}
