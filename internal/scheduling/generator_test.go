package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/littleoak-health/intake-platform/internal/appointments"
	"github.com/littleoak-health/intake-platform/internal/availability"
	"github.com/littleoak-health/intake-platform/internal/therapists"
)

type generatorFixture struct {
	generator   *Generator
	catalog     *availability.InMemoryRepository
	bookings    *appointments.InMemoryRepository
	therapistID uuid.UUID
}

// newGeneratorFixture wires a therapist with 50 minute sessions and a
// 10 minute buffer, so the slot step is one hour.
func newGeneratorFixture(t *testing.T) *generatorFixture {
	t.Helper()

	therapistRepo := therapists.NewInMemoryRepository()
	therapistID := uuid.New()
	therapistRepo.Put(&therapists.Therapist{
		ID:                         therapistID,
		Name:                       "Dr. Okafor",
		AppointmentDurationMinutes: 50,
		BufferTimeMinutes:          10,
	})

	catalog := availability.NewInMemoryRepository()
	bookings := appointments.NewInMemoryRepository()

	return &generatorFixture{
		generator:   NewGenerator(catalog, bookings, therapistRepo),
		catalog:     catalog,
		bookings:    bookings,
		therapistID: therapistID,
	}
}

func (f *generatorFixture) addWindow(t *testing.T, dayOfWeek int, start, end string, tz string, repeating bool) {
	t.Helper()
	startTime, err := availability.ParseTimeOfDay(start)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	endTime, err := availability.ParseTimeOfDay(end)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	w := &availability.Window{
		TherapistID: f.therapistID,
		DayOfWeek:   dayOfWeek,
		StartTime:   startTime,
		EndTime:     endTime,
		Timezone:    tz,
		IsRepeating: repeating,
	}
	if err := f.catalog.CreateWindow(context.Background(), w); err != nil {
		t.Fatalf("create window: %v", err)
	}
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)

func TestComputeSlotsBasicWindow(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "12:00", "America/Los_Angeles", true)

	la, _ := time.LoadLocation("America/Los_Angeles")
	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday, la)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}

	// A 3 hour window with a 1 hour step yields exactly 3 slots; no partial
	// trailing slot is produced.
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	for i, wantHour := range []int{9, 10, 11} {
		if slots[i].Start.Hour() != wantHour || slots[i].Start.Minute() != 0 {
			t.Fatalf("slot %d starts at %s, want %02d:00", i, slots[i].Start, wantHour)
		}
		if got := slots[i].End.Sub(slots[i].Start); got != time.Hour {
			t.Fatalf("slot %d has length %s, want 1h", i, got)
		}
		if slots[i].TherapistID != f.therapistID {
			t.Fatalf("slot %d carries wrong therapist", i)
		}
	}
}

func TestComputeSlotsShortWindowYieldsNothing(t *testing.T) {
	f := newGeneratorFixture(t)
	// 45 minutes cannot fit a 60 minute step.
	f.addWindow(t, 1, "09:00", "09:45", "UTC", true)

	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}

func TestComputeSlotsSkipsTimeOffDates(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "12:00", "UTC", true)

	nextMonday := monday.AddDate(0, 0, 7)
	off := &availability.TimeOff{
		TherapistID: f.therapistID,
		StartDate:   monday,
		EndDate:     monday,
	}
	f.catalog.WithNow(func() time.Time { return monday.AddDate(0, 0, -7) })
	if err := f.catalog.CreateTimeOff(context.Background(), off); err != nil {
		t.Fatalf("create time off: %v", err)
	}

	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, nextMonday, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}

	// The covered Monday contributes nothing; the following Monday is intact.
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots on the uncovered Monday, got %d", len(slots))
	}
	for _, s := range slots {
		if availability.DateOf(s.Start).Equal(monday) {
			t.Fatalf("slot generated on a time-off date: %s", s.Start)
		}
	}
}

func TestComputeSlotsDropsBookedIntervals(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "12:00", "UTC", true)

	booked := &appointments.Appointment{
		ID:              uuid.New(),
		TherapistID:     f.therapistID,
		SessionID:       uuid.New(),
		ScheduledAt:     monday.Add(10 * time.Hour),
		DurationMinutes: 50,
		Status:          appointments.StatusScheduled,
		LocationType:    appointments.LocationVirtual,
	}
	if err := f.bookings.Book(context.Background(), booked); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s.Start.Hour() == 10 {
			t.Fatalf("booked 10:00 slot still offered")
		}
	}
}

func TestComputeSlotsCancelledBookingFreesSlot(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "12:00", "UTC", true)

	booked := &appointments.Appointment{
		ID:              uuid.New(),
		TherapistID:     f.therapistID,
		SessionID:       uuid.New(),
		ScheduledAt:     monday.Add(10 * time.Hour),
		DurationMinutes: 50,
		Status:          appointments.StatusScheduled,
		LocationType:    appointments.LocationVirtual,
	}
	if err := f.bookings.Book(context.Background(), booked); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	if _, err := f.bookings.Update(context.Background(), booked.ID, func(a *appointments.Appointment) error {
		return a.Cancel("", monday.AddDate(0, 0, -3))
	}); err != nil {
		t.Fatalf("cancel booking: %v", err)
	}

	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("cancelled booking must not occupy its slot, got %d slots", len(slots))
	}
}

func TestComputeSlotsSpringForwardKeepsFixedDuration(t *testing.T) {
	f := newGeneratorFixture(t)
	// US DST starts 2026-03-08 at 02:00 local; this Sunday window straddles
	// the jump.
	f.addWindow(t, 0, "00:30", "03:30", "America/Los_Angeles", true)

	springForward := time.Date(2026, time.March, 8, 0, 0, 0, 0, time.UTC)
	la, _ := time.LoadLocation("America/Los_Angeles")
	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, springForward, springForward, la)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}

	// The wall-clock window spans three hours on paper but only two absolute
	// hours exist that night.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots across the DST jump, got %d", len(slots))
	}
	for i, s := range slots {
		if got := s.End.Sub(s.Start); got != time.Hour {
			t.Fatalf("slot %d has length %s, want exactly 1h", i, got)
		}
	}
	// The second slot lands on 01:30 wall clock and ends at 03:30 because
	// 02:00-03:00 does not exist.
	if slots[1].Start.Hour() != 1 || slots[1].Start.Minute() != 30 {
		t.Fatalf("unexpected second slot start: %s", slots[1].Start)
	}
	if slots[1].End.Hour() != 3 || slots[1].End.Minute() != 30 {
		t.Fatalf("unexpected second slot end: %s", slots[1].End)
	}
}

func TestComputeSlotsNonRepeatingWindowAppliesOnce(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "11:00", "UTC", false)

	twoWeeks := monday.AddDate(0, 0, 13)
	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, twoWeeks, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}

	// Only the first Monday in range gets the one-off window.
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots from the one-off window, got %d", len(slots))
	}
	for _, s := range slots {
		if !availability.DateOf(s.Start).Equal(monday) {
			t.Fatalf("one-off window produced a slot on %s", s.Start)
		}
	}
}

func TestComputeSlotsNonRepeatingWindowConsumedByTimeOff(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "12:00", "UTC", false)

	off := &availability.TimeOff{
		TherapistID: f.therapistID,
		StartDate:   monday,
		EndDate:     monday,
	}
	f.catalog.WithNow(func() time.Time { return monday.AddDate(0, 0, -7) })
	if err := f.catalog.CreateTimeOff(context.Background(), off); err != nil {
		t.Fatalf("create time off: %v", err)
	}

	twoWeeks := monday.AddDate(0, 0, 13)
	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, twoWeeks, time.UTC)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}

	// Time off eats the one-off window's only occurrence; it must not slide
	// to the following Monday.
	if len(slots) != 0 {
		t.Fatalf("one-off window slid past its time-off date, got %d slots", len(slots))
	}
}

func TestComputeSlotsTimezoneConversion(t *testing.T) {
	f := newGeneratorFixture(t)
	f.addWindow(t, 1, "09:00", "10:00", "America/Los_Angeles", true)

	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	slots, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday, tokyo)
	if err != nil {
		t.Fatalf("ComputeSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	// 09:00 PST is 17:00 UTC, which is 02:00 the next day in Tokyo.
	got := slots[0].Start
	if got.Location() != tokyo {
		t.Fatalf("slot not converted to requested timezone: %s", got.Location())
	}
	if got.Hour() != 2 || got.Day() != 3 {
		t.Fatalf("unexpected converted start: %s", got)
	}
}

func TestComputeSlotsRejectsReversedRange(t *testing.T) {
	f := newGeneratorFixture(t)
	if _, err := f.generator.ComputeSlots(context.Background(), f.therapistID, monday, monday.AddDate(0, 0, -1), time.UTC); !errors.Is(err, availability.ErrDateOrder) {
		t.Fatalf("expected ErrDateOrder, got %v", err)
	}
}

func TestComputeSlotsUnknownTherapist(t *testing.T) {
	f := newGeneratorFixture(t)
	if _, err := f.generator.ComputeSlots(context.Background(), uuid.New(), monday, monday, time.UTC); !errors.Is(err, therapists.ErrNotFound) {
		t.Fatalf("expected therapists.ErrNotFound, got %v", err)
	}
}
