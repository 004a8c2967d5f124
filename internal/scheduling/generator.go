package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/littleoak-health/intake-platform/internal/appointments"
	"github.com/littleoak-health/intake-platform/internal/availability"
	"github.com/littleoak-health/intake-platform/internal/therapists"
)

// Slot is a discrete bookable interval. Boundaries are instants; the JSON
// representation renders them in the caller's requested timezone.
type Slot struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TherapistID uuid.UUID `json:"therapist_id"`
}

// Catalog reads the availability catalog.
type Catalog interface {
	WindowsFor(ctx context.Context, therapistID uuid.UUID, dayOfWeek int) ([]*availability.Window, error)
	TimeOffFor(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*availability.TimeOff, error)
}

// AppointmentSource reads booked appointments that still hold their slots.
type AppointmentSource interface {
	ActiveBetween(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]*appointments.Appointment, error)
}

// TherapistSource resolves slot sizing for a therapist.
type TherapistSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*therapists.Therapist, error)
}

// Generator derives bookable slots from recurring windows, time off and
// existing bookings. It only reads, so it is safe to run concurrently; its
// output is a hint that the booking path re-checks under lock.
type Generator struct {
	catalog      Catalog
	appointments AppointmentSource
	therapists   TherapistSource
}

// NewGenerator constructs a slot generator.
func NewGenerator(catalog Catalog, appts AppointmentSource, therapistRepo TherapistSource) *Generator {
	return &Generator{
		catalog:      catalog,
		appointments: appts,
		therapists:   therapistRepo,
	}
}

// ComputeSlots returns the ordered bookable slots for each calendar date in
// [startDate, endDate], with boundaries converted to output.
func (g *Generator) ComputeSlots(ctx context.Context, therapistID uuid.UUID, startDate, endDate time.Time, output *time.Location) ([]Slot, error) {
	start, end := availability.DateOf(startDate), availability.DateOf(endDate)
	if end.Before(start) {
		return nil, availability.ErrDateOrder
	}

	therapist, err := g.therapists.GetByID(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	step := therapist.TotalSlotDuration()

	timeOff, err := g.catalog.TimeOffFor(ctx, therapistID, start, end)
	if err != nil {
		return nil, err
	}

	windowsByDay := make(map[int][]*availability.Window)
	seenWeekday := make(map[int]bool)

	var slots []Slot
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		// A one-off window is consumed by the first occurrence of its weekday
		// even when that date is blocked by time off; it must not slide to a
		// later week.
		weekday := int(d.Weekday())
		firstOccurrence := !seenWeekday[weekday]
		seenWeekday[weekday] = true

		if coveredByTimeOff(timeOff, d) {
			continue
		}

		windows, ok := windowsByDay[weekday]
		if !ok {
			windows, err = g.catalog.WindowsFor(ctx, therapistID, weekday)
			if err != nil {
				return nil, err
			}
			windowsByDay[weekday] = windows
		}

		for _, w := range windows {
			// One-off windows apply only to the next occurrence of their day.
			if !w.IsRepeating && !firstOccurrence {
				continue
			}
			expanded, err := expandWindow(w, d, step)
			if err != nil {
				return nil, err
			}
			slots = append(slots, expanded...)
		}
	}

	if len(slots) == 0 {
		return nil, nil
	}

	slots, err = g.dropBooked(ctx, therapistID, slots)
	if err != nil {
		return nil, err
	}

	for i := range slots {
		slots[i].Start = slots[i].Start.In(output)
		slots[i].End = slots[i].End.In(output)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// expandWindow anchors the window's wall-clock bounds in its own timezone on
// date d and steps forward by fixed absolute durations. Slot length stays
// exact across daylight-saving transitions because the arithmetic is on
// instants, not wall-clock strings. No partial trailing slot is produced.
func expandWindow(w *availability.Window, d time.Time, step time.Duration) ([]Slot, error) {
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduling: window %s has bad timezone %q: %w", w.ID, w.Timezone, err)
	}

	year, month, day := d.Date()
	windowStart := time.Date(year, month, day, w.StartTime.Hour(), w.StartTime.Minute(), 0, 0, loc)
	windowEnd := time.Date(year, month, day, w.EndTime.Hour(), w.EndTime.Minute(), 0, 0, loc)

	var slots []Slot
	for slotStart := windowStart; ; slotStart = slotStart.Add(step) {
		slotEnd := slotStart.Add(step)
		if slotEnd.After(windowEnd) {
			break
		}
		slots = append(slots, Slot{Start: slotStart, End: slotEnd, TherapistID: w.TherapistID})
	}
	return slots, nil
}

// dropBooked removes slots already covered by an active appointment.
func (g *Generator) dropBooked(ctx context.Context, therapistID uuid.UUID, slots []Slot) ([]Slot, error) {
	minStart, maxEnd := slots[0].Start, slots[0].End
	for _, s := range slots[1:] {
		if s.Start.Before(minStart) {
			minStart = s.Start
		}
		if s.End.After(maxEnd) {
			maxEnd = s.End
		}
	}

	booked, err := g.appointments.ActiveBetween(ctx, therapistID, minStart, maxEnd)
	if err != nil {
		return nil, err
	}
	if len(booked) == 0 {
		return slots, nil
	}

	free := slots[:0]
	for _, s := range slots {
		conflict := false
		for _, a := range booked {
			if a.OverlapsInterval(s.Start, s.End) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, s)
		}
	}
	return free, nil
}

func coveredByTimeOff(ranges []*availability.TimeOff, date time.Time) bool {
	for _, t := range ranges {
		if t.Covers(date) {
			return true
		}
	}
	return false
}
