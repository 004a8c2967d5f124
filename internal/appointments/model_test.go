package appointments

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusNoShow, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusNoShow, true},
		{StatusConfirmed, StatusScheduled, false},
		{StatusCancelled, StatusScheduled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusNoShow, StatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusScheduled, StatusConfirmed} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestTerminalAppointmentsRejectMutation(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []Status{StatusCancelled, StatusCompleted, StatusNoShow} {
		a := &Appointment{Status: status}
		if err := a.Confirm(now); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("Confirm on %s: expected ErrPolicyViolation, got %v", status, err)
		}
		if err := a.Cancel("late", now); !errors.Is(err, ErrPolicyViolation) {
			t.Errorf("Cancel on %s: expected ErrPolicyViolation, got %v", status, err)
		}
		if a.Status != status {
			t.Errorf("status mutated on rejected transition: %s", a.Status)
		}
	}
}

func TestConfirmSetsTimestamps(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	a := &Appointment{Status: StatusScheduled}
	if err := a.Confirm(now); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if a.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", a.Status)
	}
	if a.ConfirmedAt == nil || !a.ConfirmedAt.Equal(now) {
		t.Fatalf("confirmed_at not recorded")
	}
}

func TestCancelRecordsReason(t *testing.T) {
	now := time.Now().UTC()
	a := &Appointment{Status: StatusConfirmed}
	if err := a.Cancel("family emergency", now); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if a.CancelledAt == nil || a.CancellationReason != "family emergency" {
		t.Fatalf("cancellation details not recorded: %+v", a)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	hour := time.Hour

	// Touching intervals do not overlap.
	if Overlaps(base, base.Add(hour), base.Add(hour), base.Add(2*hour)) {
		t.Fatal("back-to-back intervals must not overlap")
	}
	if !Overlaps(base, base.Add(hour), base.Add(30*time.Minute), base.Add(90*time.Minute)) {
		t.Fatal("intersecting intervals must overlap")
	}
	// Containment counts as overlap.
	if !Overlaps(base, base.Add(2*hour), base.Add(30*time.Minute), base.Add(time.Hour)) {
		t.Fatal("contained interval must overlap")
	}
}

func TestConfirmationNumber(t *testing.T) {
	id := uuid.MustParse("ab12cd34-5678-90ef-abcd-ef1234567890")
	got := ConfirmationNumber(id)
	if got != "AB12CD34" {
		t.Fatalf("expected AB12CD34, got %s", got)
	}
	// Derivation is stable.
	if ConfirmationNumber(id) != got {
		t.Fatal("confirmation number must be deterministic")
	}
}

func TestAppointmentEnd(t *testing.T) {
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	a := &Appointment{ScheduledAt: start, DurationMinutes: 50}
	if !a.End().Equal(start.Add(50 * time.Minute)) {
		t.Fatalf("unexpected end: %s", a.End())
	}
}
