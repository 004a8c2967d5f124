package appointments

import (
	"fmt"
	"time"
)

// NoticePolicy enforces the minimum notice required before a booked
// appointment may be cancelled or rescheduled.
type NoticePolicy struct {
	MinNotice time.Duration
}

// DefaultNoticePolicy returns the standard 24 hour policy.
func DefaultNoticePolicy() NoticePolicy {
	return NoticePolicy{MinNotice: 24 * time.Hour}
}

// Cancellable reports whether the appointment may still be cancelled: it must
// hold a slot and now must be more than MinNotice before the start time.
func (p NoticePolicy) Cancellable(a *Appointment, now time.Time) bool {
	return a.Active() && now.Add(p.MinNotice).Before(a.ScheduledAt)
}

// Reschedulable shares the cancellation precondition.
func (p NoticePolicy) Reschedulable(a *Appointment, now time.Time) bool {
	return p.Cancellable(a, now)
}

// EnsureCancellable returns ErrPolicyViolation with detail when the
// appointment can no longer be cancelled.
func (p NoticePolicy) EnsureCancellable(a *Appointment, now time.Time) error {
	if !a.Active() {
		return fmt.Errorf("%w: appointment is %s", ErrPolicyViolation, a.Status)
	}
	if !now.Add(p.MinNotice).Before(a.ScheduledAt) {
		return fmt.Errorf("%w: less than %s notice before the appointment", ErrPolicyViolation, p.MinNotice)
	}
	return nil
}

// EnsureReschedulable mirrors EnsureCancellable for reschedules.
func (p NoticePolicy) EnsureReschedulable(a *Appointment, now time.Time) error {
	return p.EnsureCancellable(a, now)
}
