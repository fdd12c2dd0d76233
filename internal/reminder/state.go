package reminder

import (
	"fmt"
	"time"
)

// MissedPolicy controls whether overdue reminders are marked missed.
// It is off unless the integrator enables it.
type MissedPolicy struct {
	Enabled bool
	Grace   time.Duration
}

// Transition applies a user action to r. The bool reports whether r changed;
// re-applying an action to a reminder already in its target terminal state
// is a no-op.
func Transition(r Reminder, action Action, now time.Time) (Reminder, bool, error) {
	switch action {
	case ActionTaken:
		switch r.Status {
		case StatusTaken:
			return r, false, nil
		case StatusScheduled, StatusSnoozed, StatusMissed:
			t := now.Truncate(time.Second)
			r.Status = StatusTaken
			r.TakenTime = &t
			return r, true, nil
		}
	case ActionSnoozed:
		switch r.Status {
		case StatusScheduled, StatusSnoozed:
			r.Status = StatusSnoozed
			r.SnoozeCount++
			return r, true, nil
		case StatusTaken, StatusMissed:
			return r, false, nil
		}
	default:
		return r, false, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
	return r, false, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", r.Status)}
}

// Miss marks r missed when it is still scheduled and its grace period has
// elapsed at now.
func Miss(r Reminder, now time.Time, grace time.Duration) (Reminder, bool) {
	if r.Status != StatusScheduled {
		return r, false
	}
	if !r.ScheduledTime.Add(grace).Before(now) {
		return r, false
	}
	r.Status = StatusMissed
	return r, true
}
