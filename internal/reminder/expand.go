package reminder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultHorizonDays is the length of the rolling reminder window.
const DefaultHorizonDays = 7

// ExpandOptions tunes reminder generation.
type ExpandOptions struct {
	HorizonDays int
	NewID       IDGenerator
}

func (o ExpandOptions) withDefaults() ExpandOptions {
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultHorizonDays
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
	return o
}

// Timing is a local time of day parsed from "HH:MM".
type Timing struct {
	Hour   int
	Minute int
}

// ParseTiming parses a 24-hour "HH:MM" string.
func ParseTiming(s string) (Timing, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return Timing{}, &ValidationError{Field: "timings", Reason: fmt.Sprintf("%q is not HH:MM", s)}
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Timing{}, &ValidationError{Field: "timings", Reason: fmt.Sprintf("%q has an invalid hour", s)}
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Timing{}, &ValidationError{Field: "timings", Reason: fmt.Sprintf("%q has an invalid minute", s)}
	}
	return Timing{Hour: h, Minute: m}, nil
}

// On returns the absolute time of t on day d in loc.
func (t Timing) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

func (t Timing) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func parseTimings(raw []string) ([]Timing, error) {
	timings := make([]Timing, 0, len(raw))
	for _, s := range raw {
		t, err := ParseTiming(s)
		if err != nil {
			return nil, err
		}
		timings = append(timings, t)
	}
	return timings, nil
}

// Validate checks the fields reminder generation depends on.
func Validate(a Assignment) error {
	if strings.TrimSpace(a.PatientID) == "" {
		return &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	if strings.TrimSpace(a.MedicineName) == "" {
		return &ValidationError{Field: "medicine_name", Reason: "is required"}
	}
	if strings.TrimSpace(a.Dosage) == "" {
		return &ValidationError{Field: "dosage", Reason: "is required"}
	}
	if a.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if a.EndDate != nil && !a.EndDate.IsZero() && a.EndDate.Before(a.StartDate) {
		return &ValidationError{Field: "end_date", Reason: fmt.Sprintf("%s precedes start_date %s", a.EndDate, a.StartDate)}
	}
	switch a.AssignedByRole {
	case "", RoleSeller, RoleDoctor:
	default:
		return &ValidationError{Field: "assigned_by_role", Reason: fmt.Sprintf("unknown role %q", a.AssignedByRole)}
	}
	if a.DurationDays != nil && *a.DurationDays < 0 {
		return &ValidationError{Field: "duration_days", Reason: "must not be negative"}
	}
	if _, err := parseTimings(a.Timings); err != nil {
		return err
	}
	return nil
}

// Expand produces the initial reminders for an assignment: every timing on
// each of the next HorizonDays calendar days starting today, keeping only
// slots strictly after now. When nothing survives, a single reminder is
// scheduled at now. Inactive assignments yield no reminders.
func Expand(a Assignment, now time.Time, opts ExpandOptions) ([]Reminder, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, nil
	}
	opts = opts.withDefaults()
	timings, _ := parseTimings(a.Timings)

	var reminders []Reminder
	forEachSlot(now, opts.HorizonDays, timings, func(_ Date, at time.Time) {
		if at.After(now) {
			reminders = append(reminders, newReminder(a, at, opts.NewID))
		}
	})

	if len(reminders) == 0 {
		reminders = append(reminders, newReminder(a, now, opts.NewID))
	}
	return reminders, nil
}

// ReExpand extends an assignment's reminders to the window starting at asOf.
// Slots already present in existing, slots outside the course dates and
// slots not after asOf are skipped. There is no fallback reminder.
func ReExpand(a Assignment, asOf time.Time, existing []Reminder, opts ExpandOptions) ([]Reminder, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	if !a.IsActive {
		return nil, nil
	}
	opts = opts.withDefaults()
	timings, _ := parseTimings(a.Timings)

	seen := make(map[int64]struct{}, len(existing))
	for _, r := range existing {
		if r.AssignmentID == a.ID {
			seen[r.ScheduledTime.Unix()] = struct{}{}
		}
	}

	var reminders []Reminder
	forEachSlot(asOf, opts.HorizonDays, timings, func(day Date, at time.Time) {
		if day.Before(a.StartDate) {
			return
		}
		if a.EndDate != nil && !a.EndDate.IsZero() && day.After(*a.EndDate) {
			return
		}
		if !at.After(asOf) {
			return
		}
		if _, ok := seen[at.Unix()]; ok {
			return
		}
		seen[at.Unix()] = struct{}{}
		reminders = append(reminders, newReminder(a, at, opts.NewID))
	})
	return reminders, nil
}

func forEachSlot(from time.Time, days int, timings []Timing, fn func(Date, time.Time)) {
	loc := from.Location()
	start := DateOf(from).In(loc)
	for day := 0; day < days; day++ {
		date := DateOf(start.AddDate(0, 0, day))
		for _, t := range timings {
			fn(date, t.On(date, loc))
		}
	}
}

func newReminder(a Assignment, at time.Time, newID IDGenerator) Reminder {
	return Reminder{
		ID:            newID(),
		AssignmentID:  a.ID,
		PatientID:     a.PatientID,
		ScheduledTime: at.Truncate(time.Second),
		Status:        StatusScheduled,
	}
}
