package reminder

import (
	"encoding/json"
	"fmt"
	"time"
)

// AssignerRole identifies who prescribed or dispensed a medicine.
type AssignerRole string

const (
	RoleSeller AssignerRole = "seller"
	RoleDoctor AssignerRole = "doctor"
)

// Status is the lifecycle state of a single reminder.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusTaken     Status = "taken"
	StatusMissed    Status = "missed"
	StatusSnoozed   Status = "snoozed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusTaken, StatusMissed, StatusSnoozed:
		return true
	}
	return false
}

// Pending reports whether the reminder still expects the patient to act.
func (s Status) Pending() bool {
	return s == StatusScheduled || s == StatusSnoozed
}

// Action is a user-driven transition request.
type Action string

const (
	ActionTaken   Action = "taken"
	ActionSnoozed Action = "snoozed"
)

// ParseAction converts user input into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionTaken, ActionSnoozed:
		return Action(s), nil
	case "snooze":
		return ActionSnoozed, nil
	case "take":
		return ActionTaken, nil
	}
	return "", &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q (use taken or snoozed)", s)}
}

// Assignment is a prescribed course of one medicine for one patient.
type Assignment struct {
	ID             string       `json:"id"`
	PatientID      string       `json:"patient_id"`
	AssignedBy     string       `json:"assigned_by"`
	AssignedByRole AssignerRole `json:"assigned_by_role"`
	MedicineName   string       `json:"medicine_name"`
	GenericName    string       `json:"generic_name,omitempty"`
	Dosage         string       `json:"dosage"`
	Color          string       `json:"color,omitempty"`
	Shape          string       `json:"shape,omitempty"`
	PhotoURL       string       `json:"photo_url,omitempty"`
	Instructions   string       `json:"instructions"`
	Timings        []string     `json:"timings"`
	DurationDays   *int         `json:"duration_days,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	StartDate      Date         `json:"start_date"`
	EndDate        *Date        `json:"end_date,omitempty"`
	IsActive       bool         `json:"is_active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Reminder is one concrete, timed occurrence derived from an Assignment.
type Reminder struct {
	ID               string     `json:"id"`
	AssignmentID     string     `json:"assignment_id"`
	PatientID        string     `json:"patient_id"`
	ScheduledTime    time.Time  `json:"scheduled_time"`
	TakenTime        *time.Time `json:"taken_time,omitempty"`
	Status           Status     `json:"status"`
	SnoozeCount      int        `json:"snooze_count"`
	VoicePlayed      bool       `json:"voice_played"`
	NotificationSent bool       `json:"notification_sent"`
	Notes            string     `json:"notes,omitempty"`
}

// ReminderUpdate holds optional fields for a partial update.
// A nil field is left untouched.
type ReminderUpdate struct {
	Status           *Status
	TakenTime        *time.Time
	SnoozeCount      *int
	VoicePlayed      *bool
	NotificationSent *bool
	Notes            *string
}

// Empty reports whether the update changes nothing.
func (u ReminderUpdate) Empty() bool {
	return u.Status == nil && u.TakenTime == nil && u.SnoozeCount == nil &&
		u.VoicePlayed == nil && u.NotificationSent == nil && u.Notes == nil
}

// Apply returns r with the update's non-nil fields copied in.
func (u ReminderUpdate) Apply(r Reminder) Reminder {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.TakenTime != nil {
		t := *u.TakenTime
		r.TakenTime = &t
	}
	if u.SnoozeCount != nil {
		r.SnoozeCount = *u.SnoozeCount
	}
	if u.VoicePlayed != nil {
		r.VoicePlayed = *u.VoicePlayed
	}
	if u.NotificationSent != nil {
		r.NotificationSent = *u.NotificationSent
	}
	if u.Notes != nil {
		r.Notes = *u.Notes
	}
	return r
}

// diff builds the update that turns before into after.
func diff(before, after Reminder) ReminderUpdate {
	var u ReminderUpdate
	if before.Status != after.Status {
		s := after.Status
		u.Status = &s
	}
	if after.TakenTime != nil && (before.TakenTime == nil || !before.TakenTime.Equal(*after.TakenTime)) {
		t := *after.TakenTime
		u.TakenTime = &t
	}
	if before.SnoozeCount != after.SnoozeCount {
		n := after.SnoozeCount
		u.SnoozeCount = &n
	}
	return u
}

// Profile is the per-patient data needed to personalise spoken reminders.
// VoiceSettings is kept as raw JSON; the voice package owns its schema.
type Profile struct {
	PatientID     string          `json:"patient_id"`
	Name          string          `json:"name"`
	Gender        string          `json:"gender,omitempty"`
	VoiceSettings json.RawMessage `json:"voice_settings,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
