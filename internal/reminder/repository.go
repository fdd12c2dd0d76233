package reminder

import (
	"context"
	"time"
)

// Repository persists assignments, reminders and profiles.
// Writes are atomic per record; no cross-record transactions are assumed.
type Repository interface {
	AppendAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, id string) (*Assignment, error)
	ListAssignments(ctx context.Context, patientID string) ([]Assignment, error)
	ActiveAssignments(ctx context.Context) ([]Assignment, error)
	SetAssignmentActive(ctx context.Context, id string, active bool, at time.Time) error

	AppendReminders(ctx context.Context, reminders []Reminder) error
	GetReminder(ctx context.Context, id string) (*Reminder, error)
	ListReminders(ctx context.Context, patientID string) ([]Reminder, error)
	UpdateReminder(ctx context.Context, id string, fields ReminderUpdate) error
	// DueReminders returns scheduled reminders at or before now whose
	// notification has not been sent.
	DueReminders(ctx context.Context, now time.Time) ([]Reminder, error)
	// StaleReminders returns scheduled reminders strictly before cutoff.
	StaleReminders(ctx context.Context, cutoff time.Time) ([]Reminder, error)

	SaveProfile(ctx context.Context, p Profile) error
	GetProfile(ctx context.Context, patientID string) (*Profile, error)

	Close() error
}
