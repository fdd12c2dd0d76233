package scheduler

import (
	"context"
	"time"

	"github.com/shankar379/medivoice/internal/reminder"
)

// Notification is a due reminder ready to be pushed to a caregiver or device.
type Notification struct {
	Reminder   reminder.Reminder
	Assignment reminder.Assignment
	Message    string
	Language   string
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// payload is the wire form of a Notification.
type payload struct {
	ReminderID    string    `json:"reminder_id"`
	AssignmentID  string    `json:"assignment_id"`
	PatientID     string    `json:"patient_id"`
	MedicineName  string    `json:"medicine_name"`
	Dosage        string    `json:"dosage"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Language      string    `json:"language"`
	Message       string    `json:"message"`
}

func (n Notification) payload() payload {
	return payload{
		ReminderID:    n.Reminder.ID,
		AssignmentID:  n.Reminder.AssignmentID,
		PatientID:     n.Reminder.PatientID,
		MedicineName:  n.Assignment.MedicineName,
		Dosage:        n.Assignment.Dosage,
		ScheduledTime: n.Reminder.ScheduledTime,
		Language:      n.Language,
		Message:       n.Message,
	}
}
