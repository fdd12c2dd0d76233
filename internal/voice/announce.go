package voice

import (
	"context"
	"fmt"

	"github.com/shankar379/medivoice/internal/reminder"
)

// Announcement is a composed message together with the settings it should
// be spoken with.
type Announcement struct {
	Assignment reminder.Assignment
	UserName   string
	Settings   Settings
	Text       string
}

// Announcer composes messages for stored assignments using the patient's
// profile.
type Announcer struct {
	svc             *reminder.Service
	defaultLanguage string
}

// NewAnnouncer creates an Announcer. defaultLanguage applies to patients
// without a stored profile.
func NewAnnouncer(svc *reminder.Service, defaultLanguage string) *Announcer {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	return &Announcer{svc: svc, defaultLanguage: defaultLanguage}
}

// ForAssignment composes the message for an assignment. Non-empty userName
// or lang override the profile.
func (a *Announcer) ForAssignment(ctx context.Context, assignmentID, userName, lang string) (*Announcement, error) {
	assignment, err := a.svc.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	settings, name, err := a.settingsFor(ctx, assignment.PatientID)
	if err != nil {
		return nil, err
	}
	if userName != "" {
		name = userName
	}
	if lang != "" {
		settings.Language = lang
	}

	return &Announcement{
		Assignment: *assignment,
		UserName:   name,
		Settings:   settings,
		Text:       Compose(*assignment, name, settings),
	}, nil
}

// ForReminder composes the message for a reminder's assignment.
func (a *Announcer) ForReminder(ctx context.Context, r reminder.Reminder) (*Announcement, error) {
	return a.ForAssignment(ctx, r.AssignmentID, "", "")
}

// Settings returns a patient's voice settings.
func (a *Announcer) Settings(ctx context.Context, patientID string) (Settings, error) {
	s, _, err := a.settingsFor(ctx, patientID)
	return s, err
}

func (a *Announcer) settingsFor(ctx context.Context, patientID string) (Settings, string, error) {
	profile, err := a.svc.GetProfile(ctx, patientID)
	if err != nil {
		if reminder.IsNotFound(err) {
			s := DefaultSettings()
			s.Language = a.defaultLanguage
			return s, "", nil
		}
		return Settings{}, "", fmt.Errorf("failed to get profile: %w", err)
	}
	return SettingsFromProfile(profile), profile.Name, nil
}
