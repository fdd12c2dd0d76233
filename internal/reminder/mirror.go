package reminder

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Mirror writes to a primary repository and copies every write to a
// secondary one. Reads are served by the primary. A failed secondary write
// is logged and does not fail the call.
type Mirror struct {
	primary   Repository
	secondary Repository
	logger    *zap.Logger
}

var _ Repository = (*Mirror)(nil)

func NewMirror(primary, secondary Repository, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

func (m *Mirror) replicate(op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	m.logger.Warn("secondary store write failed, continuing with primary only",
		append(fields, zap.String("op", op), zap.Error(err))...)
}

func (m *Mirror) AppendAssignment(ctx context.Context, a Assignment) error {
	if err := m.primary.AppendAssignment(ctx, a); err != nil {
		return err
	}
	m.replicate("append_assignment", m.secondary.AppendAssignment(ctx, a), zap.String("assignment_id", a.ID))
	return nil
}

func (m *Mirror) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	return m.primary.GetAssignment(ctx, id)
}

func (m *Mirror) ListAssignments(ctx context.Context, patientID string) ([]Assignment, error) {
	return m.primary.ListAssignments(ctx, patientID)
}

func (m *Mirror) ActiveAssignments(ctx context.Context) ([]Assignment, error) {
	return m.primary.ActiveAssignments(ctx)
}

func (m *Mirror) SetAssignmentActive(ctx context.Context, id string, active bool, at time.Time) error {
	if err := m.primary.SetAssignmentActive(ctx, id, active, at); err != nil {
		return err
	}
	m.replicate("set_assignment_active", m.secondary.SetAssignmentActive(ctx, id, active, at), zap.String("assignment_id", id))
	return nil
}

func (m *Mirror) AppendReminders(ctx context.Context, reminders []Reminder) error {
	if err := m.primary.AppendReminders(ctx, reminders); err != nil {
		return err
	}
	m.replicate("append_reminders", m.secondary.AppendReminders(ctx, reminders), zap.Int("count", len(reminders)))
	return nil
}

func (m *Mirror) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	return m.primary.GetReminder(ctx, id)
}

func (m *Mirror) ListReminders(ctx context.Context, patientID string) ([]Reminder, error) {
	return m.primary.ListReminders(ctx, patientID)
}

func (m *Mirror) UpdateReminder(ctx context.Context, id string, fields ReminderUpdate) error {
	if err := m.primary.UpdateReminder(ctx, id, fields); err != nil {
		return err
	}
	m.replicate("update_reminder", m.secondary.UpdateReminder(ctx, id, fields), zap.String("reminder_id", id))
	return nil
}

func (m *Mirror) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return m.primary.DueReminders(ctx, now)
}

func (m *Mirror) StaleReminders(ctx context.Context, cutoff time.Time) ([]Reminder, error) {
	return m.primary.StaleReminders(ctx, cutoff)
}

func (m *Mirror) SaveProfile(ctx context.Context, p Profile) error {
	if err := m.primary.SaveProfile(ctx, p); err != nil {
		return err
	}
	m.replicate("save_profile", m.secondary.SaveProfile(ctx, p), zap.String("patient_id", p.PatientID))
	return nil
}

func (m *Mirror) GetProfile(ctx context.Context, patientID string) (*Profile, error) {
	return m.primary.GetProfile(ctx, patientID)
}

func (m *Mirror) Close() error {
	return errors.Join(m.primary.Close(), m.secondary.Close())
}
