package reminder

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Service is the public surface of the reminder engine. It binds the pure
// expansion and transition functions to a Repository and a Clock.
type Service struct {
	repo        Repository
	clock       Clock
	logger      *zap.Logger
	horizonDays int
	missed      MissedPolicy
	newID       IDGenerator
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithClock(c Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

func WithHorizonDays(days int) ServiceOption {
	return func(s *Service) { s.horizonDays = days }
}

func WithMissedPolicy(p MissedPolicy) ServiceOption {
	return func(s *Service) { s.missed = p }
}

func WithIDGenerator(g IDGenerator) ServiceOption {
	return func(s *Service) { s.newID = g }
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:        repo,
		clock:       SystemClock{},
		logger:      zap.NewNop(),
		horizonDays: DefaultHorizonDays,
		newID:       NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) expandOptions() ExpandOptions {
	return ExpandOptions{HorizonDays: s.horizonDays, NewID: s.newID}
}

// ExpandAssignment generates the initial reminders for a without persisting them.
func (s *Service) ExpandAssignment(a Assignment) ([]Reminder, error) {
	return Expand(a, s.clock.Now(), s.expandOptions())
}

// CreateAssignment validates and stores a new assignment, then expands and
// stores its reminders. A failure after the assignment is stored is logged
// and the assignment is still returned.
func (s *Service) CreateAssignment(ctx context.Context, a Assignment) (*Assignment, []Reminder, error) {
	now := s.clock.Now()
	a.ID = s.newID()
	a.IsActive = true
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := Validate(a); err != nil {
		return nil, nil, err
	}

	if err := s.repo.AppendAssignment(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("failed to save assignment: %w", err)
	}

	reminders, err := Expand(a, now, s.expandOptions())
	if err != nil {
		s.logger.Error("failed to expand reminders",
			zap.String("assignment_id", a.ID), zap.Error(err))
		return &a, nil, nil
	}

	if err := s.repo.AppendReminders(ctx, reminders); err != nil {
		s.logger.Error("failed to save reminders",
			zap.String("assignment_id", a.ID), zap.Int("count", len(reminders)), zap.Error(err))
		return &a, nil, nil
	}

	s.logger.Info("assignment created",
		zap.String("assignment_id", a.ID),
		zap.String("patient_id", a.PatientID),
		zap.String("medicine", a.MedicineName),
		zap.Int("reminders", len(reminders)))
	return &a, reminders, nil
}

// ApplyTransition applies a user action to the reminder with the given id.
func (s *Service) ApplyTransition(ctx context.Context, id string, action Action) (*Reminder, error) {
	r, err := s.repo.GetReminder(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed, err := Transition(*r, action, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return r, nil
	}

	if err := s.repo.UpdateReminder(ctx, id, diff(*r, next)); err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}

	s.logger.Debug("reminder transitioned",
		zap.String("reminder_id", id),
		zap.String("from", string(r.Status)),
		zap.String("to", string(next.Status)),
		zap.Int("snooze_count", next.SnoozeCount))
	return &next, nil
}

// ReExpand generates and stores the reminders missing from the window that
// starts at asOf (now when asOf is zero). Timings are read in the clock's
// location whatever zone asOf carries.
func (s *Service) ReExpand(ctx context.Context, assignmentID string, asOf time.Time) ([]Reminder, error) {
	now := s.clock.Now()
	if asOf.IsZero() {
		asOf = now
	}
	asOf = asOf.In(now.Location())

	a, err := s.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListReminders(ctx, a.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}

	reminders, err := ReExpand(*a, asOf, existing, s.expandOptions())
	if err != nil {
		return nil, err
	}
	if err := s.repo.AppendReminders(ctx, reminders); err != nil {
		return nil, fmt.Errorf("failed to save reminders: %w", err)
	}
	return reminders, nil
}

// ReExpandAll extends the window of every active assignment and returns the
// number of reminders created.
func (s *Service) ReExpandAll(ctx context.Context) (int, error) {
	assignments, err := s.repo.ActiveAssignments(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	total := 0
	for _, a := range assignments {
		created, err := s.ReExpand(ctx, a.ID, now)
		if err != nil {
			s.logger.Warn("re-expansion failed",
				zap.String("assignment_id", a.ID), zap.Error(err))
			continue
		}
		total += len(created)
	}
	return total, nil
}

// MarkMissed applies the missed policy to every overdue scheduled reminder.
// It does nothing unless the policy is enabled.
func (s *Service) MarkMissed(ctx context.Context) (int, error) {
	if !s.missed.Enabled {
		return 0, nil
	}

	now := s.clock.Now()
	stale, err := s.repo.StaleReminders(ctx, now.Add(-s.missed.Grace))
	if err != nil {
		return 0, err
	}

	marked := 0
	for _, r := range stale {
		next, changed := Miss(r, now, s.missed.Grace)
		if !changed {
			continue
		}
		if err := s.repo.UpdateReminder(ctx, r.ID, diff(r, next)); err != nil {
			return marked, fmt.Errorf("failed to mark reminder %s missed: %w", r.ID, err)
		}
		marked++
	}
	return marked, nil
}

// TodayReminders returns a patient's pending reminders on the current
// calendar day, earliest first.
func (s *Service) TodayReminders(ctx context.Context, patientID string) ([]Reminder, error) {
	reminders, err := s.repo.ListReminders(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := DateOf(now)
	var out []Reminder
	for _, r := range reminders {
		if !r.Status.Pending() {
			continue
		}
		if DateOf(r.ScheduledTime.In(now.Location())) == today {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out, nil
}

// DeactivateAssignment stops future reminder generation for an assignment.
// Existing reminders are kept.
func (s *Service) DeactivateAssignment(ctx context.Context, id string) error {
	return s.repo.SetAssignmentActive(ctx, id, false, s.clock.Now())
}

func (s *Service) MarkVoicePlayed(ctx context.Context, id string) error {
	played := true
	return s.repo.UpdateReminder(ctx, id, ReminderUpdate{VoicePlayed: &played})
}

func (s *Service) MarkNotificationSent(ctx context.Context, id string) error {
	sent := true
	return s.repo.UpdateReminder(ctx, id, ReminderUpdate{NotificationSent: &sent})
}

// DueReminders returns reminders that are due now and not yet notified.
func (s *Service) DueReminders(ctx context.Context) ([]Reminder, error) {
	return s.repo.DueReminders(ctx, s.clock.Now())
}

func (s *Service) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	return s.repo.GetAssignment(ctx, id)
}

func (s *Service) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	return s.repo.GetReminder(ctx, id)
}

func (s *Service) ListAssignments(ctx context.Context, patientID string) ([]Assignment, error) {
	return s.repo.ListAssignments(ctx, patientID)
}

func (s *Service) ListReminders(ctx context.Context, patientID string) ([]Reminder, error) {
	return s.repo.ListReminders(ctx, patientID)
}

func (s *Service) ActiveAssignments(ctx context.Context) ([]Assignment, error) {
	return s.repo.ActiveAssignments(ctx)
}

// SaveProfile stores a patient profile stamped with the current time.
func (s *Service) SaveProfile(ctx context.Context, p Profile) (*Profile, error) {
	if p.PatientID == "" {
		return nil, &ValidationError{Field: "patient_id", Reason: "is required"}
	}
	p.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) GetProfile(ctx context.Context, patientID string) (*Profile, error) {
	return s.repo.GetProfile(ctx, patientID)
}
