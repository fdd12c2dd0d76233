package reminder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

// Store provides SQLite-backed storage for assignments, reminders and profiles.
type Store struct {
	db *sql.DB
}

var _ Repository = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at dbPath and
// ensures the tables exist.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an already migrated connection.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func createTables(db *sql.DB) error {
	statements := []string{`
		CREATE TABLE IF NOT EXISTS assignments (
			id               TEXT    PRIMARY KEY,
			patient_id       TEXT    NOT NULL,
			assigned_by      TEXT    NOT NULL DEFAULT '',
			assigned_by_role TEXT    NOT NULL DEFAULT '',
			medicine_name    TEXT    NOT NULL,
			generic_name     TEXT    NOT NULL DEFAULT '',
			dosage           TEXT    NOT NULL,
			color            TEXT    NOT NULL DEFAULT '',
			shape            TEXT    NOT NULL DEFAULT '',
			photo_url        TEXT    NOT NULL DEFAULT '',
			instructions     TEXT    NOT NULL DEFAULT '',
			timings          TEXT    NOT NULL DEFAULT '[]',
			duration_days    INTEGER,
			notes            TEXT    NOT NULL DEFAULT '',
			start_date       TEXT    NOT NULL,
			end_date         TEXT,
			is_active        INTEGER NOT NULL DEFAULT 1,
			created_at       TEXT    NOT NULL,
			updated_at       TEXT    NOT NULL
		)`, `
		CREATE INDEX IF NOT EXISTS idx_assignments_patient ON assignments (patient_id)`, `
		CREATE TABLE IF NOT EXISTS reminders (
			id                TEXT    PRIMARY KEY,
			assignment_id     TEXT    NOT NULL,
			patient_id        TEXT    NOT NULL,
			scheduled_time    TEXT    NOT NULL,
			taken_time        TEXT,
			status            TEXT    NOT NULL DEFAULT 'scheduled',
			snooze_count      INTEGER NOT NULL DEFAULT 0,
			voice_played      INTEGER NOT NULL DEFAULT 0,
			notification_sent INTEGER NOT NULL DEFAULT 0,
			notes             TEXT    NOT NULL DEFAULT ''
		)`, `
		CREATE INDEX IF NOT EXISTS idx_reminders_patient ON reminders (patient_id, scheduled_time)`, `
		CREATE INDEX IF NOT EXISTS idx_reminders_status ON reminders (status, scheduled_time)`, `
		CREATE TABLE IF NOT EXISTS profiles (
			patient_id     TEXT PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			gender         TEXT NOT NULL DEFAULT '',
			voice_settings TEXT NOT NULL DEFAULT '',
			updated_at     TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const assignmentColumns = `id, patient_id, assigned_by, assigned_by_role, medicine_name, generic_name,
	dosage, color, shape, photo_url, instructions, timings, duration_days, notes,
	start_date, end_date, is_active, created_at, updated_at`

const reminderColumns = `id, assignment_id, patient_id, scheduled_time, taken_time, status,
	snooze_count, voice_played, notification_sent, notes`

// AppendAssignment inserts a new assignment.
func (s *Store) AppendAssignment(ctx context.Context, a Assignment) error {
	timings, err := json.Marshal(nonNilTimings(a.Timings))
	if err != nil {
		return fmt.Errorf("failed to encode timings: %w", err)
	}

	var duration sql.NullInt64
	if a.DurationDays != nil {
		duration = sql.NullInt64{Int64: int64(*a.DurationDays), Valid: true}
	}
	var endDate sql.NullString
	if a.EndDate != nil && !a.EndDate.IsZero() {
		endDate = sql.NullString{String: a.EndDate.String(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.PatientID, a.AssignedBy, string(a.AssignedByRole), a.MedicineName, a.GenericName,
		a.Dosage, a.Color, a.Shape, a.PhotoURL, a.Instructions, string(timings), duration, a.Notes,
		a.StartDate.String(), endDate, boolToInt(a.IsActive),
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// GetAssignment returns a single assignment by ID.
func (s *Store) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assignmentNotFound(id)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// ListAssignments returns a patient's assignments, oldest first.
func (s *Store) ListAssignments(ctx context.Context, patientID string) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments WHERE patient_id = ? ORDER BY created_at ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// ActiveAssignments returns every active assignment across patients.
func (s *Store) ActiveAssignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments WHERE is_active = 1 ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignments(rows)
}

// SetAssignmentActive flips the active flag.
func (s *Store) SetAssignmentActive(ctx context.Context, id string, active bool, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE assignments SET is_active = ?, updated_at = ? WHERE id = ?
	`, boolToInt(active), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return assignmentNotFound(id)
	}
	return nil
}

// AppendReminders inserts reminders in one transaction.
func (s *Store) AppendReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare reminder insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range reminders {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.AssignmentID, r.PatientID, formatTime(r.ScheduledTime), nullTime(r.TakenTime),
			string(r.Status), r.SnoozeCount, boolToInt(r.VoicePlayed), boolToInt(r.NotificationSent), r.Notes,
		); err != nil {
			return fmt.Errorf("failed to insert reminder %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reminders: %w", err)
	}
	return nil
}

// GetReminder returns a single reminder by ID.
func (s *Store) GetReminder(ctx context.Context, id string) (*Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reminderNotFound(id)
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return r, nil
}

// ListReminders returns a patient's reminders ordered by scheduled time.
func (s *Store) ListReminders(ctx context.Context, patientID string) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders WHERE patient_id = ? ORDER BY scheduled_time ASC
	`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// DueReminders returns scheduled reminders due at or before now that have
// not been notified yet.
func (s *Store) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = ? AND notification_sent = 0 AND scheduled_time <= ?
		ORDER BY scheduled_time ASC
	`, string(StatusScheduled), formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to get due reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// StaleReminders returns scheduled reminders strictly before cutoff.
func (s *Store) StaleReminders(ctx context.Context, cutoff time.Time) ([]Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = ? AND scheduled_time < ?
		ORDER BY scheduled_time ASC
	`, string(StatusScheduled), formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to get stale reminders: %w", err)
	}
	defer rows.Close()

	return scanReminders(rows)
}

// UpdateReminder applies partial updates to a reminder.
func (s *Store) UpdateReminder(ctx context.Context, id string, fields ReminderUpdate) error {
	// Build SET clause dynamically
	setClauses := []string{}
	args := []interface{}{}

	if fields.Status != nil {
		setClauses = append(setClauses, "status = ?")
		args = append(args, string(*fields.Status))
	}
	if fields.TakenTime != nil {
		setClauses = append(setClauses, "taken_time = ?")
		args = append(args, formatTime(*fields.TakenTime))
	}
	if fields.SnoozeCount != nil {
		setClauses = append(setClauses, "snooze_count = ?")
		args = append(args, *fields.SnoozeCount)
	}
	if fields.VoicePlayed != nil {
		setClauses = append(setClauses, "voice_played = ?")
		args = append(args, boolToInt(*fields.VoicePlayed))
	}
	if fields.NotificationSent != nil {
		setClauses = append(setClauses, "notification_sent = ?")
		args = append(args, boolToInt(*fields.NotificationSent))
	}
	if fields.Notes != nil {
		setClauses = append(setClauses, "notes = ?")
		args = append(args, *fields.Notes)
	}

	if len(setClauses) == 0 {
		_, err := s.GetReminder(ctx, id)
		return err
	}

	query := "UPDATE reminders SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}

	n, _ := result.RowsAffected()
	if n == 0 {
		return reminderNotFound(id)
	}
	return nil
}

// SaveProfile inserts or replaces a patient profile.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (patient_id, name, gender, voice_settings, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(patient_id) DO UPDATE SET
			name = excluded.name,
			gender = excluded.gender,
			voice_settings = excluded.voice_settings,
			updated_at = excluded.updated_at
	`, p.PatientID, p.Name, p.Gender, string(p.VoiceSettings), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns a patient's profile.
func (s *Store) GetProfile(ctx context.Context, patientID string) (*Profile, error) {
	var p Profile
	var settings, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT patient_id, name, gender, voice_settings, updated_at
		FROM profiles WHERE patient_id = ?
	`, patientID).Scan(&p.PatientID, &p.Name, &p.Gender, &settings, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, profileNotFound(patientID)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if settings != "" {
		p.VoiceSettings = json.RawMessage(settings)
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan profile %s: %w", patientID, err)
	}
	return &p, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignments(rows *sql.Rows) ([]Assignment, error) {
	var assignments []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	var a Assignment
	var role, timings, startDate, createdAt, updatedAt string
	var duration sql.NullInt64
	var endDate sql.NullString
	var active int

	if err := row.Scan(&a.ID, &a.PatientID, &a.AssignedBy, &role, &a.MedicineName, &a.GenericName,
		&a.Dosage, &a.Color, &a.Shape, &a.PhotoURL, &a.Instructions, &timings, &duration, &a.Notes,
		&startDate, &endDate, &active, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	a.AssignedByRole = AssignerRole(role)
	if err := json.Unmarshal([]byte(timings), &a.Timings); err != nil {
		return nil, fmt.Errorf("failed to decode timings for %s: %w", a.ID, err)
	}
	if duration.Valid {
		d := int(duration.Int64)
		a.DurationDays = &d
	}
	var err error
	if a.StartDate, err = ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("invalid start_date for %s: %w", a.ID, err)
	}
	if endDate.Valid && endDate.String != "" {
		d, err := ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("invalid end_date for %s: %w", a.ID, err)
		}
		a.EndDate = &d
	}
	a.IsActive = active != 0
	if a.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
	}
	if a.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return nil, fmt.Errorf("assignment %s: %w", a.ID, err)
	}

	return &a, nil
}

func scanReminders(rows *sql.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

func scanReminder(row rowScanner) (*Reminder, error) {
	var r Reminder
	var scheduled, status string
	var taken sql.NullString
	var voicePlayed, notificationSent int

	if err := row.Scan(&r.ID, &r.AssignmentID, &r.PatientID, &scheduled, &taken, &status,
		&r.SnoozeCount, &voicePlayed, &notificationSent, &r.Notes); err != nil {
		return nil, err
	}

	var err error
	if r.ScheduledTime, err = parseTime("scheduled_time", scheduled); err != nil {
		return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
	}
	if taken.Valid && taken.String != "" {
		t, err := parseTime("taken_time", taken.String)
		if err != nil {
			return nil, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
		r.TakenTime = &t
	}
	r.Status = Status(status)
	r.VoicePlayed = voicePlayed != 0
	r.NotificationSent = notificationSent != 0

	return &r, nil
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return t, nil
}

// formatTime stores t in UTC at second precision.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilTimings(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}
