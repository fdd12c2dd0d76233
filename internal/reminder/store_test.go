package reminder

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "medivoice.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Repository(t *testing.T) {
	exerciseRepository(t, newTestStore(t))
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medivoice.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	a := testAssignment("08:00")
	a.CreatedAt = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	a.UpdatedAt = a.CreatedAt
	require.NoError(t, store.AppendAssignment(ctx, a))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.PatientID, got.PatientID)
}

func TestStore_EmptyTimingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAssignment()
	a.Timings = nil
	require.NoError(t, store.AppendAssignment(ctx, a))

	got, err := store.GetAssignment(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Timings)
	assert.Nil(t, got.EndDate)
	assert.Nil(t, got.DurationDays)
}

func TestStore_UpdateReminderNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStoreWithDB(db)
	taken := StatusTaken

	mock.ExpectExec(`UPDATE reminders SET status = \? WHERE id = \?`).
		WithArgs("taken", "r-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.UpdateReminder(context.Background(), "r-404", ReminderUpdate{Status: &taken})
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SetAssignmentActiveQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStoreWithDB(db)
	mock.ExpectExec(`UPDATE assignments SET is_active`).
		WithArgs(0, sqlmock.AnyArg(), "a-1").
		WillReturnError(errors.New("disk I/O error"))

	err = store.SetAssignmentActive(context.Background(), "a-1", false, time.Now())
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to update assignment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DueRemindersQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStoreWithDB(db)
	now := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "assignment_id", "patient_id", "scheduled_time", "taken_time", "status",
		"snooze_count", "voice_played", "notification_sent", "notes",
	}).AddRow("r-1", "a-1", "p-1", "2026-03-10T08:00:00Z", nil, "scheduled", 0, 0, 0, "")

	mock.ExpectQuery(`FROM reminders\s+WHERE status = \? AND notification_sent = 0 AND scheduled_time <= \?`).
		WithArgs("scheduled", "2026-03-10T08:00:00Z").
		WillReturnRows(rows)

	due, err := store.DueReminders(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "r-1", due[0].ID)
	assert.True(t, now.Equal(due[0].ScheduledTime))
	assert.Nil(t, due[0].TakenTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetAssignmentBadTimings(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStoreWithDB(db)
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "assigned_by", "assigned_by_role", "medicine_name", "generic_name",
		"dosage", "color", "shape", "photo_url", "instructions", "timings", "duration_days", "notes",
		"start_date", "end_date", "is_active", "created_at", "updated_at",
	}).AddRow("a-1", "p-1", "", "", "Paracetamol", "", "500mg", "", "", "", "", "not json", nil, "",
		"2026-03-10", nil, 1, "2026-03-10T09:00:00Z", "2026-03-10T09:00:00Z")

	mock.ExpectQuery(`FROM assignments WHERE id = \?`).WithArgs("a-1").WillReturnRows(rows)

	_, err = store.GetAssignment(context.Background(), "a-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode timings")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func reminderRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "assignment_id", "patient_id", "scheduled_time", "taken_time", "status",
		"snooze_count", "voice_played", "notification_sent", "notes",
	})
}

func TestStore_CorruptTimesAreErrors(t *testing.T) {
	tests := []struct {
		name      string
		scheduled string
		taken     interface{}
		want      string
	}{
		{name: "scheduled time", scheduled: "yesterday", taken: nil, want: "invalid scheduled_time"},
		{name: "taken time", scheduled: "2026-03-10T08:00:00Z", taken: "08:05", want: "invalid taken_time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			store := NewStoreWithDB(db)
			rows := reminderRows().AddRow("r-1", "a-1", "p-1", tt.scheduled, tt.taken, "taken", 0, 0, 0, "")
			mock.ExpectQuery(`FROM reminders WHERE id = \?`).WithArgs("r-1").WillReturnRows(rows)

			_, err = store.GetReminder(context.Background(), "r-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, IsNotFound(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_CorruptStartDateIsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStoreWithDB(db)
	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "assigned_by", "assigned_by_role", "medicine_name", "generic_name",
		"dosage", "color", "shape", "photo_url", "instructions", "timings", "duration_days", "notes",
		"start_date", "end_date", "is_active", "created_at", "updated_at",
	}).AddRow("a-1", "p-1", "", "", "Paracetamol", "", "500mg", "", "", "", "", `["08:00"]`, nil, "",
		"10/03/2026", nil, 1, "2026-03-10T09:00:00Z", "2026-03-10T09:00:00Z")

	mock.ExpectQuery(`FROM assignments WHERE id = \?`).WithArgs("a-1").WillReturnRows(rows)

	_, err = store.GetAssignment(context.Background(), "a-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid start_date")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LocalTimesRoundTripAsInstants(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	store := newTestStore(t)
	ctx := context.Background()

	a := testAssignment("08:00")
	require.NoError(t, store.AppendAssignment(ctx, a))

	at := time.Date(2026, time.March, 11, 0, 15, 0, 0, loc)
	require.NoError(t, store.AppendReminders(ctx, []Reminder{
		{ID: "r-1", AssignmentID: a.ID, PatientID: a.PatientID, ScheduledTime: at, Status: StatusScheduled},
	}))

	got, err := store.GetReminder(ctx, "r-1")
	require.NoError(t, err)
	assert.True(t, at.Equal(got.ScheduledTime))
	assert.Equal(t, 11, got.ScheduledTime.In(loc).Day())
	assert.Equal(t, 10, got.ScheduledTime.UTC().Day())

	due, err := store.DueReminders(ctx, at.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)
	due, err = store.DueReminders(ctx, at)
	require.NoError(t, err)
	assert.Len(t, due, 1)
}
