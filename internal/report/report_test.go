package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shankar379/medivoice/internal/reminder"
)

var now = time.Date(2026, time.March, 12, 12, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
}

func fixtures() ([]reminder.Assignment, []reminder.Reminder) {
	assignments := []reminder.Assignment{
		{ID: "a-2", PatientID: "p-1", MedicineName: "Paracetamol", Dosage: "500mg"},
		{ID: "a-1", PatientID: "p-1", MedicineName: "Amlodipine", Dosage: "5mg"},
	}
	taken := at(11, 8).Add(5 * time.Minute)
	reminders := []reminder.Reminder{
		{ID: "r-1", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at(11, 8), Status: reminder.StatusTaken, TakenTime: &taken, VoicePlayed: true},
		{ID: "r-2", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at(12, 8), Status: reminder.StatusMissed},
		{ID: "r-3", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at(13, 8), Status: reminder.StatusScheduled},
		{ID: "r-4", AssignmentID: "a-2", PatientID: "p-1", ScheduledTime: at(12, 9), Status: reminder.StatusSnoozed, SnoozeCount: 2},
		{ID: "r-5", AssignmentID: "a-2", PatientID: "p-1", ScheduledTime: at(10, 21), Status: reminder.StatusScheduled},
	}
	return assignments, reminders
}

func TestSummarize(t *testing.T) {
	_, reminders := fixtures()

	s := Summarize("p-1", reminders, now)
	assert.Equal(t, Summary{
		PatientID: "p-1",
		Due:       4,
		Taken:     1,
		Missed:    1,
		Snoozed:   1,
		Pending:   2,
		Upcoming:  1,
		Adherence: 25,
	}, s)
}

func TestSummarize_NothingDue(t *testing.T) {
	s := Summarize("p-1", nil, now)
	assert.Zero(t, s.Due)
	assert.Zero(t, s.Adherence)
}

func TestByMedicine(t *testing.T) {
	assignments, reminders := fixtures()

	got := ByMedicine(assignments, reminders, now)
	require.Len(t, got, 2)
	assert.Equal(t, "Amlodipine", got[0].Assignment.MedicineName)
	assert.Equal(t, 2, got[0].Summary.Due)
	assert.Equal(t, 1, got[0].Summary.Upcoming)
	assert.Equal(t, 50.0, got[0].Summary.Adherence)
	assert.Equal(t, "Paracetamol", got[1].Assignment.MedicineName)
	assert.Equal(t, 2, got[1].Summary.Pending)
}

func TestWorkbook(t *testing.T) {
	assignments, reminders := fixtures()

	data, err := Workbook(assignments, reminders, now, time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{remindersSheet, summarySheet}, f.GetSheetList())

	rows, err := f.GetRows(remindersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, ReminderHeader, rows[0])
	// sorted by scheduled time
	assert.Equal(t, []string{"Paracetamol", "500mg", "2026-03-10 21:00", "scheduled", "", "0", "No", "No"}, rows[1])
	assert.Equal(t, []string{"Amlodipine", "5mg", "2026-03-11 08:00", "taken", "2026-03-11 08:05", "0", "Yes", "No"}, rows[2])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, SummaryHeader, summary[0])
	assert.Equal(t, []string{"Amlodipine", "2", "1", "1", "0", "0", "1", "50.0"}, summary[1])
}

func TestWorkbook_Empty(t *testing.T) {
	data, err := Workbook(nil, nil, now, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(remindersSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
