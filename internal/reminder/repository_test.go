package reminder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseRepository runs the behaviour every Repository implementation
// must share.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	t.Run("assignments", func(t *testing.T) {
		days := 5
		end := Date{Year: 2026, Month: time.March, Day: 15}
		a := testAssignment("08:00", "20:00")
		a.ID = "assign-repo"
		a.PatientID = "patient-repo"
		a.Color = "White"
		a.DurationDays = &days
		a.EndDate = &end
		a.CreatedAt = created
		a.UpdatedAt = created
		require.NoError(t, repo.AppendAssignment(ctx, a))

		got, err := repo.GetAssignment(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.MedicineName, got.MedicineName)
		assert.Equal(t, a.Timings, got.Timings)
		assert.Equal(t, a.StartDate, got.StartDate)
		require.NotNil(t, got.EndDate)
		assert.Equal(t, end, *got.EndDate)
		require.NotNil(t, got.DurationDays)
		assert.Equal(t, 5, *got.DurationDays)
		assert.True(t, got.IsActive)
		assert.True(t, created.Equal(got.CreatedAt))

		list, err := repo.ListAssignments(ctx, a.PatientID)
		require.NoError(t, err)
		require.Len(t, list, 1)

		active, err := repo.ActiveAssignments(ctx)
		require.NoError(t, err)
		assert.Contains(t, assignmentIDs(active), a.ID)

		require.NoError(t, repo.SetAssignmentActive(ctx, a.ID, false, created.Add(time.Hour)))
		active, err = repo.ActiveAssignments(ctx)
		require.NoError(t, err)
		assert.NotContains(t, assignmentIDs(active), a.ID)

		got, err = repo.GetAssignment(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		_, err = repo.GetAssignment(ctx, "missing")
		assert.True(t, IsNotFound(err))
		assert.True(t, IsNotFound(repo.SetAssignmentActive(ctx, "missing", false, created)))
	})

	t.Run("reminders", func(t *testing.T) {
		reminders := []Reminder{
			{ID: "rem-2", AssignmentID: "a", PatientID: "patient-rem", ScheduledTime: created.Add(2 * time.Hour), Status: StatusScheduled},
			{ID: "rem-1", AssignmentID: "a", PatientID: "patient-rem", ScheduledTime: created.Add(-time.Hour), Status: StatusScheduled},
			{ID: "rem-3", AssignmentID: "a", PatientID: "patient-rem", ScheduledTime: created.Add(-2 * time.Hour), Status: StatusSnoozed, SnoozeCount: 1},
		}
		require.NoError(t, repo.AppendReminders(ctx, reminders))
		require.NoError(t, repo.AppendReminders(ctx, nil))

		list, err := repo.ListReminders(ctx, "patient-rem")
		require.NoError(t, err)
		assert.Equal(t, []string{"rem-3", "rem-1", "rem-2"}, reminderIDs(list))

		due, err := repo.DueReminders(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, []string{"rem-1"}, reminderIDs(due))

		stale, err := repo.StaleReminders(ctx, created.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, stale, "cutoff is exclusive")

		stale, err = repo.StaleReminders(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, []string{"rem-1"}, reminderIDs(stale))

		sent := true
		require.NoError(t, repo.UpdateReminder(ctx, "rem-1", ReminderUpdate{NotificationSent: &sent}))
		due, err = repo.DueReminders(ctx, created)
		require.NoError(t, err)
		assert.Empty(t, due)

		taken := StatusTaken
		takenAt := created.Add(5 * time.Minute)
		count := 3
		require.NoError(t, repo.UpdateReminder(ctx, "rem-1", ReminderUpdate{
			Status: &taken, TakenTime: &takenAt, SnoozeCount: &count,
		}))

		got, err := repo.GetReminder(ctx, "rem-1")
		require.NoError(t, err)
		assert.Equal(t, StatusTaken, got.Status)
		assert.Equal(t, 3, got.SnoozeCount)
		assert.True(t, got.NotificationSent)
		require.NotNil(t, got.TakenTime)
		assert.True(t, takenAt.Equal(*got.TakenTime))

		stale, err = repo.StaleReminders(ctx, created)
		require.NoError(t, err)
		assert.Empty(t, stale, "taken reminders are never stale")

		_, err = repo.GetReminder(ctx, "missing")
		assert.True(t, IsNotFound(err))
		assert.True(t, IsNotFound(repo.UpdateReminder(ctx, "missing", ReminderUpdate{Status: &taken})))
		assert.True(t, IsNotFound(repo.UpdateReminder(ctx, "missing", ReminderUpdate{})))
	})

	t.Run("profiles", func(t *testing.T) {
		_, err := repo.GetProfile(ctx, "patient-p")
		assert.True(t, IsNotFound(err))

		p := Profile{
			PatientID:     "patient-p",
			Name:          "Ravi",
			VoiceSettings: json.RawMessage(`{"language":"te-IN"}`),
			UpdatedAt:     created,
		}
		require.NoError(t, repo.SaveProfile(ctx, p))

		p.Name = "Ravi Kumar"
		require.NoError(t, repo.SaveProfile(ctx, p))

		got, err := repo.GetProfile(ctx, "patient-p")
		require.NoError(t, err)
		assert.Equal(t, "Ravi Kumar", got.Name)
		assert.JSONEq(t, `{"language":"te-IN"}`, string(got.VoiceSettings))
	})
}

func assignmentIDs(assignments []Assignment) []string {
	ids := make([]string, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ID
	}
	return ids
}

func reminderIDs(reminders []Reminder) []string {
	ids := make([]string, len(reminders))
	for i, r := range reminders {
		ids[i] = r.ID
	}
	return ids
}
