package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "medivoice:", zap.NewNop())
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_Repository(t *testing.T) {
	store, _ := newTestRedisStore(t)
	exerciseRepository(t, store)
}

func TestRedisStore_ScheduledIndexFollowsStatus(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendReminders(ctx, []Reminder{
		{ID: "r-1", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at, Status: StatusScheduled},
	}))

	members, err := mr.ZMembers("medivoice:reminders:scheduled")
	require.NoError(t, err)
	assert.Equal(t, []string{"r-1"}, members)

	snoozed := StatusSnoozed
	require.NoError(t, store.UpdateReminder(ctx, "r-1", ReminderUpdate{Status: &snoozed}))

	members, _ = mr.ZMembers("medivoice:reminders:scheduled")
	assert.Empty(t, members, "snoozed reminder left in the scheduled index")
	assert.True(t, mr.Exists("medivoice:patients:p-1:reminders"))
}

func TestRedisStore_SkipsDanglingIndexEntries(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()
	at := time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.AppendReminders(ctx, []Reminder{
		{ID: "r-1", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at, Status: StatusScheduled},
		{ID: "r-2", AssignmentID: "a-1", PatientID: "p-1", ScheduledTime: at.Add(time.Hour), Status: StatusScheduled},
	}))
	mr.Del("medivoice:reminders:r-1")

	list, err := store.ListReminders(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r-2"}, reminderIDs(list))
}

func TestRedisStore_ConnectionError(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.GetReminder(context.Background(), "r-1")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
}
