package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/voice"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, n)
	return nil
}

// instantGateway completes every playback immediately.
type instantGateway struct {
	mu     sync.Mutex
	spoken []string
	err    error
}

func (g *instantGateway) Speak(text string, _ voice.Settings, onDone func(error)) {
	g.mu.Lock()
	g.spoken = append(g.spoken, text)
	err := g.err
	g.mu.Unlock()
	onDone(err)
}

func (g *instantGateway) Stop() {}

func testConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{Interval: 60, ReExpand: true, Notify: true, Speak: true},
		Voice:     config.VoiceConfig{DefaultLanguage: "en-IN"},
	}
}

func setup(t *testing.T, opts ...reminder.ServiceOption) (*reminder.Service, *testClock) {
	t.Helper()
	return setupIn(t, time.UTC, opts...)
}

func setupIn(t *testing.T, loc *time.Location, opts ...reminder.ServiceOption) (*reminder.Service, *testClock) {
	t.Helper()
	store, err := reminder.NewStore(filepath.Join(t.TempDir(), "scheduler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Date(2026, time.March, 10, 7, 0, 0, 0, loc)}
	svc := reminder.NewService(store, append([]reminder.ServiceOption{reminder.WithClock(clock)}, opts...)...)
	return svc, clock
}

func assign(t *testing.T, svc *reminder.Service, timings ...string) *reminder.Assignment {
	t.Helper()
	a, _, err := svc.CreateAssignment(context.Background(), reminder.Assignment{
		PatientID:    "patient-1",
		MedicineName: "Metformin",
		Dosage:       "250mg",
		Timings:      timings,
		StartDate:    reminder.Date{Year: 2026, Month: time.March, Day: 10},
	})
	require.NoError(t, err)
	return a
}

func TestTick_DeliversDueReminders(t *testing.T) {
	svc, clock := setup(t)
	ctx := context.Background()
	assign(t, svc, "08:00", "20:00")

	notifier := &recordingNotifier{}
	gateway := &instantGateway{}
	s := New(svc, gateway, []Notifier{notifier}, testConfig(), zap.NewNop())

	s.Tick(ctx)
	assert.Empty(t, notifier.sent, "nothing due at 07:00")

	clock.advance(75 * time.Minute)
	s.Tick(ctx)
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, "Metformin", n.Assignment.MedicineName)
	assert.Equal(t, "en-IN", n.Language)
	assert.Equal(t, "It's time to take your medicine: Metformin, 250mg", n.Message)
	assert.Equal(t, []string{n.Message}, gateway.spoken)

	r, err := svc.GetReminder(ctx, n.Reminder.ID)
	require.NoError(t, err)
	assert.True(t, r.NotificationSent)
	assert.True(t, r.VoicePlayed)

	s.Tick(ctx)
	assert.Len(t, notifier.sent, 1, "reminder delivered twice")
}

func TestTick_UsesProfileLanguage(t *testing.T) {
	svc, clock := setup(t)
	ctx := context.Background()
	assign(t, svc, "08:00")

	settings := voice.DefaultSettings()
	settings.Language = "ta-IN"
	_, err := svc.SaveProfile(ctx, reminder.Profile{PatientID: "patient-1", Name: "Meena", VoiceSettings: settings.Raw()})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	s := New(svc, nil, []Notifier{notifier}, testConfig(), zap.NewNop())

	clock.advance(time.Hour)
	s.Tick(ctx)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ta-IN", notifier.sent[0].Language)
	assert.Contains(t, notifier.sent[0].Message, "வணக்கம் Meena")
}

func TestTick_FailedNotificationIsRetried(t *testing.T) {
	svc, clock := setup(t)
	ctx := context.Background()
	assign(t, svc, "08:00")

	notifier := &recordingNotifier{err: errors.New("bot blocked")}
	gateway := &instantGateway{err: &voice.PlaybackError{Err: errors.New("no device")}}
	s := New(svc, gateway, []Notifier{notifier}, testConfig(), zap.NewNop())

	clock.advance(time.Hour)
	s.Tick(ctx)

	due, err := svc.DueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.False(t, due[0].VoicePlayed)

	notifier.err = nil
	gateway.err = nil
	s.Tick(ctx)
	assert.Len(t, notifier.sent, 1)
	assert.Len(t, gateway.spoken, 2, "failed playback is retried once")

	due, err = svc.DueReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestTick_NotificationRetryDoesNotRepeatVoice(t *testing.T) {
	svc, clock := setup(t)
	ctx := context.Background()
	assign(t, svc, "08:00")

	notifier := &recordingNotifier{err: errors.New("telegram down")}
	gateway := &instantGateway{}
	s := New(svc, gateway, []Notifier{notifier}, testConfig(), zap.NewNop())

	clock.advance(time.Hour)
	for i := 0; i < 5; i++ {
		s.Tick(ctx)
		clock.advance(time.Minute)
	}
	assert.Len(t, gateway.spoken, 1)

	due, err := svc.DueReminders(ctx)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, due[0].VoicePlayed)
	assert.False(t, due[0].NotificationSent)

	notifier.err = nil
	s.Tick(ctx)
	assert.Len(t, notifier.sent, 1)
	assert.Len(t, gateway.spoken, 1)
}

func TestTick_UsesServiceLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	svc, clock := setupIn(t, loc)
	ctx := context.Background()
	assign(t, svc, "08:00", "23:30")

	notifier := &recordingNotifier{}
	s := New(svc, nil, []Notifier{notifier}, testConfig(), zap.NewNop())

	s.Tick(ctx)
	assert.Empty(t, notifier.sent, "02:30 UTC reminder is not due at 07:00 IST")

	clock.advance(75 * time.Minute)
	s.Tick(ctx)
	require.Len(t, notifier.sent, 1)
	at := notifier.sent[0].Reminder.ScheduledTime
	assert.Equal(t, loc, at.Location())
	assert.Equal(t, 8, at.Hour())
	assert.Equal(t, 10, at.Day())
}

func TestTick_ReExpandsAndMarksMissed(t *testing.T) {
	svc, clock := setup(t, reminder.WithMissedPolicy(reminder.MissedPolicy{Enabled: true, Grace: 30 * time.Minute}))
	ctx := context.Background()
	a := assign(t, svc, "08:00")

	cfg := testConfig()
	cfg.Scheduler.Notify = false
	cfg.Scheduler.Speak = false
	s := New(svc, nil, nil, cfg, zap.NewNop())

	clock.advance(3 * 24 * time.Hour)
	s.Tick(ctx)

	reminders, err := svc.ListReminders(ctx, a.PatientID)
	require.NoError(t, err)
	assert.Len(t, reminders, 10)

	missed := 0
	for _, r := range reminders {
		if r.Status == reminder.StatusMissed {
			missed++
		}
	}
	assert.Equal(t, 3, missed)
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc, _ := setup(t)
	s := New(svc, nil, nil, testConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestRun_RejectsZeroInterval(t *testing.T) {
	svc, _ := setup(t)
	cfg := testConfig()
	cfg.Scheduler.Interval = 0

	err := New(svc, nil, nil, cfg, zap.NewNop()).Run(context.Background())
	assert.Error(t, err)
}
