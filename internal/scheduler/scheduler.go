package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/voice"
)

// Scheduler periodically extends reminder windows, applies the missed
// policy and delivers due reminders through notifiers and the voice gateway.
type Scheduler struct {
	svc       *reminder.Service
	announcer *voice.Announcer
	gateway   voice.Gateway
	notifiers []Notifier
	config    *config.Config
	logger    *zap.Logger
}

// New creates a new Scheduler. gateway may be nil when speaking is disabled.
func New(svc *reminder.Service, gateway voice.Gateway, notifiers []Notifier, cfg *config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		svc:       svc,
		announcer: voice.NewAnnouncer(svc, cfg.Voice.DefaultLanguage),
		gateway:   gateway,
		notifiers: notifiers,
		config:    cfg,
		logger:    logger.Named("scheduler"),
	}
}

// Run blocks and runs Tick() on interval + immediately on start.
// It exits when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.config.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %d", s.config.Scheduler.Interval)
	}
	interval := s.config.SchedulerInterval()

	s.logger.Info("started", zap.Duration("interval", interval), zap.Int("notifiers", len(s.notifiers)))

	// Run immediately on start
	s.Tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			if s.gateway != nil {
				s.gateway.Stop()
			}
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pass: re-expansion, missed sweep, then due deliveries.
func (s *Scheduler) Tick(ctx context.Context) {
	if s.config.Scheduler.ReExpand {
		n, err := s.svc.ReExpandAll(ctx)
		if err != nil {
			s.logger.Error("re-expansion failed", zap.Error(err))
		} else if n > 0 {
			s.logger.Info("reminders extended", zap.Int("created", n))
		}
	}

	if n, err := s.svc.MarkMissed(ctx); err != nil {
		s.logger.Error("missed sweep failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Info("reminders marked missed", zap.Int("count", n))
	}

	if !s.config.Scheduler.Notify && !s.config.Scheduler.Speak {
		return
	}

	due, err := s.svc.DueReminders(ctx)
	if err != nil {
		s.logger.Error("failed to load due reminders", zap.Error(err))
		return
	}
	if len(due) == 0 {
		s.logger.Debug("no due reminders")
		return
	}

	for _, r := range due {
		if ctx.Err() != nil {
			return
		}
		s.deliver(ctx, r)
	}
}

func (s *Scheduler) deliver(ctx context.Context, r reminder.Reminder) {
	log := s.logger.With(zap.String("reminder_id", r.ID), zap.String("patient_id", r.PatientID))
	r.ScheduledTime = r.ScheduledTime.In(s.svc.Now().Location())

	msg, err := s.announcer.ForReminder(ctx, r)
	if err != nil {
		log.Error("failed to compose reminder", zap.Error(err))
		return
	}

	delivered := true
	if s.config.Scheduler.Notify {
		n := Notification{
			Reminder:   r,
			Assignment: msg.Assignment,
			Message:    msg.Text,
			Language:   msg.Settings.Language,
		}
		for _, notifier := range s.notifiers {
			if err := notifier.Notify(ctx, n); err != nil {
				log.Warn("notification failed", zap.String("notifier", notifier.Name()), zap.Error(err))
				delivered = false
			}
		}
	}

	if s.config.Scheduler.Speak && s.gateway != nil && !r.VoicePlayed {
		if err := s.speak(ctx, msg.Text, msg.Settings); err != nil {
			log.Warn("voice reminder not played", zap.Error(err))
		} else if msg.Settings.Enabled {
			if err := s.svc.MarkVoicePlayed(ctx, r.ID); err != nil {
				log.Error("failed to mark voice played", zap.Error(err))
			}
		}
	}

	if !delivered {
		return
	}
	if err := s.svc.MarkNotificationSent(ctx, r.ID); err != nil {
		log.Error("failed to mark notification sent", zap.Error(err))
		return
	}
	log.Info("reminder delivered", zap.Time("scheduled_time", r.ScheduledTime))
}

// speak plays text and waits for it to finish so that consecutive due
// reminders do not cut each other off.
func (s *Scheduler) speak(ctx context.Context, text string, settings voice.Settings) error {
	done := make(chan error, 1)
	s.gateway.Speak(text, settings, func(err error) { done <- err })

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		s.gateway.Stop()
		<-done
		return errors.Join(voice.ErrStopped, ctx.Err())
	}
}
