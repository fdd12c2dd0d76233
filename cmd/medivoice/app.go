package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
	"github.com/shankar379/medivoice/internal/logger"
	"github.com/shankar379/medivoice/internal/reminder"
	"github.com/shankar379/medivoice/internal/scheduler"
	"github.com/shankar379/medivoice/internal/voice"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	loc       *time.Location
	repo      reminder.Repository
	svc       *reminder.Service
	announcer *voice.Announcer
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "medivoice")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	repo, err := openRepository(context.Background(), cfg, log)
	if err != nil {
		return nil, err
	}

	svc := reminder.NewService(repo,
		reminder.WithClock(reminder.SystemClock{Location: loc}),
		reminder.WithLogger(log.Named("reminder")),
		reminder.WithHorizonDays(cfg.Reminders.HorizonDays),
		reminder.WithMissedPolicy(reminder.MissedPolicy{
			Enabled: cfg.Reminders.Missed.Enabled,
			Grace:   cfg.MissedGrace(),
		}),
	)

	return &app{
		cfg:       cfg,
		logger:    log,
		loc:       loc,
		repo:      repo,
		svc:       svc,
		announcer: voice.NewAnnouncer(svc, cfg.Voice.DefaultLanguage),
	}, nil
}

func (a *app) Close() {
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// openRepository builds the store selected by store.driver.
func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (reminder.Repository, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		return openSQLite(cfg.Store.Path)

	case config.DriverRedis:
		return openRedis(ctx, cfg.Redis, log)

	case config.DriverMirror:
		primary, err := openSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		secondary, err := openRedis(ctx, cfg.Redis, log)
		if err != nil {
			primary.Close()
			return nil, err
		}
		return reminder.NewMirror(primary, secondary, log.Named("mirror")), nil
	}
	return nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
}

func openSQLite(path string) (*reminder.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := reminder.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*reminder.RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return reminder.NewRedisStore(client, cfg.KeyPrefix, log.Named("redis")), nil
}

// newGateway returns the speech player over the configured TTS command.
func (a *app) newGateway() *voice.Player {
	synth := voice.CommandSynthesizer{Command: a.cfg.Voice.Command, Args: a.cfg.Voice.Args}
	return voice.NewPlayer(synth, a.logger.Named("voice"))
}

// newNotifiers connects every configured notification channel. The returned
// func releases them.
func (a *app) newNotifiers() ([]scheduler.Notifier, func(), error) {
	var notifiers []scheduler.Notifier
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if a.cfg.TelegramEnabled() {
		notifiers = append(notifiers, scheduler.NewTelegramSender(
			a.cfg.Telegram.BaseURL, a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.logger.Named("telegram")))
	}

	if a.cfg.MQTTEnabled() {
		n, err := scheduler.NewMQTTNotifier(a.cfg.MQTT, a.logger.Named("mqtt"))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		notifiers = append(notifiers, n)
		closers = append(closers, n.Close)
	}

	if len(notifiers) == 0 && a.cfg.Scheduler.Notify {
		a.logger.Warn("no notification channel configured; set telegram or mqtt to push reminders")
	}
	return notifiers, closeAll, nil
}

// newScheduler builds the background scheduler.
func (a *app) newScheduler(gateway voice.Gateway) (*scheduler.Scheduler, func(), error) {
	notifiers, closeNotifiers, err := a.newNotifiers()
	if err != nil {
		return nil, nil, err
	}
	return scheduler.New(a.svc, gateway, notifiers, a.cfg, a.logger), closeNotifiers, nil
}
