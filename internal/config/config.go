package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates nesting levels: MEDIVOICE_SCHEDULER__INTERVAL sets scheduler.interval.
const EnvPrefix = "MEDIVOICE_"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMirror = "mirror"
)

type Config struct {
	Store     StoreConfig     `koanf:"store"`
	Redis     RedisConfig     `koanf:"redis"`
	Reminders RemindersConfig `koanf:"reminders"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	MQTT      MQTTConfig      `koanf:"mqtt"`
	Voice     VoiceConfig     `koanf:"voice"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
}

type StoreConfig struct {
	Driver string `koanf:"driver"` // sqlite, redis or mirror (sqlite primary, redis secondary)
	Path   string `koanf:"path"`
}

type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

type RemindersConfig struct {
	HorizonDays int          `koanf:"horizon_days"`
	Timezone    string       `koanf:"timezone"` // IANA name; empty means local time
	Missed      MissedConfig `koanf:"missed"`
}

type MissedConfig struct {
	Enabled      bool `koanf:"enabled"`
	GraceMinutes int  `koanf:"grace_minutes"`
}

type SchedulerConfig struct {
	Enabled  bool `koanf:"enabled"`
	Interval int  `koanf:"interval"` // seconds
	ReExpand bool `koanf:"re_expand"`
	Notify   bool `koanf:"notify"`
	Speak    bool `koanf:"speak"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
	BaseURL  string `koanf:"base_url"`
}

type MQTTConfig struct {
	Broker   string `koanf:"broker"`
	ClientID string `koanf:"client_id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Topic    string `koanf:"topic"` // "%s" is replaced by the patient id
	QoS      int    `koanf:"qos"`
}

type VoiceConfig struct {
	Command         string   `koanf:"command"`
	Args            []string `koanf:"args"`
	DefaultLanguage string   `koanf:"default_language"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = ExpandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.Path = ExpandPath(cfg.Store.Path)

	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverMirror:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	case DriverRedis:
	default:
		return fmt.Errorf("unknown store driver: %s (supported: %s, %s, %s)",
			c.Store.Driver, DriverSQLite, DriverRedis, DriverMirror)
	}

	if c.Store.Driver != DriverSQLite && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the %s driver", c.Store.Driver)
	}

	if c.Reminders.HorizonDays <= 0 {
		return fmt.Errorf("reminders.horizon_days must be positive")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Reminders.Missed.GraceMinutes < 0 {
		return fmt.Errorf("reminders.missed.grace_minutes must not be negative")
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}

	return nil
}

// Location resolves reminders.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Reminders.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminders.timezone %q: %w", c.Reminders.Timezone, err)
	}
	return loc, nil
}

// SchedulerInterval returns scheduler.interval as a duration.
func (c *Config) SchedulerInterval() time.Duration {
	return time.Duration(c.Scheduler.Interval) * time.Second
}

// MissedGrace returns reminders.missed.grace_minutes as a duration.
func (c *Config) MissedGrace() time.Duration {
	return time.Duration(c.Reminders.Missed.GraceMinutes) * time.Minute
}

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// MQTTEnabled reports whether an MQTT broker is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
