package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 7, cfg.Reminders.HorizonDays)
	assert.False(t, cfg.Reminders.Missed.Enabled)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval())
	assert.Equal(t, time.Hour, cfg.MissedGrace())
	assert.Equal(t, "en-IN", cfg.Voice.DefaultLanguage)
	assert.Equal(t, "medivoice:", cfg.Redis.KeyPrefix)
	assert.False(t, cfg.TelegramEnabled())
	assert.False(t, cfg.MQTTEnabled())
	assert.NotContains(t, cfg.Store.Path, "~")
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  driver: mirror
  path: /tmp/medivoice.db
redis:
  addr: localhost:6379
reminders:
  timezone: Asia/Kolkata
  missed:
    enabled: true
scheduler:
  interval: 30
`), 0o644))

	t.Setenv("MEDIVOICE_SCHEDULER__INTERVAL", "15")
	t.Setenv("MEDIVOICE_TELEGRAM__BOT_TOKEN", "token")
	t.Setenv("MEDIVOICE_TELEGRAM__CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverMirror, cfg.Store.Driver)
	assert.Equal(t, "/tmp/medivoice.db", cfg.Store.Path)
	assert.True(t, cfg.Reminders.Missed.Enabled)
	assert.Equal(t, 60, cfg.Reminders.Missed.GraceMinutes, "defaults survive partial sections")
	assert.Equal(t, 15*time.Second, cfg.SchedulerInterval())
	assert.True(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"unknown driver":      func(c *Config) { c.Store.Driver = "postgres" },
		"redis without addr":  func(c *Config) { c.Store.Driver = DriverRedis },
		"sqlite without path": func(c *Config) { c.Store.Path = "" },
		"zero horizon":        func(c *Config) { c.Reminders.HorizonDays = 0 },
		"bad timezone":        func(c *Config) { c.Reminders.Timezone = "Mars/Olympus" },
		"negative grace":      func(c *Config) { c.Reminders.Missed.GraceMinutes = -1 },
		"zero interval":       func(c *Config) { c.Scheduler.Interval = 0 },
		"bad qos":             func(c *Config) { c.MQTT.QoS = 3 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".medivoice", "x.db"), ExpandPath("~/.medivoice/x.db"))
	assert.Equal(t, "/abs/x.db", ExpandPath("/abs/x.db"))
	assert.Equal(t, "", ExpandPath(""))
}
