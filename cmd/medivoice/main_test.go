package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shankar379/medivoice/internal/config"
	"github.com/shankar379/medivoice/internal/reminder"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOpenRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	ctx := context.Background()

	tests := []struct {
		driver string
		want   interface{}
	}{
		{config.DriverSQLite, &reminder.Store{}},
		{config.DriverRedis, &reminder.RedisStore{}},
		{config.DriverMirror, &reminder.Mirror{}},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{
				Store: config.StoreConfig{Driver: tt.driver, Path: filepath.Join(dir, tt.driver, "medivoice.db")},
				Redis: config.RedisConfig{Addr: mr.Addr(), KeyPrefix: "test:"},
			}
			repo, err := openRepository(ctx, cfg, zap.NewNop())
			require.NoError(t, err)
			defer repo.Close()
			assert.IsType(t, tt.want, repo)
		})
	}
}

func TestOpenRepository_RedisUnavailable(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.DriverRedis},
		Redis: config.RedisConfig{Addr: "127.0.0.1:1"},
	}
	_, err := openRepository(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestExportAndToday(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, "store:\n  driver: sqlite\n  path: "+filepath.Join(dir, "m.db")+"\nlog:\n  level: error\n")
	out := filepath.Join(dir, "report.xlsx")

	stdout, err := run(t, "--config", cfgPath, "export", "--patient", "p-1", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+out+" (0 reminders, adherence 0.0%)")
	_, err = os.Stat(out)
	assert.NoError(t, err)

	stdout, err = run(t, "--config", cfgPath, "today", "--patient", "p-1", "--plain")
	require.NoError(t, err)
	assert.Contains(t, stdout, "_No pending reminders._")
}

func TestInvalidConfig(t *testing.T) {
	cfgPath := writeConfig(t, "store:\n  driver: postgres\n")

	_, err := run(t, "--config", cfgPath, "today", "--patient", "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store driver")
}

func TestVoiceTest_UnsupportedLanguage(t *testing.T) {
	_, err := run(t, "voice-test", "--lang", "fr-FR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestLanguages(t *testing.T) {
	stdout, err := run(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ta-IN\n")
}
