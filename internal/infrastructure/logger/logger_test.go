package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/logistics/settlement/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromConfig(t *testing.T) {
	logCfg := config.LogConfig{Level: "debug", Format: "console", Output: "stderr"}

	cfg := FromConfig(logCfg, config.AppConfig{Name: "settlement", Env: "development"})
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.Equal(t, "settlement", cfg.Service)
	assert.Equal(t, "development", cfg.Environment)
	assert.NotEmpty(t, cfg.TimeFormat)

	cfg = FromConfig(logCfg, config.AppConfig{Name: "settlement", Env: "production"})
	assert.Equal(t, "json", cfg.Format)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"DEBUG", zapcore.DebugLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{" error ", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_RejectsUnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "app.log")})
	assert.Error(t, err)
}

func TestNew_JSONFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settlement.log")

	l, err := New(&Config{
		Level:       "warn",
		Format:      "json",
		Output:      path,
		Service:     "settlement",
		Environment: "test",
	})
	require.NoError(t, err)

	l.Info("dropped below level")
	l.Warn("rate sync failed", zap.String("provider", "cbr"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "rate sync failed", entry["msg"])
	assert.Equal(t, "cbr", entry["provider"])
	assert.Equal(t, "settlement", entry["service"])
	assert.Equal(t, "test", entry["env"])
	assert.Contains(t, entry, "caller")
	assert.Contains(t, entry, "time")
}

func TestNew_ConsoleOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	l, err := New(&Config{Level: "debug", Format: "console", Output: path})
	require.NoError(t, err)
	l.Debug("ledger entry written")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ledger entry written")
	assert.False(t, json.Valid(data))
}

func TestSync_Nop(t *testing.T) {
	assert.NoError(t, Sync(zap.NewNop()))
}
