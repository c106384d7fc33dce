package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level", cfg: &config.LoggingConfig{Level: "debug"}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "chatty"}, wantErr: true},
		{
			name: "file output",
			cfg: &config.LoggingConfig{
				Level: "info",
				File:  filepath.Join(t.TempDir(), "logs", "scan.log"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"trace-ish", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "debug"}, &buf)
	require.NoError(t, err)

	log.WithField("run_id", "abc").
		WithError(errors.New("boom")).
		InfoWithFields("item failed", map[string]interface{}{"index": 3})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "item failed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(3), entry["index"])
	assert.Equal(t, config.AppName, entry["app"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestWithErrorNil(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&config.LoggingConfig{Level: "info"}, &buf)
	require.NoError(t, err)

	assert.Same(t, log, log.WithError(nil))
}

func TestTestLoggerCapture(t *testing.T) {
	tl := NewTestLogger()

	tl.Info("plain")
	tl.WithField("index", 4).Warn("with field")
	tl.WithFields(map[string]interface{}{"a": 1}).WithError(errors.New("bad")).Error("with error")

	messages := tl.GetMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, "INFO", messages[0].Level)
	assert.Equal(t, 4, messages[1].Fields["index"])
	assert.EqualError(t, messages[2].Error, "bad")
	assert.Equal(t, 1, messages[2].Fields["a"])

	assert.True(t, tl.HasMessage("with field"))
	assert.True(t, tl.HasError())
	assert.Len(t, tl.GetMessagesByLevel("WARN"), 1)
	assert.Contains(t, tl.String(), "[ERROR] with error")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogScanProgress(tl, 5, 20, 1.2)
	LogFlag(tl, "123", "offwarn 123 ...")
	LogDetection(tl, "captcha", 7, 1.0)

	messages := tl.GetMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, "25.0%", messages[0].Fields["percentage"])
	assert.Equal(t, "123", messages[1].Fields["subject_id"])
	assert.Equal(t, "captcha", messages[2].Fields["kind"])
	assert.Equal(t, "WARN", messages[2].Level)
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)
	t.Cleanup(func() { globalLogger = nil })

	Info("global info")
	ForRun("run-1", "scanner").Info("tagged")

	assert.True(t, tl.HasMessage("global info"))
	messages := tl.GetMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "run-1", messages[1].Fields["run_id"])
	assert.Equal(t, "scanner", messages[1].Fields["component"])
}

func TestInitializeDetached(t *testing.T) {
	t.Cleanup(func() { globalLogger = nil })

	path := filepath.Join(t.TempDir(), "scan.log")
	require.NoError(t, InitializeDetached(&config.LoggingConfig{Level: "info", File: path}))
	Info("kept off the terminal")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept off the terminal")

	require.NoError(t, InitializeDetached(&config.LoggingConfig{Level: "info"}))
	assert.Error(t, InitializeDetached(&config.LoggingConfig{Level: "chatty"}))
}

func TestNewRunIDUnique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
	assert.Len(t, NewRunID(), 36)
}

func TestNopLogger(t *testing.T) {
	n := NewNopLogger()
	n.WithField("a", 1).WithError(errors.New("x")).Info("nothing")
	assert.Nil(t, n.GetZerolog())
}
