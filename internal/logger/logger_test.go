package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{
			name: "file only",
			config: Config{
				Level:      "info",
				File:       filepath.Join(os.TempDir(), "slackline-test.log"),
				MaxSize:    1,
				MaxBackups: 1,
				MaxAge:     1,
			},
		},
		{
			name: "stdout only",
			config: Config{
				Level:        "debug",
				EnableStdout: true,
			},
		},
		{
			name: "file and stdout",
			config: Config{
				Level:        "warn",
				File:         filepath.Join(os.TempDir(), "slackline-test.log"),
				EnableStdout: true,
			},
		},
		{
			name: "invalid level defaults to info",
			config: Config{
				Level:        "invalid",
				EnableStdout: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, InitLogger(tt.config))
			assert.NotNil(t, GetLogger())

			if tt.config.File != "" {
				os.Remove(tt.config.File)
			}
		})
	}
}

func TestInitLogger_CreatesLogDirectory(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "slackline.log")

	require.NoError(t, InitLogger(Config{Level: "info", File: logFile}))

	info, err := os.Stat(filepath.Dir(logFile))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGetLogger_ReturnsSameInstance(t *testing.T) {
	assert.Same(t, GetLogger(), GetLogger())
}

func TestLogFunctions(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	require.NoError(t, InitLogger(Config{Level: "info", EnableStdout: true}))

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	Infof("formatted %s", "info")
	Errorf("formatted %s", "error")

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)

	output := buf.String()
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
	assert.Contains(t, output, "formatted info")
	assert.Contains(t, output, "formatted error")
	// Debug message should not appear with info level
	assert.NotContains(t, output, "debug message")
}

func TestWithFields(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	require.NoError(t, InitLogger(Config{Level: "info", EnableStdout: true}))

	WithFields(logrus.Fields{
		"user":   "alice",
		"action": "login",
	}).Info("user-action")
	WithField("key", "value").Info("single-field")

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)

	output := buf.String()
	assert.Contains(t, output, "alice")
	assert.Contains(t, output, "login")
	assert.Contains(t, output, "value")
}

func TestLogLevelSetting(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"info level", "info", logrus.InfoLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"error level", "error", logrus.ErrorLevel},
		{"invalid level defaults to info", "invalid", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, InitLogger(Config{Level: tt.level}))
			assert.Equal(t, tt.expected, GetLogger().GetLevel())
		})
	}
}

func TestFormatterSetting(t *testing.T) {
	require.NoError(t, InitLogger(Config{Level: "debug"}))
	assert.IsType(t, &logrus.TextFormatter{}, GetLogger().Formatter)

	require.NoError(t, InitLogger(Config{Level: "info"}))
	assert.IsType(t, &logrus.JSONFormatter{}, GetLogger().Formatter)
}
