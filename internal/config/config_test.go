package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
slack:
  token: xoxb-123
  base_url: http://localhost:9999/api/
  heartbeat_interval: 30s
server:
  addr: ":9090"
  path: /hooks/slack
logging:
  level: debug
  file: /tmp/slackline.log
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "xoxb-123", cfg.Slack.Token)
	assert.Equal(t, "http://localhost:9999/api/", cfg.Slack.BaseURL)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/hooks/slack", cfg.Server.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)

	interval, err := cfg.Heartbeat()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, interval)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
slack:
  token: xoxb-123
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.Slack.BaseURL)
	assert.Equal(t, DefaultListenAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultWebhookPath, cfg.Server.Path)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultLogMaxSize, cfg.Logging.MaxSize)
	assert.True(t, cfg.Logging.Compress)
	assert.True(t, cfg.Logging.EnableStdout)

	interval, err := cfg.Heartbeat()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, interval)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SLACKLINE_TEST_TOKEN", "xoxb-from-env")

	path := writeConfig(t, `
slack:
  token: ${SLACKLINE_TEST_TOKEN}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "xoxb-from-env", cfg.Slack.Token)
}

func TestLoad_MissingEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, `
slack:
  token: ${SLACKLINE_TEST_UNSET_TOKEN}
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SLACKLINE_TEST_UNSET_TOKEN")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "slack: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsRelativeWebhookPath(t *testing.T) {
	path := writeConfig(t, `
server:
  path: hooks/slack
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with /")
}

func TestHeartbeat(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty disables", raw: "", want: 0},
		{name: "zero disables", raw: "0", want: 0},
		{name: "duration", raw: "45s", want: 45 * time.Second},
		{name: "minutes", raw: "2m", want: 2 * time.Minute},
		{name: "garbage", raw: "often", wantErr: true},
		{name: "negative", raw: "-10s", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Slack: SlackConfig{HeartbeatInterval: tt.raw}}
			got, err := cfg.Heartbeat()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_RejectsInvalidHeartbeat(t *testing.T) {
	path := writeConfig(t, `
slack:
  heartbeat_interval: sometimes
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_interval")
}
