package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carfuel/infra/automatic"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `automatic:
  token: "tok"
  timeout_seconds: 10
chat:
  adapter: "mqtt"
  name: "hubot"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  use_tls: false
metrics:
  listen: ":2112"
  sinks:
    - type: "nop"
sentry:
  environment: "test"
log_level: "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"automatic.token", cfg.Automatic.Token, "tok"},
		{"automatic.api_root", cfg.Automatic.APIRoot, automatic.DefaultAPIRoot},
		{"automatic.timeout_seconds", cfg.Automatic.TimeoutSeconds, 10},
		{"chat.adapter", cfg.Chat.Adapter, AdapterMQTT},
		{"chat.name", cfg.Chat.Name, "hubot"},
		{"chat.user", cfg.Chat.User, "Shell"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"in_topic", cfg.MQTT.InTopic, "carfuel/chat/in"},
		{"use_tls", cfg.MQTT.UseTLS, false},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.listen", cfg.Metrics.Listen, ":2112"},
		{"sentry.environment", cfg.Sentry.Environment, "test"},
		{"log_level", cfg.LogLevel, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, AdapterConsole, cfg.Chat.Adapter)
	assert.Equal(t, "carfuel", cfg.Chat.Name)
	assert.Equal(t, automatic.DefaultAPIRoot, cfg.Automatic.APIRoot)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.MQTT.Broker)
}

func TestLoad_HubotTokenEnv(t *testing.T) {
	t.Setenv("HUBOT_AUTOMATIC_TOKEN", "  secret  ")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Automatic.Token)
	assert.True(t, cfg.Automatic.Enabled())
}

func TestLoad_HubotEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "config.json", `{"automatic":{"token":"file","api_root":"http://localhost:8080/"}}`)
	t.Setenv("HUBOT_AUTOMATIC_TOKEN", "env")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Automatic.Token)
	assert.Equal(t, "http://localhost:8080", cfg.Automatic.APIRoot)
}

func TestLoad_KEnvOverride(t *testing.T) {
	t.Setenv("K_CHAT__ADAPTER", "mqtt")
	t.Setenv("K_MQTT__BROKER", "tcp://broker:1883")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, AdapterMQTT, cfg.Chat.Adapter)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"format", "config.toml", "x = 1"},
		{"adapter", "config.yaml", "chat:\n  adapter: irc\n"},
		{"mqtt broker", "config.yaml", "chat:\n  adapter: mqtt\n"},
		{"api root", "config.yaml", "automatic:\n  api_root: ftp://x\n"},
		{"log level", "config.yaml", "log_level: loud\n"},
		{"sink type", "config.yaml", "metrics:\n  sinks:\n    - conf: {}\n"},
		{"sample rate", "config.yaml", "sentry:\n  traces_sample_rate: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
