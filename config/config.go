package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/carfuel/core/metrics"
	"github.com/kilianp07/carfuel/infra/automatic"
	"github.com/kilianp07/carfuel/infra/mqtt"
)

// Environment prefixes read by Load.
const (
	OverridePrefix  = "K_"
	AutomaticPrefix = "HUBOT_AUTOMATIC_"
)

type Config struct {
	Automatic automatic.Config `json:"automatic"`
	Chat      ChatConfig       `json:"chat"`
	MQTT      mqtt.Config      `json:"mqtt"`
	Metrics   metrics.Config   `json:"metrics"`
	Sentry    SentryConfig     `json:"sentry"`
	LogLevel  string           `json:"log_level"`
}

// Load reads the configuration file at path, if any, then applies
// environment overrides. K_MQTT__BROKER sets mqtt.broker and
// HUBOT_AUTOMATIC_TOKEN sets automatic.token.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(OverridePrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(OverridePrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(AutomaticPrefix, ".", func(s string) string {
		return "automatic." + strings.ToLower(strings.TrimPrefix(s, AutomaticPrefix))
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Automatic.SetDefaults()
	c.Chat.SetDefaults()
	if c.Chat.Adapter == AdapterMQTT {
		c.MQTT.SetDefaults()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks every section in use.
func (c Config) Validate() error {
	if err := c.Automatic.Validate(); err != nil {
		return fmt.Errorf("automatic: %w", err)
	}
	if err := c.Chat.Validate(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if c.Chat.Adapter == AdapterMQTT {
		if err := c.MQTT.Validate(); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Sentry.Validate(); err != nil {
		return fmt.Errorf("sentry: %w", err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("unknown log_level %s", c.LogLevel)
	}
	return nil
}
