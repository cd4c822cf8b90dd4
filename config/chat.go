package config

import (
	"fmt"
	"strings"
)

// Chat adapters.
const (
	AdapterConsole = "console"
	AdapterMQTT    = "mqtt"
)

// ChatConfig selects how the robot talks to users.
type ChatConfig struct {
	// Adapter is "console" or "mqtt".
	Adapter string `json:"adapter"`
	// Name is the robot name messages must be addressed to.
	Name string `json:"name"`
	// User is reported as the sender of console messages.
	User string `json:"user"`
}

// SetDefaults applies sane defaults.
func (c *ChatConfig) SetDefaults() {
	c.Adapter = strings.ToLower(strings.TrimSpace(c.Adapter))
	if c.Adapter == "" {
		c.Adapter = AdapterConsole
	}
	if c.Name == "" {
		c.Name = "carfuel"
	}
	if c.User == "" {
		c.User = "Shell"
	}
}

// Validate checks the adapter name.
func (c ChatConfig) Validate() error {
	switch c.Adapter {
	case AdapterConsole, AdapterMQTT:
		return nil
	default:
		return fmt.Errorf("unknown chat adapter %s", c.Adapter)
	}
}
