package automatic

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAPIRoot is the Automatic REST API base URL.
const DefaultAPIRoot = "https://api.automatic.com"

// Config holds the Automatic API settings. Token is usually provided through
// the HUBOT_AUTOMATIC_TOKEN environment variable.
type Config struct {
	Token   string `json:"token"`
	APIRoot string `json:"api_root"`
	// TimeoutSeconds bounds a whole request. Zero keeps the transport default
	// which never times out.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.APIRoot == "" {
		c.APIRoot = DefaultAPIRoot
	}
	c.APIRoot = strings.TrimSuffix(c.APIRoot, "/")
	c.Token = strings.TrimSpace(c.Token)
}

// Validate checks the API root and timeout.
func (c Config) Validate() error {
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative")
	}
	if c.APIRoot == "" {
		return nil
	}
	u, err := url.Parse(c.APIRoot)
	if err != nil {
		return fmt.Errorf("invalid api_root: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_root must be an http(s) URL, got %q", c.APIRoot)
	}
	return nil
}

// Enabled reports whether a token is configured.
func (c Config) Enabled() bool { return strings.TrimSpace(c.Token) != "" }
