package metrics

import (
	"fmt"

	"github.com/kilianp07/carfuel/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Listen is the address of the Prometheus /metrics endpoint. Empty
	// disables the endpoint.
	Listen string `json:"listen"`
}

// Validate checks that every sink has a type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics sink %d: type is required", i)
		}
	}
	return nil
}
