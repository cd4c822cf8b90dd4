package metrics

import "github.com/kilianp07/carfuel/core/factory"

var sinkRegistry = factory.NewRegistry[QuerySink]()

// RegisterQuerySink adds a sink factory identified by name.
func RegisterQuerySink(name string, f factory.Factory[QuerySink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewQuerySink creates a QuerySink from the provided configuration.
func NewQuerySink(cfgs []factory.ModuleConfig) (QuerySink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]QuerySink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
