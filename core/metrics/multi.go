package metrics

import "errors"

// MultiSink fans out query records to multiple sinks.
type MultiSink struct {
	Sinks []QuerySink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...QuerySink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordQuery forwards the record to every sink. A failing sink does not
// prevent the others from recording; all errors are joined.
func (m *MultiSink) RecordQuery(rec QueryRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordQuery(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink implementing Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
