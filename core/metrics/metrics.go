package metrics

import (
	"strconv"
	"time"

	"github.com/kilianp07/carfuel/core/events"
)

// QueryRecord is one handled "car fuel" invocation.
type QueryRecord struct {
	Outcome   events.Outcome
	VehicleID string
	// FuelLevel is the reply value as sent to the chat.
	FuelLevel string
	Duration  time.Duration
	Error     string
	Time      time.Time
}

// FuelPercent parses FuelLevel. ok is false when the value is not numeric.
func (r QueryRecord) FuelPercent() (v float64, ok bool) {
	v, err := strconv.ParseFloat(r.FuelLevel, 64)
	return v, err == nil
}

// RecordFromEvent converts a bus event into a QueryRecord.
func RecordFromEvent(ev events.QueryEvent) QueryRecord {
	r := QueryRecord{
		Outcome:   ev.Outcome,
		VehicleID: ev.VehicleID,
		FuelLevel: ev.FuelLevel,
		Duration:  ev.Duration,
		Time:      ev.Time,
	}
	if ev.Err != nil {
		r.Error = ev.Err.Error()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	return r
}

// QuerySink records fuel query outcomes for observability purposes.
type QuerySink interface {
	RecordQuery(rec QueryRecord) error
}

// Closer is implemented by sinks holding connections.
type Closer interface {
	Close() error
}

// NopSink implements QuerySink with no-op methods.
type NopSink struct{}

func (NopSink) RecordQuery(QueryRecord) error { return nil }
