package events

import "time"

// Outcome classifies a fuel query invocation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	// OutcomeBusy is used when the invocation was rejected because another
	// query was in flight.
	OutcomeBusy Outcome = "busy"
)

// QueryEvent is published once per handled invocation.
type QueryEvent struct {
	Outcome   Outcome
	VehicleID string
	// FuelLevel is the rendered fuel_level_percent on success.
	FuelLevel string
	Err       error
	Duration  time.Duration
	Time      time.Time
}
