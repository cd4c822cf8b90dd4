// Package events defines the events emitted on the event bus.
//
// Available event types:
//   - QueryEvent: outcome of one "car fuel" invocation
package events
