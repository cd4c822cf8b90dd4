package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carfuel/core/events"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
	"github.com/kilianp07/carfuel/infra/logger"
	"github.com/kilianp07/carfuel/internal/eventbus"
)

type recordingSink struct {
	mu   sync.Mutex
	recs []coremetrics.QueryRecord
	err  error
}

func (s *recordingSink) RecordQuery(r coremetrics.QueryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, r)
	return s.err
}

func (s *recordingSink) records() []coremetrics.QueryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]coremetrics.QueryRecord(nil), s.recs...)
}

func TestStartQueryCollector(t *testing.T) {
	bus := eventbus.NewTyped[events.QueryEvent](4)
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := StartQueryCollector(ctx, bus, sink, logger.NopLogger{})

	bus.Publish(events.QueryEvent{Outcome: events.OutcomeSuccess, FuelLevel: "42", VehicleID: "C_1"})
	bus.Publish(events.QueryEvent{Outcome: events.OutcomeError, Err: errors.New("epic fail")})

	require.Eventually(t, func() bool { return len(sink.records()) == 2 }, time.Second, 10*time.Millisecond)
	recs := sink.records()
	assert.Equal(t, "42", recs[0].FuelLevel)
	assert.Equal(t, "epic fail", recs[1].Error)
	assert.False(t, recs[1].Time.IsZero())

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after bus close")
	}
}

func TestStartQueryCollector_SinkErrorKeepsRunning(t *testing.T) {
	bus := eventbus.NewTyped[events.QueryEvent](4)
	sink := &recordingSink{err: errors.New("down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartQueryCollector(ctx, bus, sink, nil)

	bus.Publish(events.QueryEvent{Outcome: events.OutcomeBusy})
	bus.Publish(events.QueryEvent{Outcome: events.OutcomeBusy})
	require.Eventually(t, func() bool { return len(sink.records()) == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after cancel")
	}
}

func TestStartQueryCollector_NilSink(t *testing.T) {
	done := StartQueryCollector(context.Background(), eventbus.NewTyped[events.QueryEvent](1), nil, nil)
	_, open := <-done
	assert.False(t, open)
}
