package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/carfuel/core/events"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
)

func TestPromSink_RecordQuery(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	recs := []coremetrics.QueryRecord{
		{Outcome: events.OutcomeSuccess, VehicleID: "C_1", FuelLevel: "42", Duration: 100 * time.Millisecond},
		{Outcome: events.OutcomeError, Error: "epic fail", Duration: 50 * time.Millisecond},
		{Outcome: events.OutcomeBusy},
		{Outcome: events.OutcomeBusy},
	}
	for _, r := range recs {
		require.NoError(t, sink.RecordQuery(r))
	}

	expected := `
# HELP fuel_queries_total Total number of car fuel invocations by outcome
# TYPE fuel_queries_total counter
fuel_queries_total{outcome="busy"} 2
fuel_queries_total{outcome="error"} 1
fuel_queries_total{outcome="success"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.queries, strings.NewReader(expected)))
	assert.Equal(t, 2, testutil.CollectAndCount(sink.duration))
	assert.Equal(t, 42.0, testutil.ToFloat64(sink.level.WithLabelValues("C_1")))
}

func TestPromSink_NonNumericLevelSkipsGauge(t *testing.T) {
	sink, err := NewPromSinkWithRegistry(prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, sink.RecordQuery(coremetrics.QueryRecord{
		Outcome: events.OutcomeSuccess, VehicleID: "C_1", FuelLevel: "full",
	}))
	assert.Equal(t, 0, testutil.CollectAndCount(sink.level))
}

func TestNewPromSinkWithRegistry_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordQuery(coremetrics.QueryRecord{Outcome: events.OutcomeBusy}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.queries.WithLabelValues("busy")))
}
