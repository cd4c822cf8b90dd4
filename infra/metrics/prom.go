package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/carfuel/core/events"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
)

// PromSink records fuel queries in Prometheus metrics.
type PromSink struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	level    *prometheus.GaugeVec
}

// NewPromSink registers query metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (coremetrics.QuerySink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	queries, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fuel_queries_total",
		Help: "Total number of car fuel invocations by outcome",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fuel_query_duration_seconds",
		Help:    "Time spent fetching the vehicle list and replying",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	level, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fuel_level_percent",
		Help: "Last reported fuel level per vehicle",
	}, []string{"vehicle_id"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{queries: queries, duration: duration, level: level}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordQuery updates the counters for one invocation.
func (s *PromSink) RecordQuery(rec coremetrics.QueryRecord) error {
	outcome := string(rec.Outcome)
	s.queries.WithLabelValues(outcome).Inc()
	if rec.Outcome == events.OutcomeBusy {
		return nil
	}
	s.duration.WithLabelValues(outcome).Observe(rec.Duration.Seconds())
	if v, ok := rec.FuelPercent(); ok && rec.Outcome == events.OutcomeSuccess {
		s.level.WithLabelValues(rec.VehicleID).Set(v)
	}
	return nil
}
