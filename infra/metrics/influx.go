package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/carfuel/core/metrics"
	"github.com/kilianp07/carfuel/infra/logger"
)

// InfluxSink writes fuel queries to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.QuerySink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordQuery writes one fuel_query point.
func (s *InfluxSink) RecordQuery(rec coremetrics.QueryRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, queryPoint(rec))
}

func queryPoint(rec coremetrics.QueryRecord) *write.Point {
	p := write.NewPointWithMeasurement("fuel_query").
		AddTag("outcome", string(rec.Outcome)).
		AddTag("component", "fuel")
	if rec.VehicleID != "" {
		p = p.AddTag("vehicle_id", rec.VehicleID)
	}
	p = p.AddField("duration_ms", round3(rec.Duration.Seconds()*1000))
	if v, ok := rec.FuelPercent(); ok {
		p = p.AddField("fuel_level_percent", round3(v))
	} else if rec.FuelLevel != "" {
		p = p.AddField("fuel_level", rec.FuelLevel)
	}
	if rec.Error != "" {
		p = p.AddField("error", rec.Error)
	}
	return p.SetTime(rec.Time)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
