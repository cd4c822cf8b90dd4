package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/carfuel/core/factory"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
)

// init registers built-in query sinks.
func init() {
	_ = coremetrics.RegisterQuerySink("nop", func(map[string]any) (coremetrics.QuerySink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterQuerySink("prometheus", func(map[string]any) (coremetrics.QuerySink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterQuerySink("influx", func(conf map[string]any) (coremetrics.QuerySink, error) {
		var c struct {
			URL    string `json:"url"`
			Token  string `json:"token"`
			Org    string `json:"org"`
			Bucket string `json:"bucket"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
