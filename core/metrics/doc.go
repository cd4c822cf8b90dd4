// Package metrics defines the sink interface used to record fuel query
// outcomes. Sinks like PromSink and InfluxSink live in infra/metrics and
// register themselves by type name; NewQuerySink builds one sink, or a
// MultiSink when several are configured.
package metrics
