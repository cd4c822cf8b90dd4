package metrics

import (
	"context"

	"github.com/kilianp07/carfuel/core/events"
	coremetrics "github.com/kilianp07/carfuel/core/metrics"
	"github.com/kilianp07/carfuel/infra/logger"
	"github.com/kilianp07/carfuel/internal/eventbus"
)

// StartQueryCollector subscribes to the bus and records every QueryEvent in
// sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once it has stopped.
func StartQueryCollector(ctx context.Context, bus *eventbus.TypedBus[events.QueryEvent], sink coremetrics.QuerySink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordQuery(coremetrics.RecordFromEvent(ev)); err != nil {
					log.Warnf("record query: %v", err)
				}
			}
		}
	}()
	return done
}
