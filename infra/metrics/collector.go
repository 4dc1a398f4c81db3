package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/arbitrage/core/metrics"
	"github.com/kilianp07/arbitrage/infra/logger"
	"github.com/kilianp07/arbitrage/internal/eventbus"
)

// StartEventCollector subscribes to the step bus and forwards every event to
// sink. It drains the subscription until the bus is closed, or stops early
// when ctx is canceled. The returned channel is closed once the collector
// exits.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.StepEvent], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
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
				if err := sink.RecordStep(ev); err != nil {
					log.Warnf("record step %s: %v", ev.Record.Time, err)
				}
			}
		}
	}()
	return done
}
