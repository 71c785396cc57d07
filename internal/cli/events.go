package cli

import (
	"github.com/rescale/rescale-space/internal/constants"
	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/logging"
)

// eventLogger copies engine diagnostics from a bus into the CLI log.
type eventLogger struct {
	bus  *events.EventBus
	done chan struct{}
}

// newEventLogger creates a bus and starts forwarding its log and error events
// to log. Stop closes the bus and waits for the forwarder.
func newEventLogger(log *logging.Logger) *eventLogger {
	el := &eventLogger{
		bus:  events.NewEventBus(constants.EventBusDefaultBuffer),
		done: make(chan struct{}),
	}
	ch := el.bus.Subscribe(events.EventLog, events.EventError)
	log = log.Component("events")

	go func() {
		defer close(el.done)
		for ev := range ch {
			switch e := ev.(type) {
			case *events.LogEvent:
				entry := log.Debug()
				switch e.Level {
				case events.InfoLevel:
					entry = log.Info()
				case events.WarnLevel:
					entry = log.Warn()
				case events.ErrorLevel:
					entry = log.Error()
				}
				entry.Str("source", e.Source).Err(e.Error).Msg(e.Message)
			case *events.ErrorEvent:
				log.Warn().Str("source", e.Source).Str("path", e.Path).Err(e.Error).Msg("Recovered error")
			}
		}
	}()
	return el
}

// Stop closes the bus and returns once every queued event was logged.
func (el *eventLogger) Stop() int64 {
	el.bus.Close()
	<-el.done
	return el.bus.GetDroppedEventCount()
}
