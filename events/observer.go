package events

import "time"

// DispatchStats summarizes one call to [Registry.ExecuteEvent].
type DispatchStats struct {
	Before   int           // Before is the number of before handlers that were invoked.
	After    int           // After is the number of after handlers that were invoked.
	Executed bool          // Executed is true if the event's own Execute method ran.
	Elapsed  time.Duration // Elapsed is measured with the registry's clock.
	Err      error         // Err is the error returned to the caller, if any.
}

// Observer is notified of registry activity, typically to record metrics.
// Methods are called synchronously without the registry lock held, so they should return quickly.
// Nothing is reported for a dispatch that panics.
type Observer interface {
	HandlerAdded(kind string, phase Phase, tag BusTag)
	HandlerRemoved(kind string, phase Phase, tag BusTag)
	EventDispatched(kind string, tag BusTag, stats DispatchStats)
}

type observers []Observer

func (o observers) HandlerAdded(kind string, phase Phase, tag BusTag) {
	for _, obs := range o {
		obs.HandlerAdded(kind, phase, tag)
	}
}

func (o observers) HandlerRemoved(kind string, phase Phase, tag BusTag) {
	for _, obs := range o {
		obs.HandlerRemoved(kind, phase, tag)
	}
}

func (o observers) EventDispatched(kind string, tag BusTag, stats DispatchStats) {
	for _, obs := range o {
		obs.EventDispatched(kind, tag, stats)
	}
}
