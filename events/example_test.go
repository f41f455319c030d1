package events_test

import (
	"context"
	"fmt"

	"github.com/saylorsolutions/intercept/events"
)

type healEvent struct {
	Target string
	Amount int
}

func (e *healEvent) Execute(_ context.Context, tag events.BusTag) error {
	fmt.Printf("%s heals %s for %d\n", tag.Name(), e.Target, e.Amount)
	return nil
}

func ExampleRegistry() {
	reg := events.NewRegistry[healEvent]()
	arena := events.NewBusTag("arena")

	// Before handlers can change the event.
	boost := reg.SubscribeBefore(arena, func(_ context.Context, _ events.BusTag, event *healEvent) error {
		event.Amount += 5
		return nil
	})
	// After handlers see the event as it was executed.
	reg.SubscribeAfter(arena, func(_ context.Context, _ events.BusTag, event healEvent) error {
		fmt.Println("healed", event.Target)
		return nil
	})

	_ = reg.ExecuteEvent(context.Background(), arena, &healEvent{Target: "knight", Amount: 10})
	boost.Dispose()
	_ = reg.ExecuteEvent(context.Background(), arena, &healEvent{Target: "knight", Amount: 10})

	// Handlers for the arena are never invoked for other buses.
	_ = reg.ExecuteEvent(context.Background(), events.NewBusTag("tavern"), &healEvent{Target: "bard", Amount: 1})

	// Output:
	// arena heals knight for 15
	// healed knight
	// arena heals knight for 10
	// healed knight
	// tavern heals bard for 1
}
