/*
Package bus connects bus instances to the per-event-kind registries of the events package.

A [Hub] owns exactly one registry per event kind, which replaces a hidden global registry per type with an explicit value that can be passed around.
[DefaultHub] is available for programs that really do want a single global instance.

Each [Bus] created by a [Hub] has its own [events.BusTag].
The generic functions [Before], [After], and [Dispatch] route through the hub's registry for the event kind, scoped to the bus:

	hub := bus.NewHub(logger)
	b, err := hub.NewBus("arena")
	if err != nil {
		return err
	}
	defer b.Close()

	sub, err := bus.Before[DamageEvent](b, func(ctx context.Context, tag events.BusTag, ev *DamageEvent) error {
		ev.Amount /= 2
		return nil
	})
	...
	err = bus.Dispatch(ctx, b, &DamageEvent{Amount: 10})

Closing a [Bus] disposes every subscription made through it.
Closing the [Hub] closes every bus it created.

[Module] provides a [Hub] to go.uber.org/fx applications.
*/
package bus
