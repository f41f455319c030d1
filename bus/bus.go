package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/saylorsolutions/intercept/events"
)

// Bus is one event bus instance.
// It dispatches through its [Hub]'s registries using its own [events.BusTag], so handlers added through one Bus never see another Bus's events.
type Bus struct {
	hub    *Hub
	tag    events.BusTag
	log    *slog.Logger
	subs   events.Group
	closed atomic.Bool
}

func (b *Bus) Tag() events.BusTag {
	return b.tag
}

func (b *Bus) Name() string {
	return b.tag.Name()
}

func (b *Bus) Hub() *Hub {
	return b.hub
}

func (b *Bus) Closed() bool {
	return b.closed.Load()
}

// Close disposes every subscription made with [Before] or [After] on this Bus.
// It's safe to call more than once.
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.hub.forget(b)
	err := b.subs.Close()
	b.log.Debug("Bus closed")
	return err
}

// Before registers a before handler for events of kind E dispatched on b.
// The [events.Subscription] is also disposed when b is closed.
func Before[E any, P events.Event[E]](b *Bus, handler events.PreHandler[E]) (*events.Subscription, error) {
	if b.Closed() {
		return nil, fmt.Errorf("subscribe before on bus '%s': %w", b.Name(), ErrClosed)
	}
	sub := RegistryOf[E, P](b.hub).SubscribeBefore(b.tag, handler)
	b.subs.Add(sub)
	return sub, nil
}

// After registers an after handler for events of kind E dispatched on b.
// The [events.Subscription] is also disposed when b is closed.
func After[E any, P events.Event[E]](b *Bus, handler events.PostHandler[E]) (*events.Subscription, error) {
	if b.Closed() {
		return nil, fmt.Errorf("subscribe after on bus '%s': %w", b.Name(), ErrClosed)
	}
	sub := RegistryOf[E, P](b.hub).SubscribeAfter(b.tag, handler)
	b.subs.Add(sub)
	return sub, nil
}

// Dispatch executes event on b, running the handlers registered for b around it.
// Nothing runs if b is closed or ctx is already done.
// Otherwise, errors from handlers and the event are returned unchanged.
func Dispatch[E any, P events.Event[E]](ctx context.Context, b *Bus, event *E) error {
	if b.Closed() {
		return fmt.Errorf("dispatch on bus '%s': %w", b.Name(), ErrClosed)
	}
	if isDone(ctx) {
		return ctx.Err()
	}
	return RegistryOf[E, P](b.hub).ExecuteEvent(ctx, b.tag, event)
}

func isDone(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
