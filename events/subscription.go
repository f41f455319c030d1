package events

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

// Subscription controls the lifetime of one handler registration.
// The handler is removed from its [Registry] when the Subscription is disposed.
//
// Go has no destructors, so a Subscription that is dropped without being disposed leaves its handler registered.
// Use defer, a [Group], or [Subscription.DisposeWhenDone] to tie disposal to a scope.
type Subscription struct {
	kind     string
	tag      BusTag
	phase    Phase
	dispose  sync.Once
	disposed atomic.Bool
	remove   func()
}

func newSubscription(kind string, tag BusTag, phase Phase, remove func()) *Subscription {
	return &Subscription{
		kind:   kind,
		tag:    tag,
		phase:  phase,
		remove: remove,
	}
}

// Dispose removes the handler from its registry.
// It's safe to call from any goroutine, any number of times, and on a nil Subscription.
// Only the first call has an effect.
func (s *Subscription) Dispose() {
	if s == nil {
		return
	}
	s.dispose.Do(func() {
		s.disposed.Store(true)
		s.remove()
	})
}

// Close disposes the Subscription and always returns nil, so it can be used as an [io.Closer].
func (s *Subscription) Close() error {
	s.Dispose()
	return nil
}

// Active reports whether the Subscription has not been disposed yet.
func (s *Subscription) Active() bool {
	return s != nil && !s.disposed.Load()
}

func (s *Subscription) Tag() BusTag {
	return s.tag
}

func (s *Subscription) Phase() Phase {
	return s.phase
}

func (s *Subscription) Kind() string {
	return s.kind
}

// DisposeWhenDone disposes the Subscription once ctx is done.
// Calling the returned stop function before then detaches the Subscription from ctx, and reports whether it did so.
func (s *Subscription) DisposeWhenDone(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, s.Dispose)
}

// Group collects subscriptions so they can be disposed together, like a scope guard.
// The zero value is ready to use.
type Group struct {
	mux    sync.Mutex
	subs   []*Subscription
	closed bool
}

// Add puts subscriptions in the Group.
// If the Group is already closed they're disposed immediately.
func (g *Group) Add(subs ...*Subscription) {
	g.mux.Lock()
	if g.closed {
		g.mux.Unlock()
		for _, sub := range subs {
			sub.Dispose()
		}
		return
	}
	defer g.mux.Unlock()
	// Subscriptions disposed on their own don't need to be held any longer.
	g.subs = slices.DeleteFunc(g.subs, func(sub *Subscription) bool {
		return !sub.Active()
	})
	for _, sub := range subs {
		if sub != nil {
			g.subs = append(g.subs, sub)
		}
	}
}

// Len returns the number of subscriptions held that are still active.
func (g *Group) Len() int {
	g.mux.Lock()
	defer g.mux.Unlock()
	var n int
	for _, sub := range g.subs {
		if sub.Active() {
			n++
		}
	}
	return n
}

// Close disposes every subscription in the Group, most recently added first.
// Subscriptions added after Close are disposed right away.
func (g *Group) Close() error {
	g.mux.Lock()
	subs := g.subs
	g.subs = nil
	g.closed = true
	g.mux.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Dispose()
	}
	return nil
}
