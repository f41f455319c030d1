package events

import (
	"context"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/saylorsolutions/intercept/internal/assert"
	"github.com/saylorsolutions/intercept/internal/logx"
	"github.com/saylorsolutions/intercept/internal/syncx"
)

// slot is the registered form of a handler.
// It's shared by the registry's sequence and the removal closure of the [Subscription] issued for it.
type slot[H any] struct {
	handler H
	active  atomic.Bool
}

func newSlot[H any](handler H) *slot[H] {
	s := &slot[H]{handler: handler}
	s.active.Store(true)
	return s
}

// Sequences are never modified once stored in a map, they're replaced.
// This lets a dispatch iterate a sequence it read under the lock after releasing it.
type sequences[H any] map[BusTag][]*slot[H]

// Registry holds the before and after handlers for one event kind, grouped by [BusTag].
// It's safe for concurrent use.
type Registry[E any, P Event[E]] struct {
	kind   string
	log    *slog.Logger
	policy DispatchPolicy
	obs    observers
	clock  clock.Clock

	mux    sync.RWMutex
	before sequences[PreHandler[E]]
	after  sequences[PostHandler[E]]
}

// NewRegistry creates a [Registry] for the event kind E.
// NewRegistry panics if a [ConfigFunc] returns an error.
func NewRegistry[E any, P Event[E]](configFuncs ...ConfigFunc) *Registry[E, P] {
	conf := registryConf{
		kind:   reflect.TypeOf((*E)(nil)).Elem().String(),
		policy: SnapshotDispatch,
		clock:  clock.New(),
	}
	for _, fn := range configFuncs {
		if fn == nil {
			continue
		}
		if err := fn(&conf); err != nil {
			panic(err)
		}
	}
	if conf.log == nil {
		conf.log = logx.Discard()
	}
	return &Registry[E, P]{
		kind:   conf.kind,
		log:    conf.log.With("kind", conf.kind),
		policy: conf.policy,
		obs:    conf.observers,
		clock:  conf.clock,
		before: sequences[PreHandler[E]]{},
		after:  sequences[PostHandler[E]]{},
	}
}

// Kind is the label used for this registry's event kind in logs and observer notifications.
func (r *Registry[E, P]) Kind() string {
	return r.kind
}

func (r *Registry[E, P]) Policy() DispatchPolicy {
	return r.policy
}

// SubscribeBefore adds a handler that runs before events dispatched with tag execute.
// The handler stays registered until the returned [Subscription] is disposed.
// Registering the same function more than once creates independent registrations.
func (r *Registry[E, P]) SubscribeBefore(tag BusTag, handler PreHandler[E]) *Subscription {
	if handler == nil {
		panic("nil before handler")
	}
	s := newSlot(handler)
	syncx.Write(&r.mux, func() {
		r.before[tag] = appendSlot(r.before[tag], s)
	})
	return r.subscribed(tag, PhaseBefore, func() bool {
		return removeSlot(&r.mux, r.before, tag, s)
	})
}

// SubscribeAfter adds a handler that runs after events dispatched with tag execute.
// The handler stays registered until the returned [Subscription] is disposed.
// Registering the same function more than once creates independent registrations.
func (r *Registry[E, P]) SubscribeAfter(tag BusTag, handler PostHandler[E]) *Subscription {
	if handler == nil {
		panic("nil after handler")
	}
	s := newSlot(handler)
	syncx.Write(&r.mux, func() {
		r.after[tag] = appendSlot(r.after[tag], s)
	})
	return r.subscribed(tag, PhaseAfter, func() bool {
		return removeSlot(&r.mux, r.after, tag, s)
	})
}

func (r *Registry[E, P]) subscribed(tag BusTag, phase Phase, remove func() bool) *Subscription {
	r.log.Debug("Handler subscribed", "phase", phase.String(), "tag", tag)
	r.obs.HandlerAdded(r.kind, phase, tag)
	return newSubscription(r.kind, tag, phase, func() {
		if !remove() {
			return
		}
		r.log.Debug("Handler disposed", "phase", phase.String(), "tag", tag)
		r.obs.HandlerRemoved(r.kind, phase, tag)
	})
}

// ExecuteEvent dispatches event for the bus identified by tag.
// Before handlers registered under tag run in registration order, then the event executes, then after handlers run in registration order.
// A tag with no handlers is not an error.
//
// The first error returned by a handler or by the event's Execute method stops the dispatch and is returned unchanged.
// Panics are not recovered, and also stop the dispatch.
func (r *Registry[E, P]) ExecuteEvent(ctx context.Context, tag BusTag, event *E) error {
	if event == nil {
		panic("nil event")
	}
	var (
		stats DispatchStats
		start = r.clock.Now()
	)
	if r.policy == HoldLockDispatch {
		syncx.Read(&r.mux, func() {
			stats.Err = r.execute(ctx, tag, event, true, &stats)
		})
	} else {
		stats.Err = r.execute(ctx, tag, event, false, &stats)
	}
	stats.Elapsed = r.clock.Since(start)
	if stats.Err != nil {
		r.log.Debug("Dispatch stopped by error", "tag", tag, "before", stats.Before, "executed", stats.Executed, "after", stats.After, "error", stats.Err)
	}
	r.obs.EventDispatched(r.kind, tag, stats)
	return stats.Err
}

func (r *Registry[E, P]) execute(ctx context.Context, tag BusTag, event *E, held bool, stats *DispatchStats) error {
	for _, s := range lookup(held, &r.mux, r.before, tag) {
		if !s.active.Load() {
			continue
		}
		stats.Before++
		if err := s.handler(ctx, tag, event); err != nil {
			return err
		}
	}

	stats.Executed = true
	if err := P(event).Execute(ctx, tag); err != nil {
		return err
	}

	for _, s := range lookup(held, &r.mux, r.after, tag) {
		if !s.active.Load() {
			continue
		}
		stats.After++
		if err := s.handler(ctx, tag, *event); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of active before and after handlers registered under tag.
func (r *Registry[E, P]) Count(tag BusTag) (before, after int) {
	syncx.Read(&r.mux, func() {
		before = countActive(r.before[tag])
		after = countActive(r.after[tag])
	})
	return before, after
}

// Tags returns every tag that has an entry in either phase, including entries left empty by disposal.
func (r *Registry[E, P]) Tags() []BusTag {
	return syncx.ReadT(&r.mux, func() []BusTag {
		tags := make([]BusTag, 0, len(r.before)+len(r.after))
		for tag := range r.before {
			tags = append(tags, tag)
		}
		for tag := range r.after {
			if _, ok := r.before[tag]; !ok {
				tags = append(tags, tag)
			}
		}
		return tags
	})
}

// Prune drops entries whose handlers have all been disposed, and returns the number of entries dropped.
// Empty entries are otherwise kept, so Prune is only useful when many short-lived buses come and go.
func (r *Registry[E, P]) Prune() int {
	return syncx.WriteT(&r.mux, func() int {
		return pruneEmpty(r.before) + pruneEmpty(r.after)
	})
}

// lookup returns the sequence for tag.
// When held is true the caller already holds the read lock for the whole dispatch.
func lookup[H any](held bool, mux *sync.RWMutex, seqs sequences[H], tag BusTag) []*slot[H] {
	if held {
		return seqs[tag]
	}
	return syncx.ReadT(mux, func() []*slot[H] {
		return seqs[tag]
	})
}

func appendSlot[H any](seq []*slot[H], s *slot[H]) []*slot[H] {
	next := make([]*slot[H], len(seq), len(seq)+1)
	copy(next, seq)
	return append(next, s)
}

// removeSlot deactivates target and removes it from the tag's sequence.
// It reports whether target was found.
func removeSlot[H any](mux *sync.RWMutex, seqs sequences[H], tag BusTag, target *slot[H]) bool {
	target.active.Store(false)
	return syncx.WriteT(mux, func() bool {
		seq := seqs[tag]
		idx := slices.Index(seq, target)
		if idx < 0 {
			return false
		}
		next := make([]*slot[H], 0, len(seq)-1)
		next = append(next, seq[:idx]...)
		next = append(next, seq[idx+1:]...)
		assert.Invariant("slot registered once", !slices.Contains(next, target))
		seqs[tag] = next
		return true
	})
}

func countActive[H any](seq []*slot[H]) int {
	var n int
	for _, s := range seq {
		if s.active.Load() {
			n++
		}
	}
	return n
}

func pruneEmpty[H any](seqs sequences[H]) int {
	var pruned int
	for tag, seq := range seqs {
		if len(seq) == 0 {
			delete(seqs, tag)
			pruned++
		}
	}
	return pruned
}
