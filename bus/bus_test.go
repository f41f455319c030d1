package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/saylorsolutions/intercept/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type damageEvent struct {
	Amount  int
	Applied int
}

func (e *damageEvent) Execute(context.Context, events.BusTag) error {
	e.Applied = e.Amount
	return nil
}

type chatEvent struct {
	Text string
}

func (e *chatEvent) Execute(context.Context, events.BusTag) error {
	return nil
}

func TestRegistryOf_OnePerKind(t *testing.T) {
	hub := NewHub(nil)
	a := RegistryOf[damageEvent](hub)
	b := RegistryOf[damageEvent](hub)
	assert.Same(t, a, b)
	assert.Equal(t, "bus.chatEvent", RegistryOf[chatEvent](hub).Kind())

	other := NewHub(nil)
	assert.NotSame(t, a, RegistryOf[damageEvent](other), "Hubs don't share registries")
}

func TestRegistryOf_Concurrent(t *testing.T) {
	var (
		hub   = NewHub(nil)
		group errgroup.Group
		regs  = make([]*events.Registry[damageEvent, *damageEvent], 16)
	)
	for i := range regs {
		i := i
		group.Go(func() error {
			regs[i] = RegistryOf[damageEvent](hub)
			return nil
		})
	}
	require.NoError(t, group.Wait())
	for _, reg := range regs {
		assert.Same(t, regs[0], reg)
	}
}

func TestHub_RegistryOptions(t *testing.T) {
	hub := NewHub(nil, events.WithDispatchPolicy(events.HoldLockDispatch), events.WithKind("custom"))
	reg := RegistryOf[damageEvent](hub)
	assert.Equal(t, events.HoldLockDispatch, reg.Policy())
	assert.Equal(t, "custom", reg.Kind())
}

func TestBus_Dispatch(t *testing.T) {
	var (
		hub   = NewHub(nil)
		arena = mustBus(t, hub, "arena")
		town  = mustBus(t, hub, "town")
		seen  []string
	)
	_, err := Before[damageEvent](arena, func(_ context.Context, _ events.BusTag, ev *damageEvent) error {
		ev.Amount /= 2
		seen = append(seen, "halved")
		return nil
	})
	require.NoError(t, err)
	_, err = After[damageEvent](arena, func(_ context.Context, tag events.BusTag, ev damageEvent) error {
		seen = append(seen, tag.Name())
		return nil
	})
	require.NoError(t, err)

	ev := &damageEvent{Amount: 10}
	require.NoError(t, Dispatch(context.Background(), arena, ev))
	assert.Equal(t, 5, ev.Applied)
	assert.Equal(t, []string{"halved", "arena"}, seen)

	ev = &damageEvent{Amount: 10}
	require.NoError(t, Dispatch(context.Background(), town, ev))
	assert.Equal(t, 10, ev.Applied, "Arena handlers must not run for the town bus")
	assert.Len(t, seen, 2)
}

func TestBus_DispatchCancelled(t *testing.T) {
	hub := NewHub(nil)
	b := mustBus(t, hub, "")
	assert.NotEmpty(t, b.Name(), "A name should be generated")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := &damageEvent{Amount: 3}
	assert.ErrorIs(t, Dispatch(ctx, b, ev), context.Canceled)
	assert.Equal(t, 0, ev.Applied)
}

func TestBus_Close(t *testing.T) {
	var (
		hub = NewHub(nil)
		b   = mustBus(t, hub, "short-lived")
		reg = RegistryOf[damageEvent](hub)
	)
	sub, err := Before[damageEvent](b, func(context.Context, events.BusTag, *damageEvent) error { return nil })
	require.NoError(t, err)
	_, err = After[damageEvent](b, func(context.Context, events.BusTag, damageEvent) error { return nil })
	require.NoError(t, err)
	before, after := reg.Count(b.Tag())
	assert.Equal(t, 1, before)
	assert.Equal(t, 1, after)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.True(t, b.Closed())
	assert.False(t, sub.Active())
	before, after = reg.Count(b.Tag())
	assert.Equal(t, 0, before)
	assert.Equal(t, 0, after)
	assert.Empty(t, hub.Buses())

	_, err = Before[damageEvent](b, func(context.Context, events.BusTag, *damageEvent) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	_, err = After[damageEvent](b, func(context.Context, events.BusTag, damageEvent) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, Dispatch(context.Background(), b, &damageEvent{}), ErrClosed)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(nil)
	a := mustBus(t, hub, "a")
	b := mustBus(t, hub, "b")
	assert.Len(t, hub.Buses(), 2)

	require.NoError(t, hub.Close())
	assert.True(t, a.Closed())
	assert.True(t, b.Closed())
	_, err := hub.NewBus("c")
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, hub.Close())
}

func TestDispatch_ErrorsUnchanged(t *testing.T) {
	var (
		hub    = NewHub(nil)
		b      = mustBus(t, hub, "a")
		errBad = errors.New("bad chat")
	)
	_, err := Before[chatEvent](b, func(_ context.Context, _ events.BusTag, ev *chatEvent) error {
		if ev.Text == "" {
			return errBad
		}
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, errBad, Dispatch(context.Background(), b, &chatEvent{}))
	assert.NoError(t, Dispatch(context.Background(), b, &chatEvent{Text: "hi"}))
}

func TestDefaultHub(t *testing.T) {
	t.Cleanup(func() {
		initOnce = sync.Once{}
		defaultHub = nil
	})
	assert.Same(t, DefaultHub(), DefaultHub())
}

func mustBus(t *testing.T, hub *Hub, name string) *Bus {
	t.Helper()
	b, err := hub.NewBus(name)
	require.NoError(t, err)
	return b
}
