package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/saylorsolutions/intercept/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	fail bool
}

var errPing = errors.New("ping failed")

func (e *pingEvent) Execute(context.Context, events.BusTag) error {
	if e.fail {
		return errPing
	}
	return nil
}

func noopBefore(context.Context, events.BusTag, *pingEvent) error { return nil }
func noopAfter(context.Context, events.BusTag, pingEvent) error { return nil }

func TestCollector_Handlers(t *testing.T) {
	var (
		col = NewCollector("test")
		reg = events.NewRegistry[pingEvent](events.WithObserver(col), events.WithKind("ping"))
		tag = events.NewBusTag("a")
	)
	first := reg.SubscribeBefore(tag, noopBefore)
	reg.SubscribeBefore(tag, noopBefore)
	reg.SubscribeAfter(tag, noopAfter)
	first.Dispose()
	first.Dispose()

	expected := `
# HELP test_handlers_active Number of handlers currently registered.
# TYPE test_handlers_active gauge
test_handlers_active{kind="ping",phase="after"} 1
test_handlers_active{kind="ping",phase="before"} 1
# HELP test_subscriptions_total Number of handlers ever registered.
# TYPE test_subscriptions_total counter
test_subscriptions_total{kind="ping",phase="after"} 1
test_subscriptions_total{kind="ping",phase="before"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected),
		"test_handlers_active", "test_subscriptions_total"))
}

func TestCollector_Dispatches(t *testing.T) {
	var (
		col = NewCollector("test")
		reg = events.NewRegistry[pingEvent](events.WithObserver(col), events.WithKind("ping"))
		tag = events.NewBusTag("a")
	)
	require.NoError(t, reg.ExecuteEvent(context.Background(), tag, &pingEvent{}))
	require.NoError(t, reg.ExecuteEvent(context.Background(), tag, &pingEvent{}))
	require.ErrorIs(t, reg.ExecuteEvent(context.Background(), tag, &pingEvent{fail: true}), errPing)

	expected := `
# HELP test_dispatches_total Number of completed dispatches by result.
# TYPE test_dispatches_total counter
test_dispatches_total{kind="ping",result="error"} 1
test_dispatches_total{kind="ping",result="ok"} 2
`
	assert.NoError(t, testutil.CollectAndCompare(col, strings.NewReader(expected), "test_dispatches_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(col, "test_dispatch_duration_seconds"))
}

func TestCollector_Register(t *testing.T) {
	col := NewCollector("intercept")
	promReg := prometheus.NewPedanticRegistry()
	require.NoError(t, promReg.Register(col))

	reg := events.NewRegistry[pingEvent](events.WithObserver(col))
	reg.SubscribeBefore(events.BusTag{}, noopBefore)
	require.NoError(t, reg.ExecuteEvent(context.Background(), events.BusTag{}, &pingEvent{}))

	families, err := promReg.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"intercept_handlers_active",
		"intercept_subscriptions_total",
		"intercept_dispatches_total",
		"intercept_dispatch_duration_seconds",
	}, names)
}
