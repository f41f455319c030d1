package bus

import (
	"context"
	"testing"

	"github.com/saylorsolutions/intercept/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestModule(t *testing.T) {
	var hub *Hub
	app := fxtest.New(t,
		Module(),
		RegistryOption(events.WithDispatchPolicy(events.HoldLockDispatch)),
		fx.Populate(&hub),
	)
	app.RequireStart()
	require.NotNil(t, hub)
	assert.Equal(t, events.HoldLockDispatch, RegistryOf[damageEvent](hub).Policy())

	b, err := hub.NewBus("fx")
	require.NoError(t, err)
	_, err = Before[damageEvent](b, func(context.Context, events.BusTag, *damageEvent) error { return nil })
	require.NoError(t, err)

	app.RequireStop()
	assert.True(t, b.Closed(), "Stopping the app should close the hub's buses")
	before, _ := RegistryOf[damageEvent](hub).Count(b.Tag())
	assert.Equal(t, 0, before)
}
