package bus

import (
	"context"
	"log/slog"

	"github.com/saylorsolutions/intercept/events"
	"go.uber.org/fx"
)

// HubParams are the dependencies of the [Hub] provided by [Module].
type HubParams struct {
	fx.In

	Logger  *slog.Logger        `optional:"true"`
	Options []events.ConfigFunc `group:"registry_options"`
}

// Module provides a *[Hub] to an fx application, and closes it when the application stops.
func Module() fx.Option {
	return fx.Module("intercept_hub",
		fx.Provide(provideHub),
		fx.Invoke(registerLifecycle),
	)
}

// RegistryOption contributes an [events.ConfigFunc] to the [Hub] provided by [Module].
func RegistryOption(fn events.ConfigFunc) fx.Option {
	return fx.Provide(fx.Annotate(
		func() events.ConfigFunc { return fn },
		fx.ResultTags(`group:"registry_options"`),
	))
}

func provideHub(p HubParams) *Hub {
	return NewHub(p.Logger, p.Options...)
}

func registerLifecycle(lc fx.Lifecycle, hub *Hub) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return hub.Close()
		},
	})
}
