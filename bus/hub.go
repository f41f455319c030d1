package bus

import (
	"errors"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"github.com/saylorsolutions/intercept/events"
	"github.com/saylorsolutions/intercept/internal/assert"
	"github.com/saylorsolutions/intercept/internal/logx"
	"github.com/saylorsolutions/intercept/internal/syncx"
	"go.uber.org/multierr"
)

var ErrClosed = errors.New("closed")

var (
	defaultHub *Hub
	initOnce   sync.Once
)

// DefaultHub returns a process-wide [Hub], created on first use with no logging and default registry options.
// Prefer passing a [Hub] explicitly where possible, since anything can register handlers on the global one.
func DefaultHub() *Hub {
	initOnce.Do(func() {
		defaultHub = NewHub(nil)
	})
	return defaultHub
}

// Hub owns one [events.Registry] per event kind, and the buses that dispatch through them.
type Hub struct {
	log  *slog.Logger
	opts []events.ConfigFunc

	mux        sync.RWMutex
	registries map[reflect.Type]any
	buses      map[events.BusTag]*Bus
	closed     bool
}

// NewHub creates a [Hub].
// The options are applied to every registry the Hub creates, and a nil logger discards output.
func NewHub(log *slog.Logger, registryOpts ...events.ConfigFunc) *Hub {
	if log == nil {
		log = logx.Discard()
	}
	opts := make([]events.ConfigFunc, 0, len(registryOpts)+1)
	opts = append(opts, events.WithLogger(log))
	opts = append(opts, registryOpts...)
	return &Hub{
		log:        log,
		opts:       opts,
		registries: map[reflect.Type]any{},
		buses:      map[events.BusTag]*Bus{},
	}
}

// RegistryOf returns the hub's registry for the event kind E, creating it if needed.
// Every call for the same E on the same [Hub] returns the same registry.
func RegistryOf[E any, P events.Event[E]](h *Hub) *events.Registry[E, P] {
	key := reflect.TypeOf((*E)(nil)).Elem()
	reg, ok := syncx.ReadT(&h.mux, func() any {
		return h.registries[key]
	}).(*events.Registry[E, P])
	if ok {
		return reg
	}
	return syncx.WriteT(&h.mux, func() *events.Registry[E, P] {
		if existing, ok := h.registries[key].(*events.Registry[E, P]); ok {
			return existing
		}
		reg := events.NewRegistry[E, P](h.opts...)
		h.registries[key] = reg
		h.log.Debug("Created registry", "kind", reg.Kind())
		return reg
	})
}

// NewBus creates a [Bus] with a fresh [events.BusTag].
// A random name is generated if name is empty.
func (h *Hub) NewBus(name string) (*Bus, error) {
	if len(name) == 0 {
		name = uuid.NewString()
	}
	b := &Bus{
		hub: h,
		tag: events.NewBusTag(name),
	}
	b.log = h.log.With("bus", b.tag)
	err := syncx.WriteT(&h.mux, func() error {
		if h.closed {
			return ErrClosed
		}
		h.buses[b.tag] = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("Bus created")
	return b, nil
}

// Buses returns the buses that haven't been closed.
func (h *Hub) Buses() []*Bus {
	return syncx.ReadT(&h.mux, func() []*Bus {
		buses := make([]*Bus, 0, len(h.buses))
		for _, b := range h.buses {
			buses = append(buses, b)
		}
		return buses
	})
}

// Close closes every bus created by the Hub, and prevents new ones from being created.
// Registries are kept, so handlers registered directly on them are unaffected.
func (h *Hub) Close() error {
	buses := syncx.WriteT(&h.mux, func() []*Bus {
		if h.closed {
			return nil
		}
		h.closed = true
		buses := make([]*Bus, 0, len(h.buses))
		for _, b := range h.buses {
			buses = append(buses, b)
		}
		return buses
	})
	var err error
	for _, b := range buses {
		err = multierr.Append(err, b.Close())
	}
	h.log.Debug("Hub closed", "buses", len(buses))
	return err
}

func (h *Hub) forget(b *Bus) {
	syncx.Write(&h.mux, func() {
		_, known := h.buses[b.tag]
		assert.Invariantf(known, "bus '%s' is known to its hub", b.Name())
		delete(h.buses, b.tag)
	})
}
