package events

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
)

var ErrInvalidConfig = errors.New("invalid registry configuration")

// DispatchPolicy controls how [Registry.ExecuteEvent] synchronizes with registration.
type DispatchPolicy int

const (
	// SnapshotDispatch reads each phase's handlers under a short read lock and invokes them with no lock held.
	// Handlers may subscribe or dispose on the same registry while a dispatch is running.
	// A handler that is disposed during a dispatch won't be invoked if the dispatch hasn't reached it yet,
	// and a handler added during a dispatch will first be invoked by the next dispatch.
	SnapshotDispatch DispatchPolicy = iota
	// HoldLockDispatch holds the read lock for the entire dispatch, including the event's own execution.
	// Registration and disposal wait for every in-flight dispatch to finish.
	//
	// A handler must never subscribe or dispose on the same registry under this policy.
	// Doing so deadlocks, since the write lock can't be acquired while the dispatching goroutine holds the read lock.
	// A nested dispatch on the same registry can also deadlock if a writer is waiting.
	HoldLockDispatch
)

func (p DispatchPolicy) String() string {
	switch p {
	case SnapshotDispatch:
		return "snapshot"
	case HoldLockDispatch:
		return "hold"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParseDispatchPolicy maps "snapshot" or "hold" to a [DispatchPolicy].
func ParseDispatchPolicy(s string) (DispatchPolicy, error) {
	switch s {
	case "snapshot", "":
		return SnapshotDispatch, nil
	case "hold":
		return HoldLockDispatch, nil
	default:
		return 0, fmt.Errorf("%w: unknown dispatch policy '%s'", ErrInvalidConfig, s)
	}
}

type registryConf struct {
	kind      string
	log       *slog.Logger
	policy    DispatchPolicy
	observers observers
	clock     clock.Clock
}

// ConfigFunc customizes a [Registry] in [NewRegistry].
type ConfigFunc func(conf *registryConf) error

// WithLogger sets the logger used for debug output.
// Registries log nothing by default.
func WithLogger(log *slog.Logger) ConfigFunc {
	return func(conf *registryConf) error {
		if log == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidConfig)
		}
		conf.log = log
		return nil
	}
}

// WithDispatchPolicy sets the [DispatchPolicy]. The default is [SnapshotDispatch].
func WithDispatchPolicy(policy DispatchPolicy) ConfigFunc {
	return func(conf *registryConf) error {
		switch policy {
		case SnapshotDispatch, HoldLockDispatch:
			conf.policy = policy
			return nil
		default:
			return fmt.Errorf("%w: unknown dispatch policy %d", ErrInvalidConfig, int(policy))
		}
	}
}

// WithObserver adds an [Observer]. It may be used more than once, and observers are notified in the order they were added.
func WithObserver(obs Observer) ConfigFunc {
	return func(conf *registryConf) error {
		if obs == nil {
			return fmt.Errorf("%w: nil observer", ErrInvalidConfig)
		}
		conf.observers = append(conf.observers, obs)
		return nil
	}
}

// WithClock overrides the clock used to time dispatches for observers.
func WithClock(c clock.Clock) ConfigFunc {
	return func(conf *registryConf) error {
		if c == nil {
			return fmt.Errorf("%w: nil clock", ErrInvalidConfig)
		}
		conf.clock = c
		return nil
	}
}

// WithKind overrides the event kind label used in logs and reported to observers.
func WithKind(kind string) ConfigFunc {
	return func(conf *registryConf) error {
		if len(kind) == 0 {
			return fmt.Errorf("%w: empty kind", ErrInvalidConfig)
		}
		conf.kind = kind
		return nil
	}
}
