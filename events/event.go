package events

import (
	"context"
	"fmt"
)

// Event is satisfied by a pointer to an event kind E that knows how to execute itself.
// Execute runs between the before and after phases of [Registry.ExecuteEvent].
type Event[E any] interface {
	*E
	Execute(ctx context.Context, tag BusTag) error
}

// PreHandler runs before an event executes, and may modify the event.
// Returning an error stops the dispatch.
type PreHandler[E any] func(ctx context.Context, tag BusTag, event *E) error

// PostHandler runs after an event executes.
// It receives a copy of the event, so changes made by the handler are not seen by later handlers.
// Returning an error stops the dispatch.
type PostHandler[E any] func(ctx context.Context, tag BusTag, event E) error

// Phase is the point in a dispatch at which a handler runs.
type Phase int

const (
	PhaseBefore Phase = iota + 1
	PhaseAfter
)

func (p Phase) String() string {
	switch p {
	case PhaseBefore:
		return "before"
	case PhaseAfter:
		return "after"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}
