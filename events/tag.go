package events

import (
	"fmt"
	"log/slog"
)

// BusTag identifies one bus instance.
// Tags compare by identity: two tags minted by separate [NewBusTag] calls are never equal, even with the same name.
// The zero BusTag is a valid key that is distinct from every minted tag.
//
// The registry never owns or inspects a bus through its tag.
type BusTag struct {
	id *busID
}

type busID struct {
	name string
}

// NewBusTag mints a new, unique [BusTag].
// The name is informational and only used in logs.
func NewBusTag(name string) BusTag {
	return BusTag{id: &busID{name: name}}
}

// Name returns the name given to [NewBusTag].
func (t BusTag) Name() string {
	if t.id == nil {
		return ""
	}
	return t.id.name
}

func (t BusTag) IsZero() bool {
	return t.id == nil
}

func (t BusTag) String() string {
	if t.id == nil {
		return "<zero>"
	}
	return fmt.Sprintf("%s@%p", t.id.name, t.id)
}

// LogValue renders the tag as its string form in structured logs.
func (t BusTag) LogValue() slog.Value {
	return slog.StringValue(t.String())
}
