package domain

import "strconv"

// ChannelID is the registry-assigned identifier of a channel.
// IDs start at 1 and are never reused, even after deletion.
type ChannelID uint64

func (id ChannelID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// InternalEvent is a framework-level notification kind.
// Each one maps to a reserved channel name.
type InternalEvent int

const (
	EventInitialized InternalEvent = iota
	EventUpdated
	EventRendered
	EventKeyPressed
	EventKeyReleased
	EventPointerPressed
	EventPointerReleased
)

// internalCatalog is the enum -> canonical name table, in declaration order.
var internalCatalog = []struct {
	event InternalEvent
	name  string
}{
	{EventInitialized, "<initialized>"},
	{EventUpdated, "<updated>"},
	{EventRendered, "<rendered>"},
	{EventKeyPressed, "<key-pressed>"},
	{EventKeyReleased, "<key-released>"},
	{EventPointerPressed, "<pointer-pressed>"},
	{EventPointerReleased, "<pointer-released>"},
}

// Name returns the canonical channel name of the event.
// Unknown values get a name that no catalog entry uses.
func (e InternalEvent) Name() string {
	if e >= 0 && int(e) < len(internalCatalog) {
		return internalCatalog[e].name
	}
	return "<internal-" + strconv.Itoa(int(e)) + ">"
}

func (e InternalEvent) String() string {
	return e.Name()
}

// InternalCatalog returns every framework event in declaration order.
func InternalCatalog() []InternalEvent {
	events := make([]InternalEvent, len(internalCatalog))
	for i, entry := range internalCatalog {
		events[i] = entry.event
	}
	return events
}

// LookupInternalEvent resolves a canonical name back to its event.
func LookupInternalEvent(name string) (InternalEvent, bool) {
	for _, entry := range internalCatalog {
		if entry.name == name {
			return entry.event, true
		}
	}
	return 0, false
}
