// Package state provides observable state containers for the space browser.
// Containers publish events when they change so any frontend can follow along;
// a ViewStore remembers the viewport of every browsed directory on disk.
package state

import (
	"github.com/rescale/rescale-space/internal/events"
)

// State event types
const (
	EventItemsChanged events.EventType = "items_changed"
)

// ChangeOp names the mutation that produced an ItemsChangedEvent.
type ChangeOp string

const (
	OpReplace ChangeOp = "replace"
	OpAdd     ChangeOp = "add"
	OpUpdate  ChangeOp = "update"
	OpRemove  ChangeOp = "remove"
	OpClear   ChangeOp = "clear"
)

// ItemsChangedEvent is published after the item store changes.
type ItemsChangedEvent struct {
	events.BaseEvent
	Op       ChangeOp
	Path     string // set for single-item operations
	Count    int    // items in the store after the change
	Rejected int    // malformed records dropped by a replace
}

// NewItemsChangedEvent creates a new ItemsChangedEvent.
func NewItemsChangedEvent(op ChangeOp, path string, count, rejected int) *ItemsChangedEvent {
	return &ItemsChangedEvent{
		BaseEvent: events.NewBase(EventItemsChanged),
		Op:        op,
		Path:      path,
		Count:     count,
		Rejected:  rejected,
	}
}
