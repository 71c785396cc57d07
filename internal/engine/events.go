package engine

import (
	"github.com/rescale/rescale-space/internal/events"
	"github.com/rescale/rescale-space/internal/models"
)

// Engine event types
const (
	EventItemClick       events.EventType = "item_click"
	EventItemDoubleClick events.EventType = "item_double_click"
	EventItemContextMenu events.EventType = "item_context_menu"
	EventRenderStats     events.EventType = "render_stats"
)

// ItemEvent is published when the user interacts with a rendered item.
type ItemEvent struct {
	events.BaseEvent
	Item   models.Item
	Handle *Handle
}

// RenderStatsEvent is published after every completed pass.
type RenderStatsEvent struct {
	events.BaseEvent
	Stats Stats
}

// StatsObserver receives the stats of every completed pass.
type StatsObserver interface {
	ObserveRender(s Stats)
}

// StatsObserverFunc adapts a function to StatsObserver.
type StatsObserverFunc func(Stats)

func (f StatsObserverFunc) ObserveRender(s Stats) { f(s) }
