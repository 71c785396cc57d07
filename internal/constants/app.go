package constants

import (
	"time"
)

// Item geometry (content-space pixels)
const (
	// DefaultItemWidth - width of every item's bounding box
	DefaultItemWidth = 100.0

	// DefaultItemHeight - height of every item's bounding box
	DefaultItemHeight = 120.0

	// DefaultItemMargin - gap left between neighbouring items by the grid layout
	DefaultItemMargin = 20.0
)

// Render pass tuning
const (
	// DefaultRenderMargin - screen pixels pre-rendered on every side of the viewport.
	// Converted to content space by dividing by the current scale.
	DefaultRenderMargin = 300.0

	// DefaultBatchSize - enter/exit/update operations applied per tick.
	// Larger batches finish passes sooner, smaller batches keep ticks short.
	DefaultBatchSize = 50

	// DefaultRecycleThreshold - maximum idle handles kept per item kind.
	// Handles released beyond this are destroyed instead of pooled.
	DefaultRecycleThreshold = 100

	// DefaultPoolBatch - handles created per factory burst when a pool runs dry.
	DefaultPoolBatch = 4

	// DefaultFrameInterval - tick period of the frame loop (~60 fps)
	DefaultFrameInterval = 16 * time.Millisecond
)

// Spatial index tuning
const (
	// DefaultBinSize - side length of a spatial index bin.
	// Trade-off:
	// - Smaller bins = more bins touched per query, smaller per-bin sets
	// - Larger bins = fewer bins, more candidates to filter per query
	DefaultBinSize = 500.0
)

// Level of detail
var (
	// DefaultLODThresholds - descending scales; detail level is the 1-based index
	// of the first threshold the current scale meets.
	DefaultLODThresholds = []float64{1.0, 0.5, 0.2}
)

const (
	// DefaultLODDistance - base distance band used when scale is below every threshold
	DefaultLODDistance = 1000.0
)

// Viewport limits
const (
	DefaultMinScale = 0.05
	DefaultMaxScale = 8.0

	DefaultViewportWidth  = 1280.0
	DefaultViewportHeight = 800.0

	// ZoomStep - multiplicative zoom factor for one keyboard or wheel step
	ZoomStep = 1.15

	// PanStep - screen pixels moved per keyboard pan step
	PanStep = 80.0
)

// Event bus
const (
	// EventBusDefaultBuffer - per-subscriber channel buffer
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - upper bound for requested buffer sizes
	EventBusMaxBuffer = 10000
)
