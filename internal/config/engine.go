package config

import (
	"fmt"
	"math"

	"github.com/rescale/rescale-space/internal/constants"
)

// Config is the construction-time configuration of a viewport engine.
// Zero values are not defaults; start from Default() and override fields.
type Config struct {
	// ItemWidth and ItemHeight size every item's bounding box (content pixels).
	// Default: 100 x 120
	ItemWidth  float64
	ItemHeight float64

	// ItemMargin is the gap the layout leaves between items.
	// The engine only uses it to size focus transforms.
	// Default: 20
	ItemMargin float64

	// RenderMargin is added on every side of the visible rectangle, in screen pixels.
	// Default: 300
	RenderMargin float64

	// BatchSize bounds the enter/exit/update operations applied per tick.
	// Default: 50
	BatchSize int

	// RecycleThreshold is the maximum idle handle count kept per item kind.
	// Default: 100
	RecycleThreshold int

	// PoolBatch is how many handles a dry pool creates per factory burst.
	// Default: 4
	PoolBatch int

	// LODThresholds are descending scales; level = 1-based index of the first met.
	// Default: [1.0, 0.5, 0.2]
	LODThresholds []float64

	// LODDistance is the base band for the distance fallback below every threshold.
	// Default: 1000
	LODDistance float64

	// BinSize is the spatial index cell size. Fixed for the lifetime of an index.
	// Default: 500
	BinSize float64

	// MinScale and MaxScale clamp every transform.
	// Default: 0.05 .. 8
	MinScale float64
	MaxScale float64

	// ViewportWidth and ViewportHeight are the initial container size in pixels.
	// Default: 1280 x 800
	ViewportWidth  float64
	ViewportHeight float64

	// Debug logs per-pass statistics at debug level.
	Debug bool

	// CollectStats publishes a stats event after every completed pass.
	// Default: true
	CollectStats bool
}

// ConfigurationError reports a missing or invalid setting.
// Engine construction fails with it and leaves nothing initialised.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		ItemWidth:        constants.DefaultItemWidth,
		ItemHeight:       constants.DefaultItemHeight,
		ItemMargin:       constants.DefaultItemMargin,
		RenderMargin:     constants.DefaultRenderMargin,
		BatchSize:        constants.DefaultBatchSize,
		RecycleThreshold: constants.DefaultRecycleThreshold,
		PoolBatch:        constants.DefaultPoolBatch,
		LODThresholds:    append([]float64(nil), constants.DefaultLODThresholds...),
		LODDistance:      constants.DefaultLODDistance,
		BinSize:          constants.DefaultBinSize,
		MinScale:         constants.DefaultMinScale,
		MaxScale:         constants.DefaultMaxScale,
		ViewportWidth:    constants.DefaultViewportWidth,
		ViewportHeight:   constants.DefaultViewportHeight,
		CollectStats:     true,
	}
}

// Validate checks every field and returns the first *ConfigurationError found.
func (c Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"item_width", c.ItemWidth},
		{"item_height", c.ItemHeight},
		{"bin_size", c.BinSize},
		{"lod_distance", c.LODDistance},
		{"min_scale", c.MinScale},
		{"max_scale", c.MaxScale},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return &ConfigurationError{Field: p.name, Reason: "must be a positive finite number"}
		}
	}

	if c.ItemMargin < 0 || math.IsNaN(c.ItemMargin) {
		return &ConfigurationError{Field: "item_margin", Reason: "must not be negative"}
	}
	if c.RenderMargin < 0 || math.IsNaN(c.RenderMargin) {
		return &ConfigurationError{Field: "render_margin", Reason: "must not be negative"}
	}
	if c.ViewportWidth < 0 || c.ViewportHeight < 0 {
		return &ConfigurationError{Field: "viewport_size", Reason: "must not be negative"}
	}
	if c.BatchSize <= 0 {
		return &ConfigurationError{Field: "batch_size", Reason: "must be at least 1"}
	}
	if c.RecycleThreshold < 0 {
		return &ConfigurationError{Field: "recycle_threshold", Reason: "must not be negative"}
	}
	if c.PoolBatch <= 0 {
		return &ConfigurationError{Field: "pool_batch", Reason: "must be at least 1"}
	}
	if c.MinScale > c.MaxScale {
		return &ConfigurationError{Field: "min_scale", Reason: "must not exceed max_scale"}
	}

	if len(c.LODThresholds) == 0 {
		return &ConfigurationError{Field: "lod_thresholds", Reason: "is required"}
	}
	for i, th := range c.LODThresholds {
		if !(th > 0) || math.IsInf(th, 0) {
			return &ConfigurationError{Field: "lod_thresholds", Reason: fmt.Sprintf("entry %d must be positive", i)}
		}
		if i > 0 && th >= c.LODThresholds[i-1] {
			return &ConfigurationError{Field: "lod_thresholds", Reason: "must be strictly descending"}
		}
	}

	return nil
}
