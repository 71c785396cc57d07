package viewport

import (
	"math"

	"github.com/rescale/rescale-space/internal/geom"
)

// Selector picks a level of detail per item. Level 1 is the finest.
type Selector struct {
	thresholds []float64 // descending scale values
	distance   float64   // base band width for the distance fallback
}

// NewSelector creates a selector. Thresholds must be descending; config.Validate
// enforces that before an engine is built.
func NewSelector(thresholds []float64, distance float64) Selector {
	return Selector{
		thresholds: append([]float64(nil), thresholds...),
		distance:   distance,
	}
}

// Levels returns the number of detail levels.
func (s Selector) Levels() int {
	return max(1, len(s.thresholds))
}

// Level returns the detail level for an item box at the given scale. When the
// scale is below every threshold, the level falls back to the item's distance
// from the centre of view, normalised by scale, in bands of the base distance.
func (s Selector) Level(box geom.Rect, scale float64, view geom.Rect) int {
	for i, th := range s.thresholds {
		if scale >= th {
			return i + 1
		}
	}
	if s.distance <= 0 || scale <= 0 {
		return s.Levels()
	}
	d := geom.Distance(box.Center(), view.Center()) / scale
	band := math.Floor(d / s.distance)
	if math.IsNaN(band) || band >= float64(s.Levels()-1) {
		return s.Levels()
	}
	return int(band) + 1
}
