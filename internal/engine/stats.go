package engine

import "github.com/rescale/rescale-space/internal/models"

// Stats summarises one completed render pass.
type Stats struct {
	VisibleItems    int     `json:"visibleItems"`
	CreatedElements int     `json:"createdElements"` // handles entered
	UpdatedElements int     `json:"updatedElements"` // surviving handles redrawn or moved
	RemovedElements int     `json:"removedElements"` // handles exited
	CulledItems     int     `json:"culledItems"`     // stored items outside the query rect
	FailedItems     int     `json:"failedItems"`
	RenderTimeMs    float64 `json:"renderTimeMs"` // work time, excluding waits between chunks
	Chunks          int     `json:"chunks"`
	LinearScan      bool    `json:"linearScan"`
	Scale           float64 `json:"scale"`

	Passes   uint64              `json:"passes"`
	PoolIdle map[models.Kind]int `json:"poolIdle"`
}
