// Package metrics exports render pass statistics to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rescale/rescale-space/internal/engine"
)

// Recorder turns engine stats into Prometheus metrics. It implements
// engine.StatsObserver. Each recorder owns its registry so several engines
// can be measured side by side.
type Recorder struct {
	registry *prometheus.Registry

	passesTotal   prometheus.Counter
	renderSeconds prometheus.Histogram
	elementsTotal *prometheus.CounterVec
	failuresTotal prometheus.Counter
	visibleItems  prometheus.Gauge
	culledItems   prometheus.Gauge
	poolIdle      *prometheus.GaugeVec
	linearScans   prometheus.Counter
}

// NewRecorder creates a recorder with a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		passesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rescale_space_render_passes_total",
				Help: "Total number of completed render passes",
			},
		),
		renderSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rescale_space_render_duration_seconds",
				Help:    "Work time of a render pass in seconds",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .016, .025, .05, .1},
			},
		),
		elementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rescale_space_elements_total",
				Help: "Handle operations applied by render passes",
			},
			[]string{"op"},
		),
		failuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rescale_space_render_failures_total",
				Help: "Items skipped because drawing them failed",
			},
		),
		visibleItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rescale_space_visible_items",
				Help: "Items holding a live handle after the last pass",
			},
		),
		culledItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "rescale_space_culled_items",
				Help: "Stored items outside the query rectangle in the last pass",
			},
		),
		poolIdle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rescale_space_pool_idle_handles",
				Help: "Idle handles per item kind",
			},
			[]string{"kind"},
		),
		linearScans: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "rescale_space_linear_scans_total",
				Help: "Passes that scanned every item because the index was not built",
			},
		),
	}
}

// ObserveRender records one completed pass.
func (r *Recorder) ObserveRender(s engine.Stats) {
	r.passesTotal.Inc()
	r.renderSeconds.Observe(s.RenderTimeMs / 1000)
	r.elementsTotal.WithLabelValues("entered").Add(float64(s.CreatedElements))
	r.elementsTotal.WithLabelValues("updated").Add(float64(s.UpdatedElements))
	r.elementsTotal.WithLabelValues("exited").Add(float64(s.RemovedElements))
	r.failuresTotal.Add(float64(s.FailedItems))
	r.visibleItems.Set(float64(s.VisibleItems))
	r.culledItems.Set(float64(s.CulledItems))
	for kind, n := range s.PoolIdle {
		r.poolIdle.WithLabelValues(kind.String()).Set(float64(n))
	}
	if s.LinearScan {
		r.linearScans.Inc()
	}
}

// Registry returns the registry the recorder writes to.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler returns the Prometheus metrics HTTP handler for this recorder.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
