// Package metrics holds the Prometheus collectors updated by rendering runs.
//
// citymap is a batch tool, so nothing is scraped. The collectors live in the
// default registry and are dumped in text exposition format with
// WriteTextfile at the end of a run, for node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	FramesRenderedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citymap_frames_rendered_total",
		Help: "Total number of frames rasterized and handed to a sink",
	})
	FrameDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "citymap_frame_duration_seconds",
		Help:    "Time to advance, rasterize and write one frame",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	RendersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "citymap_renders_total",
		Help: "Animation renders by outcome",
	}, []string{"status"})
	RenderDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "citymap_render_duration_seconds",
		Help:    "Wall time of a whole animation render",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	BoundaryShapes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "citymap_boundary_shapes",
		Help: "Zip polygons in the loaded boundary set",
	})
	SeriesFrames = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "citymap_series_frames",
		Help: "Monthly frames in the resampled series",
	})
	MissingValuesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "citymap_missing_values_total",
		Help: "Shaded polygons that fell back to the background color",
	})
)

// Render outcomes used as the status label of RendersTotal.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

func init() {
	prometheus.MustRegister(FramesRenderedTotal)
	prometheus.MustRegister(FrameDurationSeconds)
	prometheus.MustRegister(RendersTotal)
	prometheus.MustRegister(RenderDurationSeconds)
	prometheus.MustRegister(BoundaryShapes)
	prometheus.MustRegister(SeriesFrames)
	prometheus.MustRegister(MissingValuesTotal)
}

// WriteTextfile writes every registered metric to path. An empty path is a
// no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
