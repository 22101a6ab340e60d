// Package metrics exposes Prometheus instrumentation for the overlay engine.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Edit operations counted by EditCommitted.
const (
	OpCreate = "create" // first save of a new hotspot
	OpSave   = "save"
	OpDelete = "delete"
	OpCancel = "cancel"
)

// Recorder holds the collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	hotspotViews   *prometheus.CounterVec
	edits          *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	rescales       prometheus.Counter
	invalidZoom    prometheus.Counter
	viewerRebuilds prometheus.Counter
	viewerErrors   prometheus.Counter
	markerScale    prometheus.Gauge
	sessions       prometheus.Gauge
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		hotspotViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "viewed_total",
			Help:      "Hotspot clicks in view mode.",
		}, []string{"panorama", "hotspot"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "edits_total",
			Help:      "Draft transitions by operation.",
		}, []string{"op"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "edit_rejections_total",
			Help:      "Edit operations rejected by a guard rail.",
		}, []string{"reason"}),
		rescales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "rescale_passes_total",
			Help:      "Zoom compensation passes applied to mounted markers.",
		}),
		invalidZoom: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "invalid_zoom_readings_total",
			Help:      "Rescale passes skipped because the field of view was not positive.",
		}),
		viewerRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "viewer_rebuilds_total",
			Help:      "Viewer instances disposed and reconstructed.",
		}),
		viewerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hotspots",
			Name:      "viewer_errors_total",
			Help:      "Viewer construction failures and error events.",
		}),
		markerScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotspots",
			Name:      "marker_scale",
			Help:      "Last zoom compensation scale applied.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hotspots",
			Name:      "sessions_active",
			Help:      "Overlay sessions currently held.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.hotspotViews, r.edits, r.rejections, r.rescales, r.invalidZoom,
			r.viewerRebuilds, r.viewerErrors, r.markerScale, r.sessions)
	}
	return r
}

// HotspotViewed counts a view-mode click.
func (r *Recorder) HotspotViewed(panoramaID int, hotspotID string) {
	if r == nil {
		return
	}
	r.hotspotViews.WithLabelValues(strconv.Itoa(panoramaID), hotspotID).Inc()
}

// EditCommitted counts a draft transition.
func (r *Recorder) EditCommitted(op string) {
	if r == nil {
		return
	}
	r.edits.WithLabelValues(op).Inc()
}

// EditRejected counts a guard-rail rejection.
func (r *Recorder) EditRejected(reason string) {
	if r == nil {
		return
	}
	r.rejections.WithLabelValues(reason).Inc()
}

// Rescaled records an applied compensation pass.
func (r *Recorder) Rescaled(scale float64) {
	if r == nil {
		return
	}
	r.rescales.Inc()
	r.markerScale.Set(scale)
}

// InvalidZoom records a skipped pass.
func (r *Recorder) InvalidZoom() {
	if r == nil {
		return
	}
	r.invalidZoom.Inc()
}

// ViewerRebuilt records a dispose-and-construct transition.
func (r *Recorder) ViewerRebuilt() {
	if r == nil {
		return
	}
	r.viewerRebuilds.Inc()
}

// ViewerFailed records a viewer error.
func (r *Recorder) ViewerFailed() {
	if r == nil {
		return
	}
	r.viewerErrors.Inc()
}

// SessionsActive sets the live session gauge.
func (r *Recorder) SessionsActive(n int) {
	if r == nil {
		return
	}
	r.sessions.Set(float64(n))
}
