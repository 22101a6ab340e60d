// Package zoom keeps hotspot markers at a constant apparent size while the
// viewport's field of view changes.
package zoom

import (
	"math"
	"sync"
)

// Scalable is anything that accepts a uniform scale factor.
type Scalable interface {
	SetScale(scale float64)
}

// ScalableFunc adapts a function to Scalable.
type ScalableFunc func(scale float64)

// SetScale calls f(scale).
func (f ScalableFunc) SetScale(scale float64) { f(scale) }

// Compensator derives the marker scale from a base field of view captured
// once at initial load. Scale is base/current: narrowing the field of view
// (zooming in) grows the markers with the magnified panorama.
type Compensator struct {
	mu       sync.Mutex
	base     float64
	captured bool
	scale    float64
}

// NewCompensator returns a compensator with no base and a 1x scale.
func NewCompensator() *Compensator {
	return &Compensator{scale: 1}
}

// CaptureBase records hfov as the base field of view. Only the first valid
// reading is kept; later calls and invalid readings are ignored. It
// reports whether the base was set by this call.
func (c *Compensator) CaptureBase(hfov float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.captured || !validHFOV(hfov) {
		return false
	}
	c.base = hfov
	c.captured = true
	return true
}

// Base returns the captured base field of view and whether one was captured.
func (c *Compensator) Base() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.base, c.captured
}

// Factor returns base/hfov. ok is false when hfov is not a positive finite
// number or no base has been captured yet.
func (c *Compensator) Factor(hfov float64) (scale float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factorLocked(hfov)
}

func validHFOV(hfov float64) bool {
	return hfov > 0 && !math.IsInf(hfov, 1)
}

func (c *Compensator) factorLocked(hfov float64) (float64, bool) {
	if !validHFOV(hfov) || !c.captured {
		return 0, false
	}
	return c.base / hfov, true
}

// RescaleAll applies base/hfov to every marker. An invalid reading skips the
// pass entirely and the previous scale is retained. It returns the scale in
// effect afterwards and whether the pass ran.
func (c *Compensator) RescaleAll(hfov float64, markers []Scalable) (float64, bool) {
	c.mu.Lock()
	scale, ok := c.factorLocked(hfov)
	if !ok {
		prev := c.scale
		c.mu.Unlock()
		return prev, false
	}
	c.scale = scale
	c.mu.Unlock()

	for _, m := range markers {
		m.SetScale(scale)
	}
	return scale, true
}

// Scale returns the scale applied by the last successful pass.
func (c *Compensator) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}
