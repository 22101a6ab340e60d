package zoom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ scales []float64 }

func (r *recorder) SetScale(s float64) { r.scales = append(r.scales, s) }

func TestRescaleAll_Sequence(t *testing.T) {
	c := NewCompensator()
	require.True(t, c.CaptureBase(100))

	a, b := &recorder{}, &recorder{}
	markers := []Scalable{a, b}

	var got []float64
	for _, hfov := range []float64{100, 60, 120} {
		scale, ok := c.RescaleAll(hfov, markers)
		require.True(t, ok)
		got = append(got, scale)
	}

	require.Len(t, got, 3)
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.InDelta(t, 1.667, got[1], 1e-3)
	assert.InDelta(t, 0.833, got[2], 1e-3)
	assert.Equal(t, got, a.scales)
	assert.Equal(t, got, b.scales)
}

func TestFactor(t *testing.T) {
	c := NewCompensator()
	_, ok := c.Factor(90)
	assert.False(t, ok, "no base captured yet")

	c.CaptureBase(100)
	for _, hfov := range []float64{10, 50, 99.9, 100, 100.1, 120, 360} {
		scale, ok := c.Factor(hfov)
		require.True(t, ok)
		assert.InDelta(t, 100/hfov, scale, 1e-12)
		switch {
		case hfov < 100:
			assert.Greater(t, scale, 1.0)
		case hfov == 100:
			assert.Equal(t, 1.0, scale)
		default:
			assert.Less(t, scale, 1.0)
		}
	}
}

func TestRescaleAll_InvalidReading(t *testing.T) {
	c := NewCompensator()
	c.CaptureBase(100)
	m := &recorder{}

	scale, ok := c.RescaleAll(50, []Scalable{m})
	require.True(t, ok)
	assert.Equal(t, 2.0, scale)

	for _, hfov := range []float64{0, -30, math.NaN(), math.Inf(1), math.Inf(-1)} {
		scale, ok = c.RescaleAll(hfov, []Scalable{m})
		assert.False(t, ok)
		assert.Equal(t, 2.0, scale)
	}
	assert.Equal(t, []float64{2}, m.scales)
	assert.Equal(t, 2.0, c.Scale())
}

func TestCaptureBase_Once(t *testing.T) {
	c := NewCompensator()
	assert.False(t, c.CaptureBase(0))
	assert.False(t, c.CaptureBase(math.NaN()))
	assert.False(t, c.CaptureBase(math.Inf(1)))
	assert.True(t, c.CaptureBase(100))
	assert.False(t, c.CaptureBase(70))

	base, ok := c.Base()
	assert.True(t, ok)
	assert.Equal(t, 100.0, base)
}

func TestScalableFunc(t *testing.T) {
	c := NewCompensator()
	c.CaptureBase(80)
	var seen float64
	c.RescaleAll(40, []Scalable{ScalableFunc(func(s float64) { seen = s })})
	assert.Equal(t, 2.0, seen)
}
