package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
)

func TestWrap_Range(t *testing.T) {
	t.Parallel()

	for a := -20.0; a <= 20.0; a += 0.173 {
		w := Wrap(a)
		assert.Greater(t, w, -math.Pi, "wrap(%v)", a)
		assert.LessOrEqual(t, w, math.Pi, "wrap(%v)", a)
	}
}

func TestWrap_RangeNearLargeOddMultiplesOfPi(t *testing.T) {
	t.Parallel()

	for k := -1001; k <= 1001; k += 2 {
		for _, off := range []float64{-1e-12, 0, 1e-12} {
			a := float64(k)*math.Pi + off
			w := Wrap(a)
			if w <= -math.Pi || w > math.Pi {
				t.Fatalf("wrap(%v)=%v outside (-π, π]", a, w)
			}
		}
	}
}

func TestWrap_Boundaries(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "zero", in: 0, want: 0},
		{name: "pi stays pi", in: math.Pi, want: math.Pi},
		{name: "minus pi maps to pi", in: -math.Pi, want: math.Pi},
		{name: "just over pi", in: math.Pi + 0.1, want: -math.Pi + 0.1},
		{name: "small negative", in: -0.5, want: -0.5},
		{name: "full turn", in: 2 * math.Pi, want: 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, Wrap(tc.in), 1e-12)
		})
	}
}

func TestWrap_Periodic(t *testing.T) {
	t.Parallel()

	for _, a := range []float64{-2.5, -1, 0.3, 1.7, 3.0} {
		base := Wrap(a)
		for k := -5; k <= 5; k++ {
			assert.InDelta(t, base, Wrap(a+2*math.Pi*float64(k)), 1e-9, "a=%v k=%d", a, k)
		}
	}
}

func TestBearing(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, math.Pi/4, Bearing(r3.Vector{}, r3.Vector{X: 5, Y: 5}), 1e-12)
	assert.InDelta(t, 0.0, Bearing(r3.Vector{X: 1, Y: 1}, r3.Vector{X: 3, Y: 1}), 1e-12)
	assert.InDelta(t, math.Pi, Bearing(r3.Vector{X: 1}, r3.Vector{X: -1}), 1e-12)
	assert.InDelta(t, -math.Pi/2, Bearing(r3.Vector{}, r3.Vector{Y: -2, Z: 100}), 1e-12)
}

func TestDistance(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 5.0, Distance(r3.Vector{}, r3.Vector{X: 3, Y: 4}), 1e-12)
	assert.InDelta(t, math.Sqrt(3), Distance(r3.Vector{X: 1, Y: 1, Z: 1}, r3.Vector{}), 1e-12)
}
