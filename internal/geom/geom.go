// Package geom holds the planar angle helpers shared by the pose extractor,
// the sequencer and the command synthesizer.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

const twoPi = 2 * math.Pi

// Wrap maps any angle (radians) into the half-open interval (-π, π].
//
// math.Remainder is exact, so the result never leaves the interval however
// large the input is. Its -π case is folded onto π.
func Wrap(angle float64) float64 {
	r := math.Remainder(angle, twoPi)
	if r <= -math.Pi {
		return math.Pi
	}
	return r
}

// Bearing returns the planar heading (radians, atan2 convention) of the
// vector pointing from "from" to "to". Z is ignored.
func Bearing(from, to r3.Vector) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X)
}

// Distance is the full 3-D Euclidean distance between a and b.
func Distance(a, b r3.Vector) float64 {
	return floats.Distance([]float64{a.X, a.Y, a.Z}, []float64{b.X, b.Y, b.Z}, 2)
}
