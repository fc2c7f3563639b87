// Package pose turns raw state samples into the planar pose used by the
// sequencer, and into the relative-pose record published downstream.
package pose

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// StateSample is one incoming state estimate.
//
// Position is in the vehicle's down-positive frame (Z grows toward the ground).
// Orientation is a unit quaternion with Real=w, Imag=x, Jmag=y, Kmag=z.
type StateSample struct {
	Position    r3.Vector
	Orientation quat.Number
}

// Estimate is the planar pose derived from a StateSample.
// Altitude is up-positive.
type Estimate struct {
	X        float64
	Y        float64
	Altitude float64
	Yaw      float64
}

// Point returns the estimate as an (x, y, altitude) vector.
func (e Estimate) Point() r3.Vector {
	return r3.Vector{X: e.X, Y: e.Y, Z: e.Altitude}
}

// RelativePose is the lightweight pose summary published for every sample.
type RelativePose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Yaw      float64 `json:"yaw"`
	Altitude float64 `json:"altitude"`
}

// Extract converts a raw sample into an Estimate. The vertical axis is
// negated so that altitude is up-positive.
func Extract(s StateSample) Estimate {
	return Estimate{
		X:        s.Position.X,
		Y:        s.Position.Y,
		Altitude: -s.Position.Z,
		Yaw:      Yaw(s.Orientation),
	}
}

// Yaw returns the heading component of q, ignoring roll and pitch.
// Exact for level attitude, a projection otherwise.
func Yaw(q quat.Number) float64 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
}

// FromYaw builds the unit quaternion for a pure rotation of yaw radians about
// the vertical axis.
func FromYaw(yaw float64) quat.Number {
	return quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
}

// Report maps an Estimate onto the outbound relative-pose record.
func Report(e Estimate) RelativePose {
	return RelativePose{X: e.X, Y: e.Y, Yaw: e.Yaw, Altitude: e.Altitude}
}
