// Package sim provides a kinematic stand-in for a real vehicle so the
// navigator can be exercised on a bench without hardware.
package sim

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"wpnav/internal/command"
	"wpnav/internal/geom"
	"wpnav/internal/pose"
)

// Vehicle is a point mass that flies straight at the last commanded setpoint.
//
// Position is kept as (x, y, altitude); samples are emitted in the same
// down-positive frame as live input. A Vehicle is owned by a single
// goroutine (normally Run).
type Vehicle struct {
	SpeedMps   float64
	YawRateRps float64

	pos       r3.Vector
	yaw       float64
	target    command.Setpoint
	hasTarget bool
}

// NewVehicle places a vehicle at start (x, y, altitude) with zero yaw.
func NewVehicle(start r3.Vector, speedMps, yawRateRps float64) *Vehicle {
	return &Vehicle{SpeedMps: speedMps, YawRateRps: yawRateRps, pos: start}
}

func (v *Vehicle) SetTarget(sp command.Setpoint) {
	v.target = sp
	v.hasTarget = true
}

// Step advances the vehicle by dt and returns the resulting sample. Without
// a target the vehicle holds its position.
func (v *Vehicle) Step(dt time.Duration) pose.StateSample {
	if v.hasTarget && dt > 0 {
		sec := dt.Seconds()

		goal := r3.Vector{X: v.target.X, Y: v.target.Y, Z: v.target.Altitude}
		d := goal.Sub(v.pos)
		dist := d.Norm()
		maxStep := v.SpeedMps * sec
		if dist <= maxStep {
			v.pos = goal
		} else {
			v.pos = v.pos.Add(d.Mul(maxStep / dist))
		}

		diff := geom.Wrap(v.target.Yaw - v.yaw)
		maxTurn := v.YawRateRps * sec
		if math.Abs(diff) <= maxTurn {
			v.yaw = geom.Wrap(v.target.Yaw)
		} else {
			v.yaw = geom.Wrap(v.yaw + math.Copysign(maxTurn, diff))
		}
	}
	return v.Sample()
}

// Sample reports the current state without moving.
func (v *Vehicle) Sample() pose.StateSample {
	return pose.StateSample{
		Position:    r3.Vector{X: v.pos.X, Y: v.pos.Y, Z: -v.pos.Z},
		Orientation: pose.FromYaw(v.yaw),
	}
}

// Run steps the vehicle once per rate tick of clk and sends each sample to
// out. New setpoints are picked up from setpoints as they arrive. It returns
// ctx.Err() when ctx is done.
func (v *Vehicle) Run(ctx context.Context, clk clock.Clock, rate time.Duration, setpoints <-chan command.Setpoint, out chan<- pose.StateSample) error {
	if clk == nil {
		clk = clock.New()
	}
	ticker := clk.Ticker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sp := <-setpoints:
			v.SetTarget(sp)
		case <-ticker.C:
			s := v.Step(rate)
			select {
			case out <- s:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
