package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wpnav/internal/command"
	"wpnav/internal/pose"
)

const eps = 1e-9

func TestVehicle_HoldsWithoutTarget(t *testing.T) {
	v := NewVehicle(r3.Vector{X: 1, Y: 2, Z: 10}, 5, 1)
	s := v.Step(time.Second)
	assert.Equal(t, r3.Vector{X: 1, Y: 2, Z: -10}, s.Position)
	assert.InDelta(t, 0, pose.Yaw(s.Orientation), eps)
}

func TestVehicle_StepLimitedBySpeed(t *testing.T) {
	v := NewVehicle(r3.Vector{}, 5, 1)
	v.SetTarget(command.Setpoint{X: 100, Y: 0, Altitude: 0, Yaw: 0})

	s := v.Step(time.Second)
	assert.InDelta(t, 5, s.Position.X, eps)
	assert.InDelta(t, 0, s.Position.Y, eps)

	s = v.Step(500 * time.Millisecond)
	assert.InDelta(t, 7.5, s.Position.X, eps)
}

func TestVehicle_ArrivesExactly(t *testing.T) {
	v := NewVehicle(r3.Vector{}, 5, 1)
	v.SetTarget(command.Setpoint{X: 3, Y: 4, Altitude: 10, Yaw: 0})

	var s pose.StateSample
	for i := 0; i < 10; i++ {
		s = v.Step(time.Second)
	}
	assert.Equal(t, r3.Vector{X: 3, Y: 4, Z: -10}, s.Position)

	est := pose.Extract(s)
	assert.InDelta(t, 10, est.Altitude, eps)
}

func TestVehicle_YawSlewsShortWay(t *testing.T) {
	v := NewVehicle(r3.Vector{}, 5, 1)
	v.yaw = 3.0
	v.SetTarget(command.Setpoint{Yaw: -3.0})

	// Shortest turn from 3.0 to -3.0 crosses π (positive direction).
	s := v.Step(100 * time.Millisecond)
	assert.InDelta(t, 3.1, pose.Yaw(s.Orientation), 1e-6)

	for i := 0; i < 10; i++ {
		s = v.Step(100 * time.Millisecond)
	}
	assert.InDelta(t, -3.0, pose.Yaw(s.Orientation), 1e-6)
}

func TestVehicle_RunTicksWithClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mock := clock.NewMock()
	v := NewVehicle(r3.Vector{}, 10, 1)
	setpoints := make(chan command.Setpoint, 1)
	out := make(chan pose.StateSample, 16)
	done := make(chan error, 1)
	go func() { done <- v.Run(ctx, mock, 100*time.Millisecond, setpoints, out) }()

	setpoints <- command.Setpoint{X: 100, Mode: command.ModeXPosYPosYawAltitude}

	// The goroutine may not have created its ticker or drained the setpoint
	// yet; keep advancing until the vehicle is seen moving.
	deadline := time.Now().Add(5 * time.Second)
	var moved bool
	for !moved && time.Now().Before(deadline) {
		mock.Add(100 * time.Millisecond)
		select {
		case s := <-out:
			if s.Position.X > 0 {
				moved = true
				assert.InDelta(t, 0, s.Position.Y, eps)
			}
		case <-time.After(10 * time.Millisecond):
		}
	}
	require.True(t, moved, "vehicle never moved")

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled), "err=%v", err)
}
