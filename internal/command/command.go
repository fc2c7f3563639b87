package command

import (
	"fmt"

	"wpnav/internal/geom"
	"wpnav/internal/waypoint"
)

// Mode tells the flight controller how to interpret a Setpoint.
type Mode uint8

const (
	// ModeXPosYPosYawAltitude holds horizontal position, yaw and altitude.
	ModeXPosYPosYawAltitude Mode = 4
)

func (m Mode) String() string {
	switch m {
	case ModeXPosYPosYawAltitude:
		return "XPOS_YPOS_YAW_ALTITUDE"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// Setpoint is the high-level command sent to the flight controller.
type Setpoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Altitude float64 `json:"altitude"`
	Yaw      float64 `json:"yaw"`
	Mode     Mode    `json:"mode"`
}

// Synthesize builds the setpoint for the waypoint at index.
//
// When the waypoint has no explicit yaw, the vehicle is pointed along the
// bearing toward the following waypoint (wrapping to the first one).
func Synthesize(store *waypoint.Store, index int) Setpoint {
	target := store.Get(index)
	sp := Setpoint{
		X:        target.Position.X,
		Y:        target.Position.Y,
		Altitude: target.Position.Z,
		Mode:     ModeXPosYPosYawAltitude,
	}
	if target.HasYaw {
		sp.Yaw = target.Yaw
	} else {
		next := store.Get(store.Next(index))
		sp.Yaw = geom.Bearing(target.Position, next.Position)
	}
	return sp
}
