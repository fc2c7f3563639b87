// Package wire encodes and decodes the framed binary messages exchanged with
// the state estimator, the flight controller and relative-pose consumers.
//
// Every message is one byte of ID followed by little-endian float64 fields,
// then framed with Frame.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"wpnav/internal/command"
	"wpnav/internal/pose"
)

const (
	IDStateSample  byte = 0x10
	IDSetpoint     byte = 0x20
	IDRelativePose byte = 0x21
)

const (
	stateSampleLen  = 1 + 7*8
	setpointLen     = 1 + 1 + 4*8
	relativePoseLen = 1 + 4*8
)

var ErrBadCRC = errors.New("crc mismatch")

func putFloats(dst []byte, vals ...float64) {
	for i, v := range vals {
		binary.LittleEndian.PutUint64(dst[i*8:], math.Float64bits(v))
	}
}

func getFloat(src []byte, i int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(src[i*8:]))
}

// StateSampleFrame builds and frames a state sample (0x10):
// position x, y, z then quaternion w, x, y, z.
func StateSampleFrame(s pose.StateSample) []byte {
	msg := make([]byte, stateSampleLen)
	msg[0] = IDStateSample
	q := s.Orientation
	putFloats(msg[1:], s.Position.X, s.Position.Y, s.Position.Z, q.Real, q.Imag, q.Jmag, q.Kmag)
	return Frame(msg)
}

// SetpointFrame builds and frames a setpoint (0x20): mode byte, then
// x, y, altitude, yaw.
func SetpointFrame(sp command.Setpoint) []byte {
	msg := make([]byte, setpointLen)
	msg[0] = IDSetpoint
	msg[1] = byte(sp.Mode)
	putFloats(msg[2:], sp.X, sp.Y, sp.Altitude, sp.Yaw)
	return Frame(msg)
}

// RelativePoseFrame builds and frames a relative pose (0x21):
// x, y, yaw, altitude.
func RelativePoseFrame(rp pose.RelativePose) []byte {
	msg := make([]byte, relativePoseLen)
	msg[0] = IDRelativePose
	putFloats(msg[1:], rp.X, rp.Y, rp.Yaw, rp.Altitude)
	return Frame(msg)
}

// Decode unframes frame and returns one of pose.StateSample,
// command.Setpoint or pose.RelativePose.
func Decode(frame []byte) (any, error) {
	msg, ok, err := Unframe(frame)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBadCRC
	}
	switch msg[0] {
	case IDStateSample:
		if len(msg) != stateSampleLen {
			return nil, fmt.Errorf("state sample: length %d want %d", len(msg), stateSampleLen)
		}
		p := msg[1:]
		return pose.StateSample{
			Position: r3.Vector{X: getFloat(p, 0), Y: getFloat(p, 1), Z: getFloat(p, 2)},
			Orientation: quat.Number{
				Real: getFloat(p, 3),
				Imag: getFloat(p, 4),
				Jmag: getFloat(p, 5),
				Kmag: getFloat(p, 6),
			},
		}, nil
	case IDSetpoint:
		if len(msg) != setpointLen {
			return nil, fmt.Errorf("setpoint: length %d want %d", len(msg), setpointLen)
		}
		p := msg[2:]
		return command.Setpoint{
			Mode:     command.Mode(msg[1]),
			X:        getFloat(p, 0),
			Y:        getFloat(p, 1),
			Altitude: getFloat(p, 2),
			Yaw:      getFloat(p, 3),
		}, nil
	case IDRelativePose:
		if len(msg) != relativePoseLen {
			return nil, fmt.Errorf("relative pose: length %d want %d", len(msg), relativePoseLen)
		}
		p := msg[1:]
		return pose.RelativePose{X: getFloat(p, 0), Y: getFloat(p, 1), Yaw: getFloat(p, 2), Altitude: getFloat(p, 3)}, nil
	default:
		return nil, fmt.Errorf("unknown message id 0x%02x", msg[0])
	}
}

// DecodeStateSample is Decode restricted to state samples.
func DecodeStateSample(frame []byte) (pose.StateSample, error) {
	m, err := Decode(frame)
	if err != nil {
		return pose.StateSample{}, err
	}
	s, ok := m.(pose.StateSample)
	if !ok {
		return pose.StateSample{}, fmt.Errorf("expected state sample, got %T", m)
	}
	return s, nil
}
