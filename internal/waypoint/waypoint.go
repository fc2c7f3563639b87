package waypoint

import (
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// Waypoint is a navigation target in the vehicle's local frame.
//
// Position holds (x, y, altitude). Yaw is only meaningful when HasYaw is set;
// waypoints without an explicit heading get one synthesized from the bearing
// to the next waypoint.
type Waypoint struct {
	Position r3.Vector
	Yaw      float64
	HasYaw   bool
}

// FromSlice builds a Waypoint from a 3 (x, y, alt) or 4 (x, y, alt, yaw)
// element vector.
func FromSlice(v []float64) (Waypoint, error) {
	switch len(v) {
	case 3:
		return Waypoint{Position: r3.Vector{X: v[0], Y: v[1], Z: v[2]}}, nil
	case 4:
		return Waypoint{Position: r3.Vector{X: v[0], Y: v[1], Z: v[2]}, Yaw: v[3], HasYaw: true}, nil
	default:
		return Waypoint{}, fmt.Errorf("waypoint must have 3 or 4 components, got %d", len(v))
	}
}

// Slice is the inverse of FromSlice.
func (w Waypoint) Slice() []float64 {
	if w.HasYaw {
		return []float64{w.Position.X, w.Position.Y, w.Position.Z, w.Yaw}
	}
	return []float64{w.Position.X, w.Position.Y, w.Position.Z}
}

// ParseList converts raw vectors into waypoints, reporting the offending
// index on failure.
func ParseList(raw [][]float64) ([]Waypoint, error) {
	out := make([]Waypoint, 0, len(raw))
	for i, v := range raw {
		wp, err := FromSlice(v)
		if err != nil {
			return nil, fmt.Errorf("waypoints[%d]: %w", i, err)
		}
		out = append(out, wp)
	}
	return out, nil
}

// ParseYAML parses a waypoint file: a top-level YAML sequence of 3- or
// 4-element numeric sequences.
//
//	- [0, 0, 10]
//	- [10, 0, 10, 1.57]
func ParseYAML(b []byte) ([]Waypoint, error) {
	var raw [][]float64
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return ParseList(raw)
}

// LoadFile reads and parses a waypoint file from path.
func LoadFile(path string) ([]Waypoint, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(b)
}
