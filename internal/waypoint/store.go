// Package waypoint owns the ordered list of navigation targets.
//
// The list is fixed once a Store is built. The mutation entry points exist so
// that callers have a stable contract, but none of them is implemented yet:
// they log a diagnostic and return ErrNotImplemented without touching the list.
package waypoint

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrEmptyWaypoints is returned when a Store is built from an empty list.
	ErrEmptyWaypoints = errors.New("empty waypoint list")

	// ErrNotImplemented is returned by the runtime mutation operations.
	ErrNotImplemented = errors.New("not implemented")
)

type Store struct {
	list   []Waypoint
	logger *zap.SugaredLogger
}

// NewStore copies list into a new immutable Store.
func NewStore(list []Waypoint, logger *zap.SugaredLogger) (*Store, error) {
	if len(list) == 0 {
		return nil, ErrEmptyWaypoints
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	cp := make([]Waypoint, len(list))
	copy(cp, list)
	return &Store{list: cp, logger: logger}, nil
}

// Len returns the number of waypoints; always >= 1.
func (s *Store) Len() int {
	return len(s.list)
}

// Get returns the waypoint at index. Callers must keep index in [0, Len());
// anything else is a programming error and panics.
func (s *Store) Get(index int) Waypoint {
	if index < 0 || index >= len(s.list) {
		panic(fmt.Sprintf("waypoint: index %d out of range [0, %d)", index, len(s.list)))
	}
	return s.list[index]
}

// Next returns the index that follows index, wrapping to 0 after the last one.
func (s *Store) Next(index int) int {
	return (index + 1) % len(s.list)
}

// AddWaypoint takes the raw [x, y, z(, yaw)] components; the store owns
// their validation.
func (s *Store) AddWaypoint(components []float64) error {
	s.logger.Warnf("add waypoint %v: %v", components, ErrNotImplemented)
	return ErrNotImplemented
}

func (s *Store) RemoveWaypoint(index int) error {
	s.logger.Warnf("remove waypoint %d: %v", index, ErrNotImplemented)
	return ErrNotImplemented
}

func (s *Store) SetFromFile(path string) error {
	s.logger.Warnf("set waypoints from file %q: %v", path, ErrNotImplemented)
	return ErrNotImplemented
}
