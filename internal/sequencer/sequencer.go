// Package sequencer decides when the active waypoint has been reached and
// advances through the list.
//
// A Sequencer is not safe for concurrent use. It is meant to be driven by a
// single loop that feeds it one pose estimate at a time.
package sequencer

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"wpnav/internal/command"
	"wpnav/internal/geom"
	"wpnav/internal/pose"
	"wpnav/internal/waypoint"
)

const (
	DefaultPosThreshold     = 5.0
	DefaultHeadingThreshold = 0.035 // radians
)

// ErrInvalidThreshold is returned by New when a threshold is not a positive
// finite number.
var ErrInvalidThreshold = errors.New("threshold must be > 0")

type Config struct {
	PosThreshold     float64
	HeadingThreshold float64
	Cyclical         bool
	PrintReached     bool
}

// State is a copy of the sequencer's mutable state.
type State struct {
	Index            int
	Cyclical         bool
	PosThreshold     float64
	HeadingThreshold float64
	TerminalReached  bool
}

// Result describes what a single estimate did to the sequencer.
type Result struct {
	PositionError float64
	HeadingError  float64
	// HeadingGated is false when the active waypoint carries no yaw.
	HeadingGated bool

	// Reached is set when the estimate satisfied the thresholds of the active
	// waypoint and a notification was due. It stays false once a
	// non-cyclical list has terminated.
	Reached bool
	// ReachedIndex is the 0-based index of the waypoint that was reached.
	ReachedIndex int
	// Terminal is set on the estimate that latched the terminal state.
	Terminal bool

	// Command is non-nil only when the sequencer advanced.
	Command *command.Setpoint
}

type Sequencer struct {
	store  *waypoint.Store
	logger *zap.SugaredLogger

	index        int
	cyclical     bool
	posThresh    float64
	headThresh   float64
	printReached bool
	terminal     bool
}

// New validates cfg, builds a sequencer pointed at the first waypoint and
// returns the setpoint for that waypoint, which should be published right
// away.
func New(store *waypoint.Store, cfg Config, logger *zap.SugaredLogger) (*Sequencer, command.Setpoint, error) {
	if store == nil {
		return nil, command.Setpoint{}, waypoint.ErrEmptyWaypoints
	}
	if !validThreshold(cfg.PosThreshold) {
		return nil, command.Setpoint{}, fmt.Errorf("position %w, got %v", ErrInvalidThreshold, cfg.PosThreshold)
	}
	if !validThreshold(cfg.HeadingThreshold) {
		return nil, command.Setpoint{}, fmt.Errorf("heading %w, got %v", ErrInvalidThreshold, cfg.HeadingThreshold)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Sequencer{
		store:        store,
		logger:       logger,
		cyclical:     cfg.Cyclical,
		posThresh:    cfg.PosThreshold,
		headThresh:   cfg.HeadingThreshold,
		printReached: cfg.PrintReached,
	}
	return s, command.Synthesize(store, 0), nil
}

func validThreshold(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// State returns a snapshot of the current state.
func (s *Sequencer) State() State {
	return State{
		Index:            s.index,
		Cyclical:         s.cyclical,
		PosThreshold:     s.posThresh,
		HeadingThreshold: s.headThresh,
		TerminalReached:  s.terminal,
	}
}

// Errors reports how far est is from the active waypoint. When the waypoint
// has no yaw, the heading error is 0 and gated is false.
func (s *Sequencer) Errors(est pose.Estimate) (posErr, headingErr float64, gated bool) {
	target := s.store.Get(s.index)
	posErr = geom.Distance(est.Point(), target.Position)
	if target.HasYaw {
		headingErr = math.Abs(geom.Wrap(target.Yaw - est.Yaw))
		gated = true
	}
	return posErr, headingErr, gated
}

// AdvanceIfReached is the only state transition. It advances at most one
// waypoint per call.
func (s *Sequencer) AdvanceIfReached(est pose.Estimate) Result {
	var res Result
	res.PositionError, res.HeadingError, res.HeadingGated = s.Errors(est)

	if !(res.PositionError < s.posThresh && res.HeadingError < s.headThresh) {
		return res
	}
	if s.terminal {
		return res
	}

	res.Reached = true
	res.ReachedIndex = s.index
	if s.printReached {
		s.logger.Infof("reached waypoint %d", s.index+1)
	}

	next := s.store.Next(s.index)
	if !s.cyclical && s.index == s.store.Len()-1 {
		s.terminal = true
		s.printReached = false
		res.Terminal = true
		s.logger.Debugf("final waypoint %d reached, holding last command", s.index+1)
		return res
	}

	s.index = next
	sp := command.Synthesize(s.store, s.index)
	res.Command = &sp
	return res
}
