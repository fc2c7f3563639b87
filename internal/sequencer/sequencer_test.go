package sequencer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"wpnav/internal/command"
	"wpnav/internal/pose"
	"wpnav/internal/waypoint"
)

func newStore(t *testing.T, raw [][]float64) *waypoint.Store {
	t.Helper()
	list, err := waypoint.ParseList(raw)
	require.NoError(t, err)
	s, err := waypoint.NewStore(list, nil)
	require.NoError(t, err)
	return s
}

func defaultConfig(cyclical bool) Config {
	return Config{
		PosThreshold:     DefaultPosThreshold,
		HeadingThreshold: DefaultHeadingThreshold,
		Cyclical:         cyclical,
		PrintReached:     true,
	}
}

func newObserved(t *testing.T, raw [][]float64, cfg Config) (*Sequencer, command.Setpoint, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	seq, initial, err := New(newStore(t, raw), cfg, zap.New(core).Sugar())
	require.NoError(t, err)
	return seq, initial, logs
}

func at(x, y, alt, yaw float64) pose.Estimate {
	return pose.Estimate{X: x, Y: y, Altitude: alt, Yaw: yaw}
}

func TestNew_InitialCommandFromFirstWaypoint(t *testing.T) {
	seq, initial, _ := newObserved(t, [][]float64{{1, 2, 3, 0.5}, {10, 0, 0, 0}}, defaultConfig(true))

	assert.Equal(t, command.Setpoint{X: 1, Y: 2, Altitude: 3, Yaw: 0.5, Mode: command.ModeXPosYPosYawAltitude}, initial)
	assert.Equal(t, State{
		Index:            0,
		Cyclical:         true,
		PosThreshold:     DefaultPosThreshold,
		HeadingThreshold: DefaultHeadingThreshold,
	}, seq.State())
}

func TestNew_RejectsBadThresholds(t *testing.T) {
	store := newStore(t, [][]float64{{0, 0, 0}})
	for _, cfg := range []Config{
		{PosThreshold: 0, HeadingThreshold: 1},
		{PosThreshold: -1, HeadingThreshold: 1},
		{PosThreshold: 1, HeadingThreshold: 0},
		{PosThreshold: math.NaN(), HeadingThreshold: 1},
		{PosThreshold: 1, HeadingThreshold: math.Inf(1)},
	} {
		_, _, err := New(store, cfg, nil)
		assert.True(t, errors.Is(err, ErrInvalidThreshold), "cfg=%+v err=%v", cfg, err)
	}
}

func TestNew_NilStore(t *testing.T) {
	_, _, err := New(nil, defaultConfig(true), nil)
	assert.ErrorIs(t, err, waypoint.ErrEmptyWaypoints)
}

// Distances are measured from the active waypoint, not the upcoming one.
func TestAdvance_FarFromActiveTarget(t *testing.T) {
	seq, _, logs := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))

	res := seq.AdvanceIfReached(at(9.9, 0, 0, 0))
	assert.False(t, res.Reached)
	assert.Nil(t, res.Command)
	assert.InDelta(t, 9.9, res.PositionError, 1e-12)
	assert.Equal(t, 0, seq.State().Index)
	assert.Equal(t, 0, logs.Len())
}

func TestAdvance_WithinThresholds(t *testing.T) {
	seq, _, logs := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))

	res := seq.AdvanceIfReached(at(4.9, 0, 0, 0))
	require.True(t, res.Reached)
	assert.Equal(t, 0, res.ReachedIndex)
	assert.False(t, res.Terminal)
	require.NotNil(t, res.Command)
	assert.Equal(t, command.Setpoint{X: 10, Y: 0, Altitude: 0, Yaw: 0, Mode: command.ModeXPosYPosYawAltitude}, *res.Command)
	assert.Equal(t, 1, seq.State().Index)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "reached waypoint 1", logs.All()[0].Message)
}

func TestAdvance_UsesFullThreeDimensionalDistance(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))

	// Horizontal offset alone is inside the threshold; altitude pushes it out.
	res := seq.AdvanceIfReached(at(3, 0, 4.5, 0))
	assert.False(t, res.Reached)
	assert.InDelta(t, math.Hypot(3, 4.5), res.PositionError, 1e-12)
}

func TestAdvance_ThresholdsAreStrict(t *testing.T) {
	t.Run("position", func(t *testing.T) {
		seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))
		res := seq.AdvanceIfReached(at(0, 5, 0, 0))
		assert.Equal(t, 5.0, res.PositionError)
		assert.False(t, res.Reached)
		assert.Equal(t, 0, seq.State().Index)
	})
	t.Run("heading", func(t *testing.T) {
		cfg := defaultConfig(true)
		cfg.HeadingThreshold = 0.5
		seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, 1.0}, {10, 0, 0, 0}}, cfg)
		res := seq.AdvanceIfReached(at(0, 0, 0, 0.5))
		assert.Equal(t, 0.5, res.HeadingError)
		assert.False(t, res.Reached)
		assert.Equal(t, 0, seq.State().Index)
	})
}

func TestAdvance_HeadingErrorWraps(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, math.Pi - 0.01}, {10, 0, 0, 0}}, defaultConfig(true))

	// -π+0.01 is only 0.02 rad away from π-0.01 once wrapped.
	res := seq.AdvanceIfReached(at(0, 0, 0, -math.Pi+0.01))
	assert.InDelta(t, 0.02, res.HeadingError, 1e-9)
	assert.True(t, res.Reached)
}

func TestAdvance_HeadingMismatchBlocks(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))

	res := seq.AdvanceIfReached(at(0, 0, 0, 0.2))
	assert.True(t, res.HeadingGated)
	assert.False(t, res.Reached)
}

// Waypoints without a yaw component skip heading gating entirely instead of
// faulting on the missing component.
func TestAdvance_MissingYawSkipsHeadingGate(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0}, {5, 5, 0, 1.0}}, defaultConfig(true))

	res := seq.AdvanceIfReached(at(0, 0, 0, 3.0))
	assert.False(t, res.HeadingGated)
	assert.Equal(t, 0.0, res.HeadingError)
	require.True(t, res.Reached)
	require.NotNil(t, res.Command)
	assert.Equal(t, 1.0, res.Command.Yaw)
}

func TestAdvance_SingleStepPerEstimate(t *testing.T) {
	cfg := defaultConfig(true)
	cfg.PosThreshold = 1e6
	cfg.HeadingThreshold = 10
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}}, cfg)

	for i := 1; i <= 9; i++ {
		res := seq.AdvanceIfReached(at(0, 0, 0, 0))
		require.True(t, res.Reached)
		assert.Equal(t, i%4, seq.State().Index, "step %d", i)
	}
}

func TestAdvance_CyclicalWrapsToStart(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(true))

	require.True(t, seq.AdvanceIfReached(at(0, 0, 0, 0)).Reached)
	res := seq.AdvanceIfReached(at(10, 0, 0, 0))
	require.True(t, res.Reached)
	assert.Equal(t, 1, res.ReachedIndex)
	assert.False(t, res.Terminal)
	require.NotNil(t, res.Command)
	assert.Equal(t, 0.0, res.Command.X)
	assert.Equal(t, 0, seq.State().Index)
}

func TestAdvance_NonCyclicalTerminates(t *testing.T) {
	seq, _, logs := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, defaultConfig(false))

	require.NotNil(t, seq.AdvanceIfReached(at(0, 0, 0, 0)).Command)
	require.Equal(t, 1, seq.State().Index)

	res := seq.AdvanceIfReached(at(10, 0, 0, 0))
	assert.True(t, res.Reached)
	assert.True(t, res.Terminal)
	assert.Nil(t, res.Command)
	assert.True(t, seq.State().TerminalReached)
	assert.Equal(t, 1, seq.State().Index)
	assert.Equal(t, 2, logs.Len())

	// Close or far, nothing changes any more.
	for _, est := range []pose.Estimate{at(10, 0, 0, 0), at(0, 0, 0, 0), at(500, 500, 500, 2)} {
		res := seq.AdvanceIfReached(est)
		assert.False(t, res.Reached)
		assert.False(t, res.Terminal)
		assert.Nil(t, res.Command)
		assert.Equal(t, 1, seq.State().Index)
		assert.True(t, seq.State().TerminalReached)
	}
	assert.Equal(t, 2, logs.Len())
}

func TestAdvance_NonCyclicalSingleWaypoint(t *testing.T) {
	seq, _, _ := newObserved(t, [][]float64{{0, 0, 0}}, defaultConfig(false))

	res := seq.AdvanceIfReached(at(0, 0, 0, 0))
	assert.True(t, res.Terminal)
	assert.Nil(t, res.Command)
	assert.Equal(t, 0, seq.State().Index)
}

func TestAdvance_PrintReachedDisabled(t *testing.T) {
	cfg := defaultConfig(true)
	cfg.PrintReached = false
	seq, _, logs := newObserved(t, [][]float64{{0, 0, 0, 0}, {10, 0, 0, 0}}, cfg)

	res := seq.AdvanceIfReached(at(0, 0, 0, 0))
	assert.True(t, res.Reached)
	assert.Equal(t, 0, logs.Len())
}

func TestAdvance_IndexStaysInBounds(t *testing.T) {
	cfg := defaultConfig(true)
	cfg.PosThreshold = 3
	wps := [][]float64{{0, 0, 0}, {5, 0, 0}, {5, 5, 0}}
	seq, _, _ := newObserved(t, wps, cfg)

	// Sweep estimates over a grid; every reachable state keeps a valid index.
	for i := 0; i < 200; i++ {
		x := float64(i%7) - 1
		y := float64(i%5) - 1
		seq.AdvanceIfReached(at(x, y, 0, 0))
		idx := seq.State().Index
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(wps))
	}
}
