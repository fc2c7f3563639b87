package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	"wpnav/internal/command"
	"wpnav/internal/pose"
	"wpnav/internal/replay"
	"wpnav/internal/wire"
)

func TestSummarizeStateLog(t *testing.T) {
	state := wire.StateSampleFrame(pose.StateSample{Position: r3.Vector{X: 1}, Orientation: pose.FromYaw(0)})
	sp := wire.SetpointFrame(command.Setpoint{X: 2, Mode: command.ModeXPosYPosYawAltitude})
	bad := []byte{0x7E, 0x7D, 0x7E}

	recs := []replay.Record{
		{At: 0, Frame: nil},
		{At: 0, Frame: state},
		{At: 200 * time.Millisecond, Frame: sp},
		{At: 300 * time.Millisecond, Frame: bad},
		{At: 0, Frame: nil},
		{At: 1 * time.Second, Frame: state},
	}

	s := summarizeStateLog(recs)
	if s.Segments != 2 {
		t.Fatalf("segments=%d want %d", s.Segments, 2)
	}
	if s.Frames != 4 {
		t.Fatalf("frames=%d want %d", s.Frames, 4)
	}
	if s.Invalid != 1 {
		t.Fatalf("invalid=%d want %d", s.Invalid, 1)
	}
	if s.MsgIDCounts[wire.IDStateSample] != 2 {
		t.Fatalf("count[state]=%d want %d", s.MsgIDCounts[wire.IDStateSample], 2)
	}
	if s.MsgIDCounts[wire.IDSetpoint] != 1 {
		t.Fatalf("count[setpoint]=%d want %d", s.MsgIDCounts[wire.IDSetpoint], 1)
	}
	if s.MaxDuration != 1*time.Second {
		t.Fatalf("maxDuration=%s want %s", s.MaxDuration, 1*time.Second)
	}
}

func TestSummarizeStateLog_NoStartMarker(t *testing.T) {
	s := summarizeStateLog([]replay.Record{{At: 0, Frame: wire.RelativePoseFrame(pose.RelativePose{})}})
	if s.Segments != 1 || s.Frames != 1 || s.MsgIDCounts[wire.IDRelativePose] != 1 {
		t.Fatalf("summary=%+v", s)
	}
}

func TestWriteLogSummary_PrintsExpectedFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "state.log")

	now := time.Now()
	w, err := replay.CreateWriter(logPath, now)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}
	if err := w.WriteFrame(now, wire.StateSampleFrame(pose.StateSample{Orientation: pose.FromYaw(0)})); err != nil {
		_ = w.Close()
		t.Fatalf("WriteFrame() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	var buf bytes.Buffer
	if err := writeLogSummary(&buf, logPath); err != nil {
		t.Fatalf("writeLogSummary() error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"path: ",
		"session: " + w.Session(),
		"segments: 1",
		"frames: 1",
		"invalid_frames: 0",
		"msg_id_counts:",
		"0x10: 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output: %q", want, out)
		}
	}
}

func TestWriteLogSummary_EmptyPath(t *testing.T) {
	if err := writeLogSummary(&bytes.Buffer{}, "  "); err == nil {
		t.Fatalf("expected error")
	}
}
