package web

import (
	"sync/atomic"
	"time"

	"wpnav/internal/command"
	"wpnav/internal/pose"
)

// Status is the runtime's published view of the navigator. The runtime
// writes it after every sample; HTTP handlers only read it.
type Status struct {
	startUnixNano int64
	samplesSeen   uint64
	commandsSent  uint64
	lastSampleNs  int64
	index         int64
	terminal      atomic.Bool
	source        atomic.Value // string
	setpoint      atomic.Value // command.Setpoint
	relPose       atomic.Value // pose.RelativePose
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.source.Store("")
	s.setpoint.Store(command.Setpoint{})
	s.relPose.Store(pose.RelativePose{})
	return s
}

func (s *Status) SetSource(source string) {
	s.source.Store(source)
}

// SetSetpoint latches the last published setpoint and counts it.
func (s *Status) SetSetpoint(sp command.Setpoint) {
	s.setpoint.Store(sp)
	atomic.AddUint64(&s.commandsSent, 1)
}

// SetRelativePose latches the last published relative pose.
func (s *Status) SetRelativePose(rp pose.RelativePose) {
	s.relPose.Store(rp)
}

// MarkSample records one processed sample and where the sequence stands.
func (s *Status) MarkSample(nowUTC time.Time, index int, terminal bool) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	atomic.StoreInt64(&s.index, int64(index))
	s.terminal.Store(terminal)
	atomic.StoreInt64(&s.lastSampleNs, nowUTC.UnixNano())
	atomic.AddUint64(&s.samplesSeen, 1)
}

type StatusSnapshot struct {
	Service       string            `json:"service"`
	NowUTC        string            `json:"now_utc"`
	UptimeSec     int64             `json:"uptime_sec"`
	Source        string            `json:"source"`
	Index         int               `json:"index"`
	Terminal      bool              `json:"terminal"`
	SamplesSeen   uint64            `json:"samples_seen"`
	CommandsSent  uint64            `json:"commands_sent"`
	LastSampleUTC string            `json:"last_sample_utc,omitempty"`
	Setpoint      command.Setpoint  `json:"setpoint"`
	RelativePose  pose.RelativePose `json:"relative_pose"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()
	last := atomic.LoadInt64(&s.lastSampleNs)

	snap := StatusSnapshot{
		Service:      "wpnav",
		NowUTC:       nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:    int64(nowUTC.Sub(start).Seconds()),
		Source:       s.source.Load().(string),
		Index:        int(atomic.LoadInt64(&s.index)),
		Terminal:     s.terminal.Load(),
		SamplesSeen:  atomic.LoadUint64(&s.samplesSeen),
		CommandsSent: atomic.LoadUint64(&s.commandsSent),
		Setpoint:     s.setpoint.Load().(command.Setpoint),
		RelativePose: s.relPose.Load().(pose.RelativePose),
	}
	if last != 0 {
		snap.LastSampleUTC = time.Unix(0, last).UTC().Format(time.RFC3339Nano)
	}
	return snap
}
