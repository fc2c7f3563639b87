package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wpnav/internal/command"
	"wpnav/internal/config"
	"wpnav/internal/link"
	"wpnav/internal/pose"
	"wpnav/internal/replay"
	"wpnav/internal/sequencer"
	"wpnav/internal/sim"
	"wpnav/internal/udp"
	"wpnav/internal/waypoint"
	"wpnav/internal/web"
	"wpnav/internal/wire"
)

// errSourceDone ends the run when a finite source (non-looping replay) has
// delivered everything.
var errSourceDone = errors.New("state source finished")

// navigator owns the sequencer. All state transitions happen on the
// goroutine running loop, one sample at a time.
type navigator struct {
	seq      *sequencer.Sequencer
	commands link.Sink
	relPose  link.Sink
	status   *web.Status
	recorder *replay.Writer
	clk      clock.Clock
	logger   *zap.SugaredLogger

	// setpoints, when set, receives every published setpoint (sim source).
	setpoints chan command.Setpoint
}

func (n *navigator) publishSetpoint(sp command.Setpoint) {
	if err := n.commands.Send(wire.SetpointFrame(sp)); err != nil {
		n.logger.Warnf("send setpoint: %v", err)
	}
	n.status.SetSetpoint(sp)
	n.logger.Debugf("setpoint x=%.2f y=%.2f alt=%.2f yaw=%.3f", sp.X, sp.Y, sp.Altitude, sp.Yaw)
	if n.setpoints != nil {
		// Only the latest target matters to the simulator.
		select {
		case <-n.setpoints:
		default:
		}
		n.setpoints <- sp
	}
}

func (n *navigator) publishRelPose(rp pose.RelativePose) {
	if err := n.relPose.Send(wire.RelativePoseFrame(rp)); err != nil {
		n.logger.Warnf("send relative pose: %v", err)
	}
	n.status.SetRelativePose(rp)
}

// start waits out the startup delay, then publishes a zeroed relative pose
// and the initial setpoint.
func (n *navigator) start(ctx context.Context, delay time.Duration, initial command.Setpoint) error {
	if delay > 0 {
		n.logger.Infof("waiting %s before first publication", delay)
		t := n.clk.Timer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	n.publishRelPose(pose.RelativePose{})
	n.publishSetpoint(initial)
	return nil
}

// handleSample runs one estimate through the pipeline: report the relative
// pose, evaluate the active waypoint and publish a command on advance.
func (n *navigator) handleSample(s pose.StateSample) sequencer.Result {
	if n.recorder != nil {
		if err := n.recorder.WriteFrame(n.clk.Now(), wire.StateSampleFrame(s)); err != nil {
			n.logger.Warnf("record: %v", err)
		}
	}

	est := pose.Extract(s)
	rp := pose.Report(est)
	n.publishRelPose(rp)

	res := n.seq.AdvanceIfReached(est)
	if res.Command != nil {
		n.publishSetpoint(*res.Command)
	}

	st := n.seq.State()
	n.status.MarkSample(n.clk.Now().UTC(), st.Index, st.TerminalReached)
	return res
}

func (n *navigator) loop(ctx context.Context, in <-chan pose.StateSample) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-in:
			if !ok {
				return errSourceDone
			}
			n.handleSample(s)
		}
	}
}

// deps lets tests replace the outside world.
type deps struct {
	clk          clock.Clock
	commandSink  link.Sink
	relPoseSink  link.Sink
	replaySleep  replay.Sleeper
	disableDelay bool
}

func openSinks(cfg config.Config, logger *zap.SugaredLogger) (link.Sink, link.Sink, error) {
	cmdUDP, err := udp.NewBroadcaster(cfg.Command.Dest)
	if err != nil {
		return nil, nil, fmt.Errorf("command sink: %w", err)
	}
	commands := link.Fanout{cmdUDP}
	logger.Infof("command dest=%s", cfg.Command.Dest)

	if cfg.Command.Serial.Enable {
		ser, err := link.OpenSerial(cfg.Command.Serial.Device, cfg.Command.Serial.Baud)
		if err != nil {
			_ = commands.Close()
			return nil, nil, err
		}
		commands = append(commands, ser)
		logger.Infof("command serial=%s baud=%d", cfg.Command.Serial.Device, cfg.Command.Serial.Baud)
	}

	rel, err := udp.NewBroadcaster(cfg.RelativePose.Dest)
	if err != nil {
		_ = commands.Close()
		return nil, nil, fmt.Errorf("relative pose sink: %w", err)
	}
	logger.Infof("relative pose dest=%s", cfg.RelativePose.Dest)
	return commands, rel, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger, logs *web.LogBuffer, d *deps) error {
	if d == nil {
		d = &deps{}
	}
	if d.clk == nil {
		d.clk = clock.New()
	}

	store, err := waypoint.NewStore(cfg.WaypointList, logger.Named("waypoints"))
	if err != nil {
		return err
	}
	seq, initial, err := sequencer.New(store, sequencer.Config{
		PosThreshold:     cfg.PosThreshold(),
		HeadingThreshold: cfg.HeadingThresholdRad(),
		Cyclical:         cfg.Cyclical(),
		PrintReached:     cfg.PrintReached(),
	}, logger.Named("sequencer"))
	if err != nil {
		return err
	}
	logger.Infof("waypoints=%d cycle=%v threshold=%g heading_threshold=%g source=%s",
		store.Len(), cfg.Cyclical(), cfg.PosThreshold(), cfg.HeadingThresholdRad(), cfg.Source)

	commands, relPose := d.commandSink, d.relPoseSink
	if commands == nil || relPose == nil {
		commands, relPose, err = openSinks(cfg, logger)
		if err != nil {
			return err
		}
	}
	defer func() {
		if err := (link.Fanout{commands, relPose}).Close(); err != nil {
			logger.Warnf("close sinks: %v", err)
		}
	}()

	status := web.NewStatus()
	status.SetSource(cfg.Source)

	nav := &navigator{
		seq:      seq,
		commands: commands,
		relPose:  relPose,
		status:   status,
		clk:      d.clk,
		logger:   logger,
	}

	if cfg.Record.Enable {
		w, err := replay.CreateWriter(cfg.Record.Path, d.clk.Now())
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		defer func() { _ = w.Close() }()
		nav.recorder = w
		logger.Infof("recording state to %s session=%s", cfg.Record.Path, w.Session())
	}

	// Everything that can fail synchronously happens before the group exists,
	// so an early return never leaves group goroutines behind.
	samples := make(chan pose.StateSample, 16)
	var source func(ctx context.Context) error

	switch cfg.Source {
	case config.SourceLive:
		l, err := udp.Listen(ctx, cfg.State.Listen, logger.Named("state"))
		if err != nil {
			return err
		}
		logger.Infof("state listen=%s", l.Addr())
		source = func(ctx context.Context) error { return l.Run(ctx, samples) }

	case config.SourceSim:
		start := r3.Vector{X: cfg.Sim.Start[0], Y: cfg.Sim.Start[1], Z: cfg.Sim.Start[2]}
		v := sim.NewVehicle(start, cfg.Sim.SpeedMps, cfg.Sim.YawRateRps)
		nav.setpoints = make(chan command.Setpoint, 1)
		logger.Infof("sim rate=%s speed=%gm/s yaw_rate=%grad/s", cfg.Sim.Rate, cfg.Sim.SpeedMps, cfg.Sim.YawRateRps)
		source = func(ctx context.Context) error { return v.Run(ctx, d.clk, cfg.Sim.Rate, nav.setpoints, samples) }

	case config.SourceReplay:
		recs, err := replay.ReadFile(cfg.Replay.Path)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		logger.Infof("replay path=%s records=%d speed=%g loop=%v", cfg.Replay.Path, len(recs), cfg.Replay.Speed, cfg.Replay.Loop)
		sleeper := d.replaySleep
		if sleeper == nil {
			sleeper = replay.ClockSleeper{Clock: d.clk}
		}
		source = func(ctx context.Context) error {
			defer close(samples)
			return runReplay(ctx, recs, cfg.Replay, sleeper, samples, logger)
		}

	default:
		return fmt.Errorf("unknown source %q", cfg.Source)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return source(ctx) })

	if cfg.Web.Listen != "" {
		h := web.Handler(status, store, logs)
		g.Go(func() error { return web.Serve(ctx, cfg.Web.Listen, h, logger.Named("web")) })
	}

	g.Go(func() error {
		delay := cfg.Delay()
		if d.disableDelay {
			delay = 0
		}
		if err := nav.start(ctx, delay, initial); err != nil {
			return err
		}
		return nav.loop(ctx, samples)
	})

	err = g.Wait()
	if errors.Is(err, errSourceDone) {
		logger.Infof("state source finished")
		return nil
	}
	return err
}

// runReplay decodes recorded state frames and feeds them to out with their
// original relative timing. Frames that are not state samples are skipped.
func runReplay(ctx context.Context, recs []replay.Record, cfg config.ReplayConfig, sleeper replay.Sleeper, out chan<- pose.StateSample, logger *zap.SugaredLogger) error {
	return replay.Play(ctx, recs, cfg.Speed, cfg.Loop, sleeper, func(frame []byte) error {
		s, err := wire.DecodeStateSample(frame)
		if err != nil {
			logger.Debugf("replay: skipping frame: %v", err)
			return nil
		}
		select {
		case out <- s:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
