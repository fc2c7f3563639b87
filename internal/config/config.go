package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"wpnav/internal/waypoint"
)

const (
	SourceLive   = "live"
	SourceSim    = "sim"
	SourceReplay = "replay"
)

const (
	defaultThreshold        = 5.0
	defaultHeadingThreshold = 0.035
	defaultStartupDelay     = 2 * time.Second
)

type Config struct {
	Waypoints        [][]float64    `yaml:"waypoints"`
	WaypointsFile    string         `yaml:"waypoints_file"`
	Threshold        *float64       `yaml:"threshold"`
	HeadingThreshold *float64       `yaml:"heading_threshold"`
	Cycle            *bool          `yaml:"cycle"`
	PrintWPReached   *bool          `yaml:"print_wp_reached"`
	StartupDelay     *time.Duration `yaml:"startup_delay"`

	Source       string             `yaml:"source"`
	State        StateConfig        `yaml:"state"`
	Command      CommandConfig      `yaml:"command"`
	RelativePose RelativePoseConfig `yaml:"relative_pose"`
	Sim          SimConfig          `yaml:"sim"`
	Record       RecordConfig       `yaml:"record"`
	Replay       ReplayConfig       `yaml:"replay"`
	Web          WebConfig          `yaml:"web"`
	Log          LogConfig          `yaml:"log"`

	// WaypointList is the validated form of Waypoints (or of the
	// waypoints_file contents). It is filled by Load.
	WaypointList []waypoint.Waypoint `yaml:"-"`
}

type StateConfig struct {
	Listen string `yaml:"listen"`
}

type CommandConfig struct {
	Dest   string       `yaml:"dest"`
	Serial SerialConfig `yaml:"serial"`
}

type SerialConfig struct {
	Enable bool   `yaml:"enable"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

type RelativePoseConfig struct {
	Dest string `yaml:"dest"`
}

type SimConfig struct {
	Rate       time.Duration `yaml:"rate"`
	SpeedMps   float64       `yaml:"speed_mps"`
	YawRateRps float64       `yaml:"yaw_rate_rps"`
	Start      []float64     `yaml:"start"` // x, y, altitude
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PosThreshold returns the configured position threshold (distance units).
func (c Config) PosThreshold() float64 {
	if c.Threshold == nil {
		return defaultThreshold
	}
	return *c.Threshold
}

// HeadingThresholdRad returns the configured heading threshold in radians.
func (c Config) HeadingThresholdRad() float64 {
	if c.HeadingThreshold == nil {
		return defaultHeadingThreshold
	}
	return *c.HeadingThreshold
}

func (c Config) Cyclical() bool {
	return c.Cycle == nil || *c.Cycle
}

func (c Config) PrintReached() bool {
	return c.PrintWPReached == nil || *c.PrintWPReached
}

func (c Config) Delay() time.Duration {
	if c.StartupDelay == nil {
		return defaultStartupDelay
	}
	return *c.StartupDelay
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML config bytes, applies defaults and validates the result.
// Unknown fields are rejected.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, unknownFieldsErr(err)
	}

	if err := cfg.resolveWaypoints(); err != nil {
		return Config{}, err
	}

	if cfg.Threshold != nil && !(*cfg.Threshold > 0) {
		return Config{}, fmt.Errorf("threshold must be > 0")
	}
	if cfg.HeadingThreshold != nil && !(*cfg.HeadingThreshold > 0) {
		return Config{}, fmt.Errorf("heading_threshold must be > 0")
	}
	if cfg.StartupDelay != nil && *cfg.StartupDelay < 0 {
		return Config{}, fmt.Errorf("startup_delay must be >= 0")
	}

	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	if cfg.Source == "" {
		cfg.Source = SourceLive
	}
	switch cfg.Source {
	case SourceLive, SourceSim, SourceReplay:
	default:
		return Config{}, fmt.Errorf("source must be one of live, sim, replay")
	}

	if cfg.State.Listen == "" {
		cfg.State.Listen = "127.0.0.1:14550"
	}
	if cfg.Command.Dest == "" {
		cfg.Command.Dest = "127.0.0.1:14551"
	}
	if cfg.RelativePose.Dest == "" {
		cfg.RelativePose.Dest = "127.0.0.1:14552"
	}

	if cfg.Command.Serial.Enable {
		if cfg.Command.Serial.Device == "" {
			return Config{}, fmt.Errorf("command.serial.device is required when command.serial.enable is true")
		}
		if cfg.Command.Serial.Baud == 0 {
			cfg.Command.Serial.Baud = 115200
		}
		if cfg.Command.Serial.Baud < 0 {
			return Config{}, fmt.Errorf("command.serial.baud must be > 0")
		}
	}

	if cfg.Source == SourceReplay {
		if cfg.Replay.Path == "" {
			return Config{}, fmt.Errorf("replay.path is required when source is 'replay'")
		}
		if cfg.Record.Enable {
			return Config{}, fmt.Errorf("record cannot be used with source 'replay'")
		}
	}
	if cfg.Replay.Speed == 0 {
		cfg.Replay.Speed = 1
	}
	if cfg.Replay.Speed < 0 {
		return Config{}, fmt.Errorf("replay.speed must be > 0")
	}

	if cfg.Record.Enable && cfg.Record.Path == "" {
		return Config{}, fmt.Errorf("record.path is required when record.enable is true")
	}

	// Simulator defaults (safe even if the sim source is not selected).
	if cfg.Sim.Rate <= 0 {
		cfg.Sim.Rate = 20 * time.Millisecond
	}
	if cfg.Sim.SpeedMps <= 0 {
		cfg.Sim.SpeedMps = 5
	}
	if cfg.Sim.YawRateRps <= 0 {
		cfg.Sim.YawRateRps = 1
	}
	if len(cfg.Sim.Start) == 0 {
		cfg.Sim.Start = []float64{0, 0, 0}
	}
	if len(cfg.Sim.Start) != 3 {
		return Config{}, fmt.Errorf("sim.start must have 3 components")
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("log.level must be one of debug, info, warn, error")
	}

	return cfg, nil
}

func (c *Config) resolveWaypoints() error {
	if len(c.Waypoints) > 0 && c.WaypointsFile != "" {
		return fmt.Errorf("waypoints and waypoints_file cannot both be set")
	}
	if c.WaypointsFile != "" {
		list, err := waypoint.LoadFile(c.WaypointsFile)
		if err != nil {
			return fmt.Errorf("waypoints_file: %w", err)
		}
		c.WaypointList = list
	} else {
		list, err := waypoint.ParseList(c.Waypoints)
		if err != nil {
			return err
		}
		c.WaypointList = list
	}
	if len(c.WaypointList) == 0 {
		return fmt.Errorf("waypoints: %w", waypoint.ErrEmptyWaypoints)
	}
	return nil
}

// unknownFieldsErr rewrites yaml.v3's strict-mode error into a single line
// without the per-line prefixes.
func unknownFieldsErr(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	msgs := make([]string, 0, len(te.Errors))
	unknown := true
	for _, e := range te.Errors {
		if _, rest, ok := strings.Cut(e, ": "); ok && strings.HasPrefix(e, "line ") {
			e = rest
		}
		if !strings.Contains(e, "not found in type") {
			unknown = false
		}
		msgs = append(msgs, e)
	}
	if !unknown {
		return err
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(msgs, "; "))
}
