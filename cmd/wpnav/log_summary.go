package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"wpnav/internal/replay"
	"wpnav/internal/wire"
)

type logSummary struct {
	Session     string
	Segments    int
	Frames      int
	Invalid     int
	MaxDuration time.Duration
	MsgIDCounts map[byte]int
}

func summarizeStateLog(records []replay.Record) logSummary {
	s := logSummary{MsgIDCounts: map[byte]int{}}
	if len(records) == 0 {
		return s
	}

	var origin time.Duration
	hasFrames := false
	segments := 0

	for _, r := range records {
		if r.Frame == nil {
			segments++
			origin = r.At
			continue
		}
		hasFrames = true

		s.Frames++
		at := r.At - origin
		if at < 0 {
			at = 0
		}
		if at > s.MaxDuration {
			s.MaxDuration = at
		}

		msg, ok, err := wire.Unframe(r.Frame)
		if err != nil || !ok {
			s.Invalid++
			continue
		}
		s.MsgIDCounts[msg[0]]++
	}
	if segments == 0 && hasFrames {
		segments = 1
	}
	s.Segments = segments
	return s
}

func printLogSummary(path string) error {
	return writeLogSummary(os.Stdout, path)
}

func writeLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rr := replay.NewReader(f)
	recs, err := rr.ReadAll()
	if err != nil {
		return err
	}

	s := summarizeStateLog(recs)
	s.Session = rr.Session()

	fmt.Fprintf(w, "path: %s\n", path)
	if s.Session != "" {
		fmt.Fprintf(w, "session: %s\n", s.Session)
	}
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "frames: %d\n", s.Frames)
	fmt.Fprintf(w, "invalid_frames: %d\n", s.Invalid)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)

	keys := make([]int, 0, len(s.MsgIDCounts))
	for k := range s.MsgIDCounts {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	fmt.Fprintf(w, "msg_id_counts:\n")
	for _, k := range keys {
		fmt.Fprintf(w, "  0x%02X: %d\n", k, s.MsgIDCounts[byte(k)])
	}
	return nil
}
