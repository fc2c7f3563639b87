package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Log format: line-oriented text.
//
// - Blank lines ignored.
// - "# session <uuid>" names the recording session; other '#' lines are comments.
// - Line "START" resets the origin (next record time is relative to 0 again).
// - Data lines are: <t_ns>,<hex>
//   where t_ns is nanoseconds since START and hex is one raw wire frame.

const sessionPrefix = "# session "

type Record struct {
	At    time.Duration
	Frame []byte
}

type Reader struct {
	r       io.Reader
	session string
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Session returns the last session id seen by ReadAll, or "".
func (rr *Reader) Session() string { return rr.session }

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	recs := make([]Record, 0, 1024)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, sessionPrefix) {
			id, err := uuid.Parse(strings.TrimSpace(line[len(sessionPrefix):]))
			if err != nil {
				return nil, fmt.Errorf("invalid replay session: %w", err)
			}
			rr.session = id.String()
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" {
			recs = append(recs, Record{At: 0, Frame: nil})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("invalid replay line (missing comma): %q", line)
		}
		tsStr := strings.TrimSpace(line[:comma])
		hexStr := strings.TrimSpace(line[comma+1:])
		if tsStr == "" || hexStr == "" {
			return nil, fmt.Errorf("invalid replay line (empty field): %q", line)
		}

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid replay timestamp %q: %w", tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("invalid replay timestamp (negative): %d", tsNs)
		}

		hexStr = strings.ReplaceAll(hexStr, " ", "")
		b, err := hex.DecodeString(hexStr)
		if err != nil {
			return nil, fmt.Errorf("invalid replay hex payload: %w", err)
		}
		if len(b) == 0 {
			return nil, fmt.Errorf("invalid replay payload (empty)")
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Frame: b})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// ReadFile loads every record of the log at path.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

// Writer records frames with timestamps relative to its creation.
type Writer struct {
	f       *os.File
	w       *bufio.Writer
	start   time.Time
	session uuid.UUID
	closed  bool
}

func CreateWriter(path string, now time.Time) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	bw := bufio.NewWriterSize(f, 64*1024)
	if _, err := fmt.Fprintf(bw, "%s%s\nSTART\n", sessionPrefix, id); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: now, session: id}, nil
}

func (ww *Writer) Session() string { return ww.session.String() }

func (ww *Writer) WriteFrame(now time.Time, frame []byte) error {
	if ww.closed {
		return errors.New("replay writer is closed")
	}
	if frame == nil {
		return errors.New("frame is nil")
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), hex.EncodeToString(frame))
	return err
}

func (ww *Writer) Flush() error {
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

// Sleeper waits out the gap between records. Sleep returns ctx.Err() if ctx
// ends first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ClockSleeper sleeps on a clock.Clock timer.
type ClockSleeper struct {
	Clock clock.Clock
}

func (s ClockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := s.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play replays records with their relative timing.
//
// cb is invoked for each record that carries a frame. START markers reset the
// origin. speed: 1.0 = real time, 2.0 = half waits, 0.5 = double waits.
// ctx is checked between records and ends any wait early.
func Play(ctx context.Context, records []Record, speed float64, loop bool, sleeper Sleeper, cb func(frame []byte) error) error {
	if speed <= 0 {
		return fmt.Errorf("replay.speed must be > 0")
	}
	if sleeper == nil {
		sleeper = ClockSleeper{Clock: clock.New()}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var origin time.Duration
		var lastAt time.Duration
		var haveLast bool

		for _, r := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.Frame == nil {
				origin = r.At
				lastAt = 0
				haveLast = false
				continue
			}

			at := r.At - origin
			if at < 0 {
				at = 0
			}
			if haveLast {
				wait := at - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speed)
				if wait > 0 {
					if err := sleeper.Sleep(ctx, wait); err != nil {
						return err
					}
				}
			}

			if err := cb(r.Frame); err != nil {
				return err
			}

			lastAt = at
			haveLast = true
		}

		if !loop {
			return nil
		}
	}
}
