package udp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"wpnav/internal/pose"
	"wpnav/internal/wire"
)

const maxDatagram = 2048

// Listener receives framed state samples, one per datagram.
type Listener struct {
	conn   net.PacketConn
	logger *zap.SugaredLogger
}

// Listen binds addr for UDP. On Linux the socket gets SO_REUSEADDR so a
// restarted process can rebind immediately.
func Listen(ctx context.Context, addr string, logger *zap.SugaredLogger) (*Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	conn, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	return newListener(conn, logger), nil
}

func newListener(conn net.PacketConn, logger *zap.SugaredLogger) *Listener {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Listener{conn: conn, logger: logger}
}

// Addr returns the bound local address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Run reads datagrams until ctx is done or the socket fails, decoding each as
// a state sample and sending it on out. Malformed datagrams are logged and
// dropped. Run closes the socket before returning.
func (l *Listener) Run(ctx context.Context, out chan<- pose.StateSample) error {
	defer l.conn.Close()

	buf := make([]byte, maxDatagram)
	var dropped uint64
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = l.conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, from, err := l.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read udp: %w", err)
		}

		s, err := wire.DecodeStateSample(buf[:n])
		if err != nil {
			dropped++
			l.logger.Debugf("dropping datagram from %s (%d dropped): %v", from, dropped, err)
			continue
		}
		select {
		case out <- s:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) Close() error {
	return l.conn.Close()
}
