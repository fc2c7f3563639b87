// Package link carries framed messages to their consumers: the flight
// controller (UDP or serial) and relative-pose listeners.
package link

import (
	"fmt"

	"go.bug.st/serial"
	"go.uber.org/multierr"
)

// Sink accepts complete frames.
type Sink interface {
	Send(frame []byte) error
	Close() error
}

// Port is the subset of serial.Port used by SerialSink.
type Port interface {
	Write(p []byte) (int, error)
	Close() error
}

// SerialSink writes frames to a serial port. Frames are self-delimiting, so
// no extra separator is written.
type SerialSink struct {
	device string
	port   Port
}

type openFunc func(device string, mode *serial.Mode) (Port, error)

// OpenSerial opens device at baud, 8N1.
func OpenSerial(device string, baud int) (*SerialSink, error) {
	return openSerial(device, baud, func(device string, mode *serial.Mode) (Port, error) {
		return serial.Open(device, mode)
	})
}

func openSerial(device string, baud int, open openFunc) (*SerialSink, error) {
	if baud <= 0 {
		return nil, fmt.Errorf("serial baud must be > 0")
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return &SerialSink{device: device, port: p}, nil
}

func (s *SerialSink) Send(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	n, err := s.port.Write(frame)
	if err != nil {
		return fmt.Errorf("write %s: %w", s.device, err)
	}
	if n != len(frame) {
		return fmt.Errorf("write %s: short write %d/%d", s.device, n, len(frame))
	}
	return nil
}

func (s *SerialSink) Close() error {
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// Fanout sends every frame to all of its sinks. A failing sink does not stop
// delivery to the others; the errors are combined.
type Fanout []Sink

func (f Fanout) Send(frame []byte) error {
	var err error
	for _, s := range f {
		err = multierr.Append(err, s.Send(frame))
	}
	return err
}

func (f Fanout) Close() error {
	var err error
	for _, s := range f {
		err = multierr.Append(err, s.Close())
	}
	return err
}
