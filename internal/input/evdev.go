// Package input reads the rotary encoder and its push button from a Linux
// evdev character device and feeds them to the control loop.
package input

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// Linux input event types and codes, from linux/input-event-codes.h.
const (
	evSyn = 0x00
	evKey = 0x01
	evRel = 0x02

	relX     = 0x00
	relDial  = 0x07
	relWheel = 0x08

	keyRelease = 0
	keyPress   = 1
)

// eventSize is sizeof(struct input_event) on 64-bit Linux.
const eventSize = 24

const reopenDelay = 5 * time.Second

// Sink receives decoded input.
type Sink interface {
	Encoder(ctx context.Context, delta int, at time.Time) error
	Button(ctx context.Context, pressed bool, at time.Time) error
}

// Event is one raw input_event.
type Event struct {
	Time  time.Time
	Type  uint16
	Code  uint16
	Value int32
}

type rawEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// ReadEvent decodes one input_event from r.
func ReadEvent(r io.Reader) (Event, error) {
	var raw rawEvent
	if err := binary.Read(r, binary.NativeEndian, &raw); err != nil {
		return Event{}, err
	}
	return Event{
		Time:  time.Unix(raw.Sec, raw.Usec*int64(time.Microsecond)),
		Type:  raw.Type,
		Code:  raw.Code,
		Value: raw.Value,
	}, nil
}

// Reader forwards events from an evdev device to a Sink.
type Reader struct {
	path   string
	sink   Sink
	logger *slog.Logger
}

// NewReader creates a Reader for the device at path.
func NewReader(path string, sink Sink, logger *slog.Logger) *Reader {
	return &Reader{path: path, sink: sink, logger: logger}
}

// Run reads until ctx is cancelled, reopening the device if it goes away.
func (r *Reader) Run(ctx context.Context) {
	for {
		err := r.readDevice(ctx)
		if ctx.Err() != nil {
			return
		}
		r.logger.Warn("Input device unavailable", "device", r.path, "error", err, "retry_in", reopenDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reopenDelay):
		}
	}
}

func (r *Reader) readDevice(ctx context.Context) error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", errors.ErrDeviceUnavailable, r.path, err)
	}
	defer f.Close()

	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	r.logger.Info("Reading input device", "device", r.path)
	return r.Consume(ctx, f)
}

// Consume forwards every event from src until it fails or ctx ends.
func (r *Reader) Consume(ctx context.Context, src io.Reader) error {
	for {
		ev, err := ReadEvent(src)
		if err != nil {
			if stderrors.Is(err, io.ErrUnexpectedEOF) {
				return errors.Parsef("truncated input event")
			}
			return err
		}
		if err := r.dispatch(ctx, ev); err != nil && ctx.Err() == nil {
			r.logger.Debug("Input event rejected", "type", ev.Type, "code", ev.Code, "error", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (r *Reader) dispatch(ctx context.Context, ev Event) error {
	switch ev.Type {
	case evRel:
		switch ev.Code {
		case relX, relDial, relWheel:
			if ev.Value != 0 {
				return r.sink.Encoder(ctx, int(ev.Value), ev.Time)
			}
		}
	case evKey:
		switch ev.Value {
		case keyPress:
			return r.sink.Button(ctx, true, ev.Time)
		case keyRelease:
			return r.sink.Button(ctx, false, ev.Time)
		}
		// autorepeat (value 2) is ignored; long press is timed by the controller
	case evSyn:
	}
	return nil
}
