package companion

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// DefaultRetryInterval is the minimum time between reconnect attempts.
const DefaultRetryInterval = 30 * time.Second

// Availability is the reachability state of the companion device.
type Availability int

const (
	Unprobed Availability = iota
	Available
	Unavailable
)

func (a Availability) String() string {
	switch a {
	case Unprobed:
		return "unprobed"
	case Available:
		return "available"
	case Unavailable:
		return "unavailable"
	default:
		return "invalid"
	}
}

// Status is a point-in-time view of the device for readers outside the control loop.
type Status struct {
	Address      string    `json:"address" yaml:"address"`
	Availability string    `json:"availability" yaml:"availability"`
	LastRetry    time.Time `json:"last_retry,omitzero" yaml:"last_retry,omitempty"`
	UPnP         bool      `json:"upnp" yaml:"upnp"`
	Input        Input     `json:"input,omitempty" yaml:"input,omitempty"`
}

// Device gates every companion feature on its availability. It is owned by
// the control loop and is not safe for concurrent use.
type Device struct {
	address       string
	api           *HTTPAPI
	upnp          *UPnP
	retryInterval time.Duration
	logger        *slog.Logger
	clock         func() time.Time

	state     Availability
	lastRetry time.Time
	input     Input
	onChange  func(Availability)
}

// NewDevice creates a Device in the Unprobed state.
func NewDevice(address string, api *HTTPAPI, upnp *UPnP, retryInterval time.Duration, logger *slog.Logger) *Device {
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{
		address:       address,
		api:           api,
		upnp:          upnp,
		retryInterval: retryInterval,
		logger:        logger,
		clock:         time.Now,
		input:         InputUnknown,
	}
}

// SetClock replaces the clock used to stamp failed requests. The control
// loop passes its own so retries are measured against the tick's time.
func (d *Device) SetClock(clock func() time.Time) {
	if clock != nil {
		d.clock = clock
	}
}

// OnChange registers a callback invoked after every availability transition.
func (d *Device) OnChange(fn func(Availability)) {
	d.onChange = fn
}

// Availability returns the current state.
func (d *Device) Availability() Availability {
	return d.state
}

// Status returns a copy of the device state.
func (d *Device) Status() Status {
	return Status{
		Address:      d.address,
		Availability: d.state.String(),
		LastRetry:    d.lastRetry,
		UPnP:         d.upnpReady(),
		Input:        d.input,
	}
}

// MaybeReconnect probes the device when it is not available and the retry
// interval has elapsed since the last attempt. It reports whether a probe ran.
func (d *Device) MaybeReconnect(ctx context.Context, now time.Time) bool {
	switch d.state {
	case Available:
		return false
	case Unavailable:
		if now.Sub(d.lastRetry) < d.retryInterval {
			return false
		}
	}

	d.lastRetry = now
	st, err := d.api.PlayerStatus(ctx)
	if err != nil {
		d.logger.Debug("companion: status request failed", "address", d.address, "error", err)
		d.setState(Unavailable)
		return true
	}
	d.input = st.Input

	if d.upnp != nil {
		if err := d.upnp.Discover(ctx); err != nil {
			d.logger.Warn("companion: UPnP unavailable, using HTTP API for transport control", "address", d.address, "error", err)
		}
	}

	d.setState(Available)
	return true
}

// PlayPause toggles playback based on the current transport state.
func (d *Device) PlayPause(ctx context.Context) error {
	return d.guard(func() error {
		if !d.upnpReady() {
			return d.api.PlayerCmd(ctx, "onepause")
		}
		st, err := d.upnp.TransportState(ctx)
		if err != nil {
			return err
		}
		switch st {
		case StatePlaying, StateTransitioning:
			return d.upnp.Pause(ctx)
		case StateNoMediaPresent:
			return errors.InvalidInputf("no media loaded on %s", d.address)
		default:
			return d.upnp.Play(ctx)
		}
	})
}

// Play starts playback.
func (d *Device) Play(ctx context.Context) error {
	return d.transport(ctx, d.upnpOr((*UPnP).Play), "resume")
}

// Pause pauses playback.
func (d *Device) Pause(ctx context.Context) error {
	return d.transport(ctx, d.upnpOr((*UPnP).Pause), "pause")
}

// Stop stops playback.
func (d *Device) Stop(ctx context.Context) error {
	return d.transport(ctx, d.upnpOr((*UPnP).Stop), "stop")
}

// Next skips forward.
func (d *Device) Next(ctx context.Context) error {
	return d.transport(ctx, d.upnpOr((*UPnP).Next), "next")
}

// Previous skips back.
func (d *Device) Previous(ctx context.Context) error {
	return d.transport(ctx, d.upnpOr((*UPnP).Previous), "prev")
}

// TransportState returns the AVTransport state, or StateUnknown without UPnP.
func (d *Device) TransportState(ctx context.Context) (TransportState, error) {
	st := StateUnknown
	err := d.guard(func() error {
		if !d.upnpReady() {
			return nil
		}
		var err error
		st, err = d.upnp.TransportState(ctx)
		return err
	})
	return st, err
}

// SetInput selects in.
func (d *Device) SetInput(ctx context.Context, in Input) error {
	if _, err := ParseInput(string(in)); err != nil {
		return err
	}
	return d.guard(func() error {
		if err := d.api.SwitchMode(ctx, in); err != nil {
			return err
		}
		d.input = in
		return nil
	})
}

// CurrentInput reads the active input from the device.
func (d *Device) CurrentInput(ctx context.Context) (Input, error) {
	err := d.guard(func() error {
		st, err := d.api.PlayerStatus(ctx)
		if err != nil {
			return err
		}
		d.input = st.Input
		return nil
	})
	return d.input, err
}

// CycleInput selects the input after the current one in InputCycle.
func (d *Device) CycleInput(ctx context.Context) (Input, error) {
	current, err := d.CurrentInput(ctx)
	if err != nil {
		return InputUnknown, err
	}
	next := nextInput(current)
	if err := d.SetInput(ctx, next); err != nil {
		return current, err
	}
	return next, nil
}

func nextInput(current Input) Input {
	for i, in := range InputCycle {
		if in == current {
			return InputCycle[(i+1)%len(InputCycle)]
		}
	}
	return InputCycle[0]
}

type upnpAction func(*UPnP, context.Context) error

func (d *Device) upnpReady() bool {
	return d.upnp != nil && d.upnp.Ready()
}

// upnpOr returns fn when UPnP is usable, nil otherwise.
func (d *Device) upnpOr(fn upnpAction) upnpAction {
	if !d.upnpReady() {
		return nil
	}
	return fn
}

func (d *Device) transport(ctx context.Context, fn upnpAction, fallback string) error {
	return d.guard(func() error {
		if fn != nil {
			return fn(d.upnp, ctx)
		}
		return d.api.PlayerCmd(ctx, fallback)
	})
}

// guard short-circuits when the device is not available and marks it
// unavailable when fn fails at the transport level.
func (d *Device) guard(fn func() error) error {
	if d.state != Available {
		return errors.DeviceUnavailablef("companion %s is %s", d.address, d.state)
	}
	err := fn()
	if errors.IsTransport(err) {
		d.lastRetry = d.clock()
		d.logger.Warn("companion: request failed, marking unavailable", "address", d.address, "error", err)
		d.setState(Unavailable)
	}
	return err
}

func (d *Device) setState(s Availability) {
	if d.state == s {
		return
	}
	prev := d.state
	d.state = s
	d.logger.Info("companion: availability changed", "address", d.address, "from", prev, "to", s)
	if d.onChange != nil {
		d.onChange(s)
	}
}
