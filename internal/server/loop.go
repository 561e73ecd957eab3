package server

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/companion"
)

// StandbySetter changes a monitor's auto-standby timer.
type StandbySetter interface {
	SetAutoStandbyTime(ctx context.Context, address string, minutes int) error
}

type loopFunc func(ctx context.Context, now time.Time) (any, error)

type request struct {
	name  string
	fn    loopFunc
	reply chan result
}

type result struct {
	value any
	err   error
}

// Loop owns a control.Controller and is the only goroutine that touches it.
// Ticks and requests from the socket, HTTP, MQTT and input surfaces are
// executed one at a time in arrival order. Readers use Snapshot, which is
// refreshed after every iteration.
type Loop struct {
	ctrl     *control.Controller
	standby  StandbySetter
	logger   *slog.Logger
	clock    func() time.Time
	tick     time.Duration
	ticker   *time.Ticker
	requests chan request
	done     chan struct{}
	snapshot atomic.Pointer[control.Snapshot]
}

// NewLoop creates a Loop ticking every tick. standby may be nil.
func NewLoop(ctrl *control.Controller, standby StandbySetter, tick time.Duration, logger *slog.Logger) *Loop {
	l := &Loop{
		ctrl:     ctrl,
		standby:  standby,
		logger:   logger,
		clock:    time.Now,
		tick:     tick,
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	l.publish()
	return l
}

// Run polls every device once, then serves ticks and requests until ctx is
// cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	l.ctrl.PollAll(ctx)
	l.publish()

	l.ticker = time.NewTicker(l.tick)
	defer l.ticker.Stop()
	l.logger.Info("control loop started", "tick", l.tick, "devices", len(l.Snapshot().Devices))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped")
			return
		case <-l.ticker.C:
			l.ctrl.Tick(ctx, l.clock())
			l.publish()
		case req := <-l.requests:
			v, err := req.fn(ctx, l.clock())
			if err != nil {
				l.logger.Debug("control request failed", "request", req.name, "error", err)
			}
			// the caller may read Snapshot as soon as it has the reply
			l.publish()
			req.reply <- result{value: v, err: err}
		}
	}
}

func (l *Loop) publish() {
	s := l.ctrl.Snapshot()
	l.snapshot.Store(&s)
}

// Snapshot returns the state as of the end of the last loop iteration.
func (l *Loop) Snapshot() control.Snapshot {
	return *l.snapshot.Load()
}

// do runs fn on the loop goroutine and waits for its result.
func (l *Loop) do(ctx context.Context, name string, fn loopFunc) (any, error) {
	req := request{name: name, fn: fn, reply: make(chan result, 1)}
	select {
	case l.requests <- req:
	case <-l.done:
		return nil, errors.DeviceUnavailablef("control loop stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Loop) exec(ctx context.Context, name string, fn func(ctx context.Context, now time.Time) error) error {
	_, err := l.do(ctx, name, func(ctx context.Context, now time.Time) (any, error) {
		return nil, fn(ctx, now)
	})
	return err
}

// SetVolume requests an absolute volume on one device, or all when address
// is empty.
func (l *Loop) SetVolume(ctx context.Context, address string, volume float64) error {
	return l.exec(ctx, "set_volume", func(_ context.Context, now time.Time) error {
		return l.ctrl.SetVolume(address, volume, now)
	})
}

// AdjustVolume moves every controllable device by delta steps.
func (l *Loop) AdjustVolume(ctx context.Context, delta int) error {
	return l.exec(ctx, "adjust_volume", func(_ context.Context, now time.Time) error {
		return l.ctrl.AdjustVolume(delta, now)
	})
}

// ToggleMute flips mute on every controllable device.
func (l *Loop) ToggleMute(ctx context.Context) error {
	return l.exec(ctx, "toggle_mute", func(ctx context.Context, _ time.Time) error {
		return l.ctrl.ToggleMute(ctx)
	})
}

// Encoder injects an encoder turn observed at at. A zero at means now.
func (l *Loop) Encoder(ctx context.Context, delta int, at time.Time) error {
	return l.exec(ctx, "encoder", func(ctx context.Context, now time.Time) error {
		l.ctrl.HandleEncoder(ctx, delta, eventTime(at, now))
		return nil
	})
}

// Button injects a button press or release observed at at. A zero at means now.
func (l *Loop) Button(ctx context.Context, pressed bool, at time.Time) error {
	return l.exec(ctx, "button", func(ctx context.Context, now time.Time) error {
		l.ctrl.HandleButton(ctx, pressed, eventTime(at, now))
		return nil
	})
}

// Companion runs a companion command and returns the resulting status.
func (l *Loop) Companion(ctx context.Context, command, arg string) (companion.Status, error) {
	cmd, err := companion.ParseCommand(command)
	if err != nil {
		return companion.Status{}, err
	}
	v, err := l.do(ctx, "companion", func(ctx context.Context, _ time.Time) (any, error) {
		dev := l.ctrl.Companion()
		if dev == nil {
			return companion.Status{}, errors.NotFoundf("no companion device configured")
		}
		err := dev.Run(ctx, cmd, arg)
		return dev.Status(), err
	})
	st, _ := v.(companion.Status)
	return st, err
}

// SetAutoStandby sets the auto-standby timer of a registered device.
func (l *Loop) SetAutoStandby(ctx context.Context, address string, minutes int) error {
	if minutes < 0 {
		return errors.InvalidInputf("minutes must not be negative")
	}
	return l.exec(ctx, "set_auto_standby", func(ctx context.Context, _ time.Time) error {
		if l.standby == nil {
			return errors.Internalf("auto-standby is not supported")
		}
		if _, err := l.ctrl.Registry().Get(address); err != nil {
			return err
		}
		return l.standby.SetAutoStandbyTime(ctx, address, minutes)
	})
}

// Reconfigure applies new control timings and tick interval.
func (l *Loop) Reconfigure(ctx context.Context, cfg control.Config, tick time.Duration) error {
	return l.exec(ctx, "reconfigure", func(_ context.Context, now time.Time) error {
		l.ctrl.UpdateConfig(cfg, now)
		if tick > 0 && tick != l.tick {
			l.tick = tick
			l.ticker.Reset(tick)
		}
		return nil
	})
}

func eventTime(at, now time.Time) time.Time {
	if at.IsZero() || at.After(now) {
		return now
	}
	return at
}
