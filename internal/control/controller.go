package control

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// Config holds the tunables of the control loop.
type Config struct {
	PollInterval       time.Duration
	QuietPeriod        time.Duration
	MinCommandInterval time.Duration
	LongPress          time.Duration
	MenuGuard          time.Duration
	VolumeStep         float64
	MaxVolume          float64
	Brightness         int
}

// DefaultConfig returns the timings the hardware was tuned with.
func DefaultConfig() Config {
	return Config{
		PollInterval:       2 * time.Second,
		QuietPeriod:        300 * time.Millisecond,
		MinCommandInterval: time.Second,
		LongPress:          800 * time.Millisecond,
		MenuGuard:          time.Second,
		VolumeStep:         1.0,
		MaxVolume:          120,
		Brightness:         100,
	}
}

// Snapshot is a copy of everything the control loop knows.
type Snapshot struct {
	Devices   []speaker.Snapshot `json:"devices" yaml:"devices"`
	Mode      Mode               `json:"mode" yaml:"mode"`
	Companion *companion.Status  `json:"companion,omitempty" yaml:"companion,omitempty"`
}

// Controller owns the registry and routes every input to exactly one of
// the volume pipeline, menu navigation or brightness adjustment.
type Controller struct {
	cfg       Config
	registry  *speaker.Registry
	speaker   Speaker
	display   Display
	companion *companion.Device
	logger    *slog.Logger

	poller   *Poller
	pipeline *Pipeline
	mode     *ModeController
	lastPoll time.Time
}

// New creates a Controller. companion may be nil.
func New(cfg Config, registry *speaker.Registry, spk Speaker, display Display, comp *companion.Device, logger *slog.Logger) *Controller {
	if display == nil {
		display = NopDisplay{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:       cfg,
		registry:  registry,
		speaker:   spk,
		display:   display,
		companion: comp,
		logger:    logger,
		poller:    NewPoller(registry, spk, logger),
		pipeline:  NewPipeline(registry, spk, cfg.QuietPeriod, cfg.MinCommandInterval, cfg.VolumeStep, cfg.MaxVolume, logger),
		mode:      NewModeController(cfg.LongPress, cfg.MenuGuard, cfg.Brightness),
	}
	if comp != nil {
		comp.OnChange(func(companion.Availability) {
			display.CompanionChanged(comp.Status())
		})
	}
	return c
}

// Registry returns the device registry.
func (c *Controller) Registry() *speaker.Registry { return c.registry }

// Companion returns the companion device, or nil when none is configured.
func (c *Controller) Companion() *companion.Device { return c.companion }

// Mode returns the current input mode.
func (c *Controller) Mode() Mode { return c.mode.Mode() }

// UpdateConfig applies new tunables without touching device state.
func (c *Controller) UpdateConfig(cfg Config, now time.Time) {
	cfg.MaxVolume = c.cfg.MaxVolume
	cfg.Brightness = c.mode.Brightness()
	c.cfg = cfg
	c.pipeline.SetTimings(now, cfg.QuietPeriod, cfg.MinCommandInterval, cfg.VolumeStep)
	c.mode.SetTimings(cfg.LongPress, cfg.MenuGuard)
	c.logger.Info("control settings updated",
		"poll_interval", cfg.PollInterval,
		"quiet_period", cfg.QuietPeriod,
		"min_command_interval", cfg.MinCommandInterval,
		"volume_step", cfg.VolumeStep)
}

// Tick runs one iteration of periodic work: long press detection, one
// device poll when due, the debounce commit and the companion retry.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	c.applyTransition(c.mode.CheckLongPress(now))

	if c.lastPoll.IsZero() || now.Sub(c.lastPoll) >= c.cfg.PollInterval {
		c.lastPoll = now
		c.poll(ctx)
	}

	c.pipeline.Commit(ctx, now)

	if c.companion != nil {
		c.companion.MaybeReconnect(ctx, now)
	}
}

// PollAll refreshes every device once, in registry order.
func (c *Controller) PollAll(ctx context.Context) {
	for range c.registry.Len() {
		c.poll(ctx)
	}
}

func (c *Controller) poll(ctx context.Context) {
	res, ok := c.poller.PollNext(ctx)
	if !ok || c.mode.Kind() != ModeNormal {
		return
	}
	for _, ch := range res.Changes {
		c.display.FieldChanged(ch)
	}
	if res.Confirmed {
		c.display.PendingVolume(res.Address, res.Volume, false)
	}
}

// HandleEncoder routes an encoder delta according to the current mode.
func (c *Controller) HandleEncoder(_ context.Context, delta int, now time.Time) {
	if delta == 0 {
		return
	}
	t := c.mode.Encoder(delta)
	if t.Consumed {
		c.applyTransition(t)
		return
	}
	c.showPending(c.pipeline.Adjust(delta, now))
}

// HandleButton handles a press (pressed=true) or release of the button.
func (c *Controller) HandleButton(ctx context.Context, pressed bool, now time.Time) {
	if pressed {
		c.mode.Press(now)
		return
	}
	t := c.mode.Release(now)
	if t.ToggleMute {
		if err := c.ToggleMute(ctx); err != nil {
			c.logger.Warn("mute toggle failed", "error", err)
		}
		return
	}
	c.applyTransition(t)
}

// SetVolume requests an absolute volume on one device or, with an empty
// address, on all of them. It is refused outside ModeNormal.
func (c *Controller) SetVolume(address string, volume float64, now time.Time) error {
	if math.IsNaN(volume) || math.IsInf(volume, 0) {
		return errors.InvalidInputf("volume %v is not a finite number", volume)
	}
	if c.mode.Kind() != ModeNormal {
		return errors.ModeConflictf("volume change ignored in %s mode", c.mode.Kind())
	}
	pending, err := c.pipeline.SetTarget(address, volume, now)
	if err != nil {
		return err
	}
	c.showPending(pending)
	return nil
}

// AdjustVolume moves the volume by delta steps as if the encoder turned,
// but is refused outside ModeNormal instead of navigating the menu.
func (c *Controller) AdjustVolume(delta int, now time.Time) error {
	if c.mode.Kind() != ModeNormal {
		return errors.ModeConflictf("volume change ignored in %s mode", c.mode.Kind())
	}
	if delta == 0 {
		return errors.InvalidInputf("delta must not be zero")
	}
	c.showPending(c.pipeline.Adjust(delta, now))
	return nil
}

// ToggleMute mutes every controllable device if any of them is unmuted,
// otherwise unmutes them all. The mute field is updated by the next poll.
func (c *Controller) ToggleMute(ctx context.Context) error {
	var targets []*speaker.State
	anyUnmuted := false
	for _, st := range c.registry.States() {
		if !controllable(st) {
			continue
		}
		targets = append(targets, st)
		if !st.Muted() {
			anyUnmuted = true
		}
	}
	if len(targets) == 0 {
		return errors.DeviceUnavailablef("no reachable devices")
	}

	var firstErr error
	for _, st := range targets {
		if err := c.speaker.SetMute(ctx, st.Address(), anyUnmuted); err != nil {
			c.logger.Warn("mute command failed", "device", st.Address(), "mute", anyUnmuted, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		c.logger.Info("mute command sent", "device", st.Address(), "mute", anyUnmuted)
	}
	return firstErr
}

// Snapshot copies the current state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{Devices: c.registry.Snapshot(), Mode: c.mode.Mode()}
	if c.companion != nil {
		cs := c.companion.Status()
		s.Companion = &cs
	}
	return s
}

func (c *Controller) showPending(pending []Pending) {
	for _, p := range pending {
		c.display.PendingVolume(p.Address, p.Volume, true)
	}
}

func (c *Controller) applyTransition(t Transition) {
	if t.Selected != "" {
		c.logger.Debug("menu item has no action", "item", t.Selected, "error", errors.ModeConflictf("item %q", t.Selected))
	}
	if !t.ModeChanged {
		return
	}

	if t.EnteredMenu || t.ExitedMenu {
		for _, p := range c.pipeline.Reset() {
			c.logger.Debug("pending volume dropped on mode change", "device", p.Address, "volume", p.Volume)
			c.display.PendingVolume(p.Address, p.Volume, false)
		}
	}

	m := c.mode.Mode()
	c.logger.Debug("mode changed", "mode", m.Name, "level", m.Level, "position", m.Position)
	c.display.ModeChanged(m)

	if t.ExitedMenu {
		c.display.Resync(c.registry.Snapshot())
	}
}
