package control

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/speaker"
)

// Pending is an optimistic volume to show while a command is outstanding.
type Pending struct {
	Address string
	Volume  float64
}

// Commit is one volume command issued by the pipeline.
type Commit struct {
	Address string
	Volume  float64
	// Mute is the mute command sent alongside the volume, if any.
	Mute *bool
	Err  error
}

type deviceInput struct {
	lastInput time.Time
	autoMuted bool
}

// Pipeline turns volume input into debounced, rate limited commands.
type Pipeline struct {
	registry *speaker.Registry
	speaker  Speaker
	logger   *slog.Logger

	quiet     time.Duration
	step      float64
	maxVolume float64
	limiter   *rate.Limiter

	inputs map[string]*deviceInput
}

// NewPipeline creates a Pipeline. A single limiter spaces commands to all
// devices by at least minInterval.
func NewPipeline(registry *speaker.Registry, spk Speaker, quiet, minInterval time.Duration, step, maxVolume float64, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		registry:  registry,
		speaker:   spk,
		logger:    logger,
		quiet:     quiet,
		step:      step,
		maxVolume: maxVolume,
		limiter:   rate.NewLimiter(rate.Every(minInterval), 1),
		inputs:    make(map[string]*deviceInput),
	}
}

// SetTimings updates the tunables at runtime.
func (p *Pipeline) SetTimings(now time.Time, quiet, minInterval time.Duration, step float64) {
	p.quiet = quiet
	p.step = step
	p.limiter.SetLimitAt(now, rate.Every(minInterval))
}

// Adjust moves the requested volume of every controllable device by delta
// steps. Devices without a known volume are skipped.
func (p *Pipeline) Adjust(delta int, now time.Time) []Pending {
	var out []Pending
	for _, st := range p.registry.States() {
		if !controllable(st) {
			continue
		}
		base, ok := st.RequestedVolume()
		if !ok {
			if base, ok = st.Volume(); !ok {
				continue
			}
			p.beginRequest(st)
		}
		out = append(out, p.request(st, base+float64(delta)*p.step, now))
	}
	return out
}

// SetTarget requests an absolute volume on address, or on every
// controllable device when address is empty.
func (p *Pipeline) SetTarget(address string, volume float64, now time.Time) ([]Pending, error) {
	if address == "" {
		var out []Pending
		for _, st := range p.registry.States() {
			if !controllable(st) {
				continue
			}
			if _, ok := st.RequestedVolume(); !ok {
				p.beginRequest(st)
			}
			out = append(out, p.request(st, volume, now))
		}
		return out, nil
	}

	st, err := p.registry.Get(address)
	if err != nil {
		return nil, err
	}
	if !controllable(st) {
		return nil, errors.DeviceUnavailablef("device %s is not reachable or in standby", address)
	}
	if _, ok := st.RequestedVolume(); !ok {
		p.beginRequest(st)
	}
	return []Pending{p.request(st, volume, now)}, nil
}

// Reset drops every pending request and returns the dropped values.
func (p *Pipeline) Reset() []Pending {
	var cleared []Pending
	for _, st := range p.registry.States() {
		req, ok := st.RequestedVolume()
		if ok && st.ClearRequestedVolume() {
			cleared = append(cleared, Pending{Address: st.Address(), Volume: req})
		}
		if in, ok := p.inputs[st.Address()]; ok {
			in.lastInput = time.Time{}
		}
	}
	return cleared
}

// Commit sends requests that have been quiet for the quiet period. Once the
// limiter refuses, remaining requests wait for a later call.
func (p *Pipeline) Commit(ctx context.Context, now time.Time) []Commit {
	var out []Commit
	for _, st := range p.registry.States() {
		req, ok := st.RequestedVolume()
		if !ok {
			continue
		}
		in := p.input(st.Address())
		if in.lastInput.IsZero() || now.Sub(in.lastInput) < p.quiet {
			continue
		}
		if last, sent := st.LastSentVolume(); sent && !speaker.VolumeChanged(last, req) {
			continue
		}
		if !controllable(st) {
			continue
		}
		if !p.limiter.AllowN(now, 1) {
			p.logger.Debug("volume command deferred by rate limit", "device", st.Address(), "volume", req)
			return out
		}
		out = append(out, p.send(ctx, st, in, req))
	}
	return out
}

func (p *Pipeline) send(ctx context.Context, st *speaker.State, in *deviceInput, volume float64) Commit {
	c := Commit{Address: st.Address(), Volume: volume}

	sent, err := p.speaker.SetLevel(ctx, st.Address(), volume)
	if err != nil {
		p.logger.Warn("volume command failed", "device", st.Address(), "volume", volume, "error", err)
		c.Err = err
		return c
	}
	c.Volume = sent
	st.SetLastSentVolume(sent)
	p.logger.Info("volume command sent", "device", st.Address(), "volume", sent)

	var mute *bool
	switch {
	case sent < speaker.Epsilon && !st.Muted() && !in.autoMuted:
		v := true
		mute = &v
	case sent >= speaker.Epsilon && (st.Muted() || in.autoMuted):
		v := false
		mute = &v
	}
	if mute == nil {
		return c
	}

	if err := p.speaker.SetMute(ctx, st.Address(), *mute); err != nil {
		p.logger.Warn("mute command failed", "device", st.Address(), "mute", *mute, "error", err)
		c.Err = err
		return c
	}
	in.autoMuted = *mute
	c.Mute = mute
	return c
}

func (p *Pipeline) request(st *speaker.State, volume float64, now time.Time) Pending {
	target := clampFloat(volume, 0, p.maxVolume)
	if target != volume {
		p.logger.Debug("requested volume clamped", "device", st.Address(), "error", errors.Rangef("volume %v", volume), "volume", target)
	}
	st.SetRequestedVolume(target)
	p.input(st.Address()).lastInput = now
	return Pending{Address: st.Address(), Volume: target}
}

// beginRequest starts a new request episode. The last sent value of the
// previous episode no longer suppresses sends once the device has moved on.
func (p *Pipeline) beginRequest(st *speaker.State) {
	st.ClearLastSentVolume()
}

func (p *Pipeline) input(address string) *deviceInput {
	in, ok := p.inputs[address]
	if !ok {
		in = &deviceInput{}
		p.inputs[address] = in
	}
	return in
}

func controllable(st *speaker.State) bool {
	return st.Reachable() && !st.InStandby()
}

func clampFloat(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
