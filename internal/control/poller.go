package control

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/speaker"
	"github.com/jmylchreest/volctrld/pkg/ssc"
)

// Speaker is the subset of the protocol client the core uses.
type Speaker interface {
	QueryStatus(ctx context.Context, address string) (ssc.Status, error)
	SetLevel(ctx context.Context, address string, level float64) (float64, error)
	SetMute(ctx context.Context, address string, muted bool) error
}

// PollResult is the outcome of polling one device.
type PollResult struct {
	Address string
	Changes []Change
	// Confirmed is set when the poll matched and cleared a pending volume.
	Confirmed bool
	Volume    float64
}

// Poller refreshes one device per call, cycling through the registry.
type Poller struct {
	registry *speaker.Registry
	speaker  Speaker
	logger   *slog.Logger
	next     int
}

// NewPoller creates a Poller starting at the first registered device.
func NewPoller(registry *speaker.Registry, spk Speaker, logger *slog.Logger) *Poller {
	return &Poller{registry: registry, speaker: spk, logger: logger}
}

// PollNext queries the next device in round-robin order.
func (p *Poller) PollNext(ctx context.Context) (PollResult, bool) {
	if p.registry.Len() == 0 {
		return PollResult{}, false
	}
	st := p.registry.At(p.next % p.registry.Len())
	p.next = (p.next + 1) % p.registry.Len()
	return p.Poll(ctx, st), true
}

// Poll queries st and applies the result. On transport failure only the
// reachability flag changes; cached values are kept.
func (p *Poller) Poll(ctx context.Context, st *speaker.State) PollResult {
	res := PollResult{Address: st.Address()}
	add := func(f Field, v any) {
		res.Changes = append(res.Changes, Change{Address: st.Address(), Field: f, Value: v})
	}

	status, err := p.speaker.QueryStatus(ctx, st.Address())
	if err != nil && !errors.IsParse(err) {
		p.logger.Debug("poll failed", "device", st.Address(), "error", err)
		if st.SetReachable(false) {
			p.logger.Warn("device unreachable", "device", st.Address(), "error", err)
			add(FieldReachable, false)
		}
		return res
	}

	if st.SetReachable(true) {
		p.logger.Info("device reachable", "device", st.Address())
		add(FieldReachable, true)
	}
	if err != nil {
		p.logger.Debug("poll returned no usable fields", "device", st.Address(), "error", err)
		return res
	}

	if status.HasLevel && st.SetVolume(status.Level) {
		add(FieldVolume, status.Level)
	}
	if status.HasMute && st.SetMuted(status.Muted) {
		add(FieldMute, status.Muted)
	}
	if status.HasStandby && st.SetStandbyCountdown(status.StandbyCountdown) {
		add(FieldStandby, st.StandbyCountdown())
	}

	if status.HasLevel {
		if req, ok := st.RequestedVolume(); ok && !speaker.VolumeChanged(req, status.Level) {
			st.ClearRequestedVolume()
			res.Confirmed = true
			res.Volume = status.Level
		}
	}
	return res
}
