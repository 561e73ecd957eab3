package control

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/companion"
	"github.com/jmylchreest/volctrld/pkg/speaker"
	"github.com/jmylchreest/volctrld/pkg/ssc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type levelCall struct {
	Address string
	Volume  float64
}

type muteCall struct {
	Address string
	Muted   bool
}

type fakeSpeaker struct {
	statuses map[string]ssc.Status
	down     map[string]bool
	setErr   error
	polled   []string
	levels   []levelCall
	mutes    []muteCall
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{statuses: map[string]ssc.Status{}, down: map[string]bool{}}
}

func (f *fakeSpeaker) set(address string, level float64, muted bool) {
	f.statuses[address] = ssc.Status{Level: level, HasLevel: true, Muted: muted, HasMute: true, StandbyCountdown: 3600, HasStandby: true}
}

func statusWithStandby(level float64, countdown int) ssc.Status {
	return ssc.Status{Level: level, HasLevel: true, HasMute: true, StandbyCountdown: countdown, HasStandby: true}
}

func (f *fakeSpeaker) QueryStatus(_ context.Context, address string) (ssc.Status, error) {
	f.polled = append(f.polled, address)
	if f.down[address] {
		return ssc.Status{}, errors.Transportf("connect %s", address)
	}
	st, ok := f.statuses[address]
	if !ok {
		return ssc.Status{}, errors.Parsef("no fields")
	}
	return st, nil
}

func (f *fakeSpeaker) SetLevel(_ context.Context, address string, level float64) (float64, error) {
	if f.setErr != nil {
		return 0, f.setErr
	}
	f.levels = append(f.levels, levelCall{address, level})
	return level, nil
}

func (f *fakeSpeaker) SetMute(_ context.Context, address string, muted bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.mutes = append(f.mutes, muteCall{address, muted})
	return nil
}

type pendingSignal struct {
	Address string
	Volume  float64
	Pending bool
}

type recordingDisplay struct {
	changes   []Change
	pending   []pendingSignal
	modes     []Mode
	resyncs   int
	companion []companion.Status
}

func (d *recordingDisplay) FieldChanged(c Change) { d.changes = append(d.changes, c) }
func (d *recordingDisplay) PendingVolume(address string, volume float64, pending bool) {
	d.pending = append(d.pending, pendingSignal{address, volume, pending})
}
func (d *recordingDisplay) ModeChanged(m Mode) { d.modes = append(d.modes, m) }
func (d *recordingDisplay) Resync([]speaker.Snapshot) { d.resyncs++ }
func (d *recordingDisplay) CompanionChanged(s companion.Status) { d.companion = append(d.companion, s) }

func (d *recordingDisplay) reset() {
	*d = recordingDisplay{}
}

type harness struct {
	ctrl    *Controller
	speaker *fakeSpeaker
	display *recordingDisplay
	reg     *speaker.Registry
	t0      time.Time
}

// newHarness registers addresses, seeds each at volume and polls them once.
func newHarness(t *testing.T, volume float64, addresses ...string) *harness {
	t.Helper()
	reg := speaker.NewRegistry()
	spk := newFakeSpeaker()
	for _, a := range addresses {
		_, err := reg.Register(a, "")
		require.NoError(t, err)
		spk.set(a, volume, false)
	}
	disp := &recordingDisplay{}
	ctrl := New(DefaultConfig(), reg, spk, disp, nil, testLogger())
	ctrl.PollAll(context.Background())

	h := &harness{ctrl: ctrl, speaker: spk, display: disp, reg: reg, t0: time.Unix(10_000, 0)}
	// The first tick polls immediately; do it now so tests start clean.
	ctrl.Tick(context.Background(), h.t0.Add(-time.Second))
	spk.polled = nil
	disp.reset()
	return h
}

func (h *harness) at(d time.Duration) time.Time {
	return h.t0.Add(d)
}

func (h *harness) state(t *testing.T, address string) *speaker.State {
	t.Helper()
	st, err := h.reg.Get(address)
	require.NoError(t, err)
	return st
}
