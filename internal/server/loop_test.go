package server

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/control"
	"github.com/jmylchreest/volctrld/internal/errors"
)

// runLoop starts the control loop of a server built from testConfig and
// returns it once the initial poll has been published.
func runLoop(t *testing.T, spk *fakeSpeaker) *Loop {
	t.Helper()
	srv, err := New(testLogger(), new(slog.LevelVar), testConfig(t), spk, BuildInfo{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		devs := srv.loop.Snapshot().Devices
		return len(devs) == 2 && devs[0].Reachable && devs[1].Reachable
	}, time.Second, 5*time.Millisecond)
	return srv.loop
}

func TestLoopSetVolumeIsCommitted(t *testing.T) {
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	loop := runLoop(t, spk)

	require.NoError(t, loop.SetVolume(context.Background(), "10.0.0.12", 72))

	assert.Eventually(t, func() bool {
		v, ok := spk.level("10.0.0.12")
		return ok && v == 72
	}, time.Second, 5*time.Millisecond)
	_, touched := spk.level("10.0.0.11")
	assert.False(t, touched)
}

func TestLoopAdjustVolumeMovesAllDevices(t *testing.T) {
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	loop := runLoop(t, spk)

	require.NoError(t, loop.AdjustVolume(context.Background(), 2))

	assert.Eventually(t, func() bool {
		l, okL := spk.level("10.0.0.11")
		r, okR := spk.level("10.0.0.12")
		return okL && okR && l == 62 && r == 62
	}, time.Second, 5*time.Millisecond)
}

func TestLoopToggleMute(t *testing.T) {
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	loop := runLoop(t, spk)

	require.NoError(t, loop.ToggleMute(context.Background()))
	muted, ok := spk.muted("10.0.0.11")
	require.True(t, ok)
	assert.True(t, muted)
}

func TestLoopRejectsVolumeInMenu(t *testing.T) {
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	loop := runLoop(t, spk)

	// A press stamped well in the past is already a long press on the next tick.
	require.NoError(t, loop.Button(context.Background(), true, time.Now().Add(-time.Minute)))
	require.Eventually(t, func() bool {
		return loop.Snapshot().Mode.Kind == control.ModeMenu
	}, time.Second, 5*time.Millisecond, "long press opens the menu")

	err := loop.SetVolume(context.Background(), "", 50)
	assert.True(t, errors.IsModeConflict(err))
}

func TestLoopSnapshotReflectsOwnRequest(t *testing.T) {
	loop := runLoop(t, newFakeSpeaker("10.0.0.11", "10.0.0.12"))
	ctx := context.Background()

	require.NoError(t, loop.Button(ctx, true, time.Now().Add(-time.Minute)))
	require.Eventually(t, func() bool {
		return loop.Snapshot().Mode.Kind == control.ModeMenu
	}, time.Second, 5*time.Millisecond)

	// Release ends the long press; the menu stays open.
	require.NoError(t, loop.Button(ctx, false, time.Time{}))
	mode := loop.Snapshot().Mode
	require.Equal(t, control.ModeMenu, mode.Kind)
	require.Positive(t, mode.ItemCount)

	position := mode.Position
	for i := range 500 {
		require.NoError(t, loop.Encoder(ctx, 1, time.Time{}))
		position = (position + 1) % mode.ItemCount
		require.Equal(t, position, loop.Snapshot().Mode.Position, "encoder step %d", i)
	}
}

func TestLoopCompanionNotConfigured(t *testing.T) {
	loop := runLoop(t, newFakeSpeaker("10.0.0.11", "10.0.0.12"))

	_, err := loop.Companion(context.Background(), "next", "")
	assert.True(t, errors.IsNotFound(err))

	_, err = loop.Companion(context.Background(), "rewind", "")
	assert.True(t, errors.IsInvalidInput(err))
}

func TestLoopSetAutoStandby(t *testing.T) {
	spk := newFakeSpeaker("10.0.0.11", "10.0.0.12")
	loop := runLoop(t, spk)

	require.NoError(t, loop.SetAutoStandby(context.Background(), "10.0.0.11", 45))
	minutes, ok := spk.standbyMinutes("10.0.0.11")
	require.True(t, ok)
	assert.Equal(t, 45, minutes)

	err := loop.SetAutoStandby(context.Background(), "10.0.0.99", 45)
	assert.True(t, errors.IsNotFound(err))

	err = loop.SetAutoStandby(context.Background(), "10.0.0.11", -1)
	assert.True(t, errors.IsInvalidInput(err))
}

func TestLoopReconfigure(t *testing.T) {
	loop := runLoop(t, newFakeSpeaker("10.0.0.11", "10.0.0.12"))

	cfg := control.DefaultConfig()
	cfg.QuietPeriod = 20 * time.Millisecond
	require.NoError(t, loop.Reconfigure(context.Background(), cfg, 10*time.Millisecond))
}

func TestLoopStopped(t *testing.T) {
	srv, err := New(testLogger(), new(slog.LevelVar), testConfig(t), newFakeSpeaker(), BuildInfo{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.loop.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	err = srv.loop.ToggleMute(context.Background())
	assert.True(t, errors.IsDeviceUnavailable(err))
}

func TestLoopRequestHonoursContext(t *testing.T) {
	srv, err := New(testLogger(), new(slog.LevelVar), testConfig(t), newFakeSpeaker(), BuildInfo{})
	require.NoError(t, err)

	// The loop is never started, so the request can only end via ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = srv.loop.ToggleMute(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEventTime(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, now, eventTime(time.Time{}, now))
	assert.Equal(t, now, eventTime(now.Add(time.Second), now))
	past := now.Add(-30 * time.Millisecond)
	assert.Equal(t, past, eventTime(past, now))
}
