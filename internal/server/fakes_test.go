package server

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/pkg/ssc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSpeaker answers every poll with a fixed status. It is called from the
// loop goroutine and read from tests, hence the mutex.
type fakeSpeaker struct {
	mu       sync.Mutex
	statuses map[string]ssc.Status
	levels   map[string]float64
	mutes    map[string]bool
	standby  map[string]int
}

func newFakeSpeaker(addresses ...string) *fakeSpeaker {
	f := &fakeSpeaker{
		statuses: map[string]ssc.Status{},
		levels:   map[string]float64{},
		mutes:    map[string]bool{},
		standby:  map[string]int{},
	}
	for _, a := range addresses {
		f.statuses[a] = ssc.Status{Level: 60, HasLevel: true, HasMute: true, StandbyCountdown: 3600, HasStandby: true}
	}
	return f
}

func (f *fakeSpeaker) QueryStatus(_ context.Context, address string) (ssc.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.statuses[address]
	if !ok {
		return ssc.Status{}, errors.Transportf("connect %s", address)
	}
	return st, nil
}

func (f *fakeSpeaker) SetLevel(_ context.Context, address string, level float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.levels[address] = level
	return level, nil
}

func (f *fakeSpeaker) SetMute(_ context.Context, address string, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutes[address] = muted
	return nil
}

func (f *fakeSpeaker) SetAutoStandbyTime(_ context.Context, address string, minutes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standby[address] = minutes
	return nil
}

func (f *fakeSpeaker) level(address string) (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.levels[address]
	return v, ok
}

func (f *fakeSpeaker) muted(address string) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.mutes[address]
	return v, ok
}

func (f *fakeSpeaker) standbyMinutes(address string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.standby[address]
	return v, ok
}

// testConfig returns a configuration with fast timings and a short socket
// path; unix socket paths are limited to about a hundred bytes.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir, err := os.MkdirTemp("", "vcd")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	return &config.Config{
		Devices: []config.DeviceConfig{
			{Name: "Left", Address: "10.0.0.11"},
			{Name: "Right", Address: "10.0.0.12"},
		},
		Speaker: config.SpeakerConfig{
			Port:       config.DefaultSpeakerPort,
			MaxVolume:  config.DefaultMaxVolume,
			VolumeStep: config.DefaultVolumeStep,
		},
		Control: config.ControlConfig{
			PollInterval:       time.Hour,
			TickInterval:       5 * time.Millisecond,
			QuietPeriod:        10 * time.Millisecond,
			MinCommandInterval: 10 * time.Millisecond,
			LongPress:          config.DefaultLongPress,
			MenuGuard:          config.DefaultMenuGuard,
		},
		Server:  config.ServerConfig{SocketPath: filepath.Join(dir, "v.sock")},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}
