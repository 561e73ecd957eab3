package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"testing"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// captureStdout captures stdout during the execution of f, disables pterm color, and strips ANSI codes from the output.
func captureStdout(f func()) string {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	oldPrintColor := pterm.PrintColor
	oldOutput := pterm.Output
	oldDefaultTableWriter := pterm.DefaultTable.Writer

	pterm.PrintColor = false
	pterm.Output = true
	pterm.DefaultTable.Writer = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	f()

	w.Close()
	os.Stdout = oldStdout

	pterm.PrintColor = oldPrintColor
	pterm.Output = oldOutput
	pterm.DefaultTable.Writer = oldDefaultTableWriter

	out := <-outC

	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(out, "")
}

// run executes the CLI with args against c and returns stdout.
func run(t *testing.T, c client.ClientInterface, args ...string) (string, error) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := NewRootCommand(logger, new(slog.LevelVar), "1.2.3", "abc123", "2026-01-01")
	root.SetArgs(args)
	root.SetErr(io.Discard)

	var err error
	out := captureStdout(func() {
		err = root.ExecuteContext(WithClient(context.Background(), c))
	})
	return out, err
}

func ptr[T any](v T) *T { return &v }

type mockClient struct {
	status  client.Status
	err     error
	version map[string]any

	volumeAddr string
	volume     float64
	deltas     []int
	mutes      int
	encoder    []int
	buttons    []bool
	command    string
	input      string
	standby    map[string]int
	level      string
}

var _ client.ClientInterface = (*mockClient)(nil)

func newMockClient() *mockClient {
	return &mockClient{
		status: client.Status{
			Mode: client.Mode{Mode: "normal", Brightness: 80},
			Devices: []client.Device{
				{Address: "10.0.0.11", Name: "Left", Reachable: true, Volume: ptr(64.0), StandbyCountdown: ptr(900)},
				{Address: "10.0.0.12", Name: "Right", Reachable: false, StandbyCountdown: ptr(0)},
			},
			Companion: &client.Companion{Address: "10.0.0.20", Availability: "available", UPnP: true, Input: "optical"},
		},
		level: "info",
	}
}

func (m *mockClient) GetVersion(context.Context) (map[string]any, error) {
	if m.version == nil {
		return nil, io.EOF
	}
	return m.version, nil
}

func (m *mockClient) Status(context.Context) (client.Status, error) { return m.status, m.err }

func (m *mockClient) Devices(context.Context) ([]client.Device, error) {
	return m.status.Devices, m.err
}

func (m *mockClient) Device(_ context.Context, address string) (client.Device, error) {
	for _, d := range m.status.Devices {
		if d.Address == address {
			return d, nil
		}
	}
	return client.Device{}, &client.Error{Code: 404, Message: "not found: device " + address}
}

func (m *mockClient) SetVolume(_ context.Context, address string, volume float64) error {
	m.volumeAddr, m.volume = address, volume
	return m.err
}

func (m *mockClient) AdjustVolume(_ context.Context, delta int) error {
	m.deltas = append(m.deltas, delta)
	return m.err
}

func (m *mockClient) ToggleMute(context.Context) error {
	m.mutes++
	return m.err
}

func (m *mockClient) Encoder(_ context.Context, delta int) (client.Mode, error) {
	m.encoder = append(m.encoder, delta)
	return client.Mode{Mode: "brightness", Brightness: 80 + delta}, m.err
}

func (m *mockClient) Button(_ context.Context, pressed bool) (client.Mode, error) {
	m.buttons = append(m.buttons, pressed)
	return client.Mode{Mode: "menu", Title: "Main", Item: "Brightness"}, m.err
}

func (m *mockClient) Companion(_ context.Context, command, input string) (client.Companion, error) {
	m.command, m.input = command, input
	if m.status.Companion == nil {
		return client.Companion{}, &client.Error{Code: 404, Message: "no companion device configured"}
	}
	st := *m.status.Companion
	if input != "" {
		st.Input = input
	}
	return st, m.err
}

func (m *mockClient) SetAutoStandby(_ context.Context, address string, minutes int) error {
	if m.standby == nil {
		m.standby = map[string]int{}
	}
	m.standby[address] = minutes
	return m.err
}

func (m *mockClient) GetLogLevel(context.Context) (string, error) { return m.level, m.err }

func (m *mockClient) SetLogLevel(_ context.Context, level string) (string, error) {
	m.level = level
	return level, m.err
}
