package companion

import (
	"context"
	"strings"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// Command names a companion operation reachable from the socket, HTTP and
// MQTT surfaces.
type Command string

const (
	CmdPlayPause  Command = "play-pause"
	CmdPlay       Command = "play"
	CmdPause      Command = "pause"
	CmdStop       Command = "stop"
	CmdNext       Command = "next"
	CmdPrevious   Command = "previous"
	CmdCycleInput Command = "cycle-input"
	CmdInput      Command = "input"
	CmdStatus     Command = "status"
)

// Commands lists every accepted command.
var Commands = []Command{
	CmdPlayPause, CmdPlay, CmdPause, CmdStop, CmdNext, CmdPrevious,
	CmdCycleInput, CmdInput, CmdStatus,
}

// ParseCommand normalises s ("play_pause", "Play-Pause") to a Command.
func ParseCommand(s string) (Command, error) {
	c := Command(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	for _, known := range Commands {
		if c == known {
			return c, nil
		}
	}
	return "", errors.InvalidInputf("unknown companion command %q", s)
}

// Run executes cmd. arg is the input name for CmdInput and ignored
// otherwise. CmdStatus refreshes the current input when the device is
// available and never fails.
func (d *Device) Run(ctx context.Context, cmd Command, arg string) error {
	switch cmd {
	case CmdPlayPause:
		return d.PlayPause(ctx)
	case CmdPlay:
		return d.Play(ctx)
	case CmdPause:
		return d.Pause(ctx)
	case CmdStop:
		return d.Stop(ctx)
	case CmdNext:
		return d.Next(ctx)
	case CmdPrevious:
		return d.Previous(ctx)
	case CmdCycleInput:
		_, err := d.CycleInput(ctx)
		return err
	case CmdInput:
		in, err := ParseInput(arg)
		if err != nil {
			return err
		}
		return d.SetInput(ctx, in)
	case CmdStatus:
		if d.state == Available {
			if _, err := d.CurrentInput(ctx); err != nil {
				d.logger.Debug("companion: status refresh failed", "address", d.address, "error", err)
			}
		}
		return nil
	default:
		return errors.InvalidInputf("unknown companion command %q", cmd)
	}
}
