package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// NewVolumeCommand creates the volume command
func NewVolumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "volume",
		Aliases: []string{"vol"},
		Short:   "Set or step the monitor volume",
	}
	cmd.AddCommand(
		newVolumeSetCommand(),
		newVolumeStepCommand("up", 1),
		newVolumeStepCommand("down", -1),
	)
	return cmd
}

func newVolumeSetCommand() *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "set <level>",
		Short: "Set an absolute volume on every monitor or one of them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid volume %q: %w", args[0], err)
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := c.SetVolume(ctx, device, level); err != nil {
				return volumeError(err)
			}
			target := "all monitors"
			if device != "" {
				target = device
			}
			pterm.Success.Printf("Volume for %s set to %s\n", target, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Monitor address (default all)")
	return cmd
}

func newVolumeStepCommand(name string, sign int) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [steps]",
		Short: fmt.Sprintf("Step the volume %s (default 1 step)", name),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := c.AdjustVolume(ctx, sign*steps); err != nil {
				return volumeError(err)
			}
			pterm.Success.Printf("Volume %s %d step(s)\n", name, steps)
			return nil
		},
	}
}

func volumeError(err error) error {
	if client.IsConflict(err) {
		return fmt.Errorf("volume is locked while the on-device menu is open")
	}
	return fmt.Errorf("failed to change volume: %w", err)
}

// NewMuteCommand creates the mute command
func NewMuteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mute",
		Short: "Toggle mute on every reachable monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := c.ToggleMute(ctx); err != nil {
				return fmt.Errorf("failed to toggle mute: %w", err)
			}
			pterm.Success.Println("Mute toggled")
			return nil
		},
	}
}
