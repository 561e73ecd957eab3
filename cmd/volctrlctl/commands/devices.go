package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// NewDevicesCommand creates the devices command
func NewDevicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"device"},
		Short:   "Inspect monitors",
	}
	cmd.AddCommand(
		newDevicesListCommand(),
		newDevicesGetCommand(),
		newDevicesStandbyCommand(),
	)
	return cmd
}

func newDevicesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			devices, err := c.Devices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list monitors: %w", err)
			}
			return printDevices(cmd, devices)
		},
	}
}

func printDevices(cmd *cobra.Command, devices []client.Device) error {
	format, _ := outputFormat(cmd)
	if done, err := writeStructured(cmd.OutOrStdout(), format, devices); done {
		return err
	}
	if format == outputParseable {
		for _, d := range devices {
			fmt.Fprintln(cmd.OutOrStdout(), DeviceParseable(d))
		}
		return nil
	}
	if len(devices) == 0 {
		pterm.Info.Println("No monitors configured")
		return nil
	}
	return pterm.DefaultTable.WithHasHeader().WithData(DeviceTableData(devices)).Render()
}

func newDevicesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <address>",
		Short: "Show one monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			d, err := c.Device(ctx, args[0])
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("no monitor with address %s", args[0])
				}
				return fmt.Errorf("failed to get monitor: %w", err)
			}

			format, _ := outputFormat(cmd)
			if done, err := writeStructured(cmd.OutOrStdout(), format, d); done {
				return err
			}
			if format == outputParseable {
				fmt.Fprintln(cmd.OutOrStdout(), DeviceParseable(d))
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
				{"Property", "Value"},
				{"Name", d.Name},
				{"Address", d.Address},
				{"Reachable", strconv.FormatBool(d.Reachable)},
				{"Volume", formatVolume(d.Volume)},
				{"Muted", strconv.FormatBool(d.Muted)},
				{"Standby", formatStandby(d)},
			}).Render()
		},
	}
}

func newDevicesStandbyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "standby <address> <minutes>",
		Short: "Set a monitor's auto-standby timer (0 disables it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[1])
			if err != nil || minutes < 0 {
				return fmt.Errorf("minutes must be a non-negative integer, got %q", args[1])
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			if err := c.SetAutoStandby(ctx, args[0], minutes); err != nil {
				return fmt.Errorf("failed to set auto-standby: %w", err)
			}
			pterm.Success.Printf("Auto-standby for %s set to %d minutes\n", args[0], minutes)
			return nil
		},
	}
}
