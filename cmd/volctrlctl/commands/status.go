package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show mode, monitors and companion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			st, err := c.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			format, _ := outputFormat(cmd)
			if done, err := writeStructured(cmd.OutOrStdout(), format, st); done {
				return err
			}

			if format == outputParseable {
				fmt.Fprintln(cmd.OutOrStdout(), ModeParseable(st.Mode))
				for _, d := range st.Devices {
					fmt.Fprintln(cmd.OutOrStdout(), DeviceParseable(d))
				}
				if st.Companion != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "companion "+CompanionParseable(*st.Companion))
				}
				return nil
			}

			pterm.DefaultSection.Println("Mode")
			pterm.Println(ModeSummary(st.Mode))
			pterm.DefaultSection.Println("Monitors")
			if len(st.Devices) == 0 {
				pterm.Info.Println("No monitors configured")
			} else if err := pterm.DefaultTable.WithHasHeader().WithData(DeviceTableData(st.Devices)).Render(); err != nil {
				return err
			}
			if st.Companion != nil {
				pterm.DefaultSection.Println("Companion")
				return pterm.DefaultTable.WithHasHeader().WithData(CompanionTableData(*st.Companion)).Render()
			}
			return nil
		},
	}
}

// NewModeCommand creates the mode command
func NewModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Show the control surface mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			st, err := c.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			return printMode(cmd, st.Mode)
		},
	}
}
