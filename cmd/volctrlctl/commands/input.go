package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// NewEncoderCommand creates the encoder command, which injects detents as
// if the physical knob was turned.
func NewEncoderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encoder <delta>",
		Short: "Inject an encoder turn (negative is counter-clockwise)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[0])
			}
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			mode, err := c.Encoder(ctx, delta)
			if err != nil {
				return fmt.Errorf("failed to inject encoder turn: %w", err)
			}
			return printMode(cmd, mode)
		},
	}
}

// NewButtonCommand creates the button command.
func NewButtonCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "button <press|release|click>",
		Short:     "Inject an encoder button edge",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"press", "release", "click"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var edges []bool
			switch args[0] {
			case "press":
				edges = []bool{true}
			case "release":
				edges = []bool{false}
			default:
				edges = []bool{true, false}
			}

			var mode client.Mode
			for _, pressed := range edges {
				if mode, err = c.Button(ctx, pressed); err != nil {
					return fmt.Errorf("failed to inject button edge: %w", err)
				}
			}
			return printMode(cmd, mode)
		},
	}
}

func printMode(cmd *cobra.Command, mode client.Mode) error {
	format, _ := outputFormat(cmd)
	if done, err := writeStructured(cmd.OutOrStdout(), format, mode); done {
		return err
	}
	if format == outputParseable {
		fmt.Fprintln(cmd.OutOrStdout(), ModeParseable(mode))
		return nil
	}
	pterm.Info.Println("Mode: " + ModeSummary(mode))
	return nil
}
