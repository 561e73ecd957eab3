package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
	"github.com/jmylchreest/volctrld/pkg/companion"
)

// NewCompanionCommand creates the companion command. Without arguments it
// shows the streamer status.
func NewCompanionCommand() *cobra.Command {
	valid := make([]string, len(companion.Commands))
	for i, c := range companion.Commands {
		valid[i] = string(c)
	}

	return &cobra.Command{
		Use:   "companion [command] [input]",
		Short: "Show or control the companion streamer",
		Long: "Without arguments, shows the companion status. Commands: play-pause, play, pause, " +
			"stop, next, previous, cycle-input, input <wifi|bluetooth|optical|line-in>, status.",
		ValidArgs: valid,
		Args:      cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var st client.Companion
			if len(args) == 0 {
				status, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get status: %w", err)
				}
				if status.Companion == nil {
					return fmt.Errorf("no companion device configured")
				}
				st = *status.Companion
			} else {
				command, err := companion.ParseCommand(args[0])
				if err != nil {
					return err
				}
				input := ""
				if len(args) == 2 {
					input = args[1]
				}
				if command == companion.CmdInput && input == "" {
					return fmt.Errorf("the input command needs an input name")
				}
				if st, err = c.Companion(ctx, string(command), input); err != nil {
					if client.IsNotFound(err) {
						return fmt.Errorf("no companion device configured")
					}
					return fmt.Errorf("companion %s failed: %w", command, err)
				}
			}

			format, _ := outputFormat(cmd)
			if done, err := writeStructured(cmd.OutOrStdout(), format, st); done {
				return err
			}
			if format == outputParseable {
				fmt.Fprintln(cmd.OutOrStdout(), CompanionParseable(st))
				return nil
			}
			return pterm.DefaultTable.WithHasHeader().WithData(CompanionTableData(st)).Render()
		},
	}
}
