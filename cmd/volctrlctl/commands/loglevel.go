package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogLevelCommand creates the log-level command
func NewLogLevelCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "log-level [debug|info|warn|error]",
		Short:     "Show or change the daemon log level",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"debug", "info", "warn", "error"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			var level string
			if len(args) == 0 {
				level, err = c.GetLogLevel(ctx)
			} else {
				level, err = c.SetLogLevel(ctx, args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to access log level: %w", err)
			}

			format, _ := outputFormat(cmd)
			if done, err := writeStructured(cmd.OutOrStdout(), format, map[string]string{"level": level}); done {
				return err
			}
			if format == outputParseable {
				fmt.Fprintf(cmd.OutOrStdout(), "level=%s\n", level)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), level)
			return nil
		},
	}
}
