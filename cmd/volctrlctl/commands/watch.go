package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
)

// watcher is implemented by clients that can stream events.
type watcher interface {
	Watch(ctx context.Context, types []string, fn func(client.Event) error) error
}

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var types []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream daemon events (HTTP API only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getClient(cmd)
			if err != nil {
				return err
			}
			w, ok := c.(watcher)
			if !ok {
				return fmt.Errorf("watch needs the HTTP API; pass --http")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			format, _ := outputFormat(cmd)
			return w.Watch(ctx, types, func(ev client.Event) error {
				return printEvent(cmd, format, ev)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&types, "types", "t", nil, "Event types to receive (default all)")
	return cmd
}

func printEvent(cmd *cobra.Command, format string, ev client.Event) error {
	out := cmd.OutOrStdout()
	switch format {
	case outputJSON, outputParseable:
		return json.NewEncoder(out).Encode(ev)
	case outputYAML:
		var data any
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return err
		}
		_, err := writeStructured(out, outputYAML, []map[string]any{{
			"type": ev.Type, "timestamp": ev.Timestamp, "data": data,
		}})
		return err
	default:
		pterm.Printf("%s %s %s\n",
			pterm.Gray(ev.Timestamp.Format("15:04:05.000")),
			pterm.Bold.Sprint(ev.Type),
			string(ev.Data))
		return nil
	}
}
