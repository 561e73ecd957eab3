package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/volctrld/pkg/client"
)

type clientContextKey struct{}

type loggerContextKey struct{}

// WithClient returns ctx carrying c. Commands use it instead of building
// their own client from flags.
func WithClient(ctx context.Context, c client.ClientInterface) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

func getClient(cmd *cobra.Command) (client.ClientInterface, error) {
	if c, ok := cmd.Context().Value(clientContextKey{}).(client.ClientInterface); ok && c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("no daemon client configured")
}

// getLoggerFromCmd returns the slog.Logger from the command context
func getLoggerFromCmd(cmd *cobra.Command) *slog.Logger {
	if logger, ok := cmd.Context().Value(loggerContextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}
