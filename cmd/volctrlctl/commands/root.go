package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/utils"
	"github.com/jmylchreest/volctrld/pkg/client"
)

// versioner is implemented by clients that can report the daemon version.
type versioner interface {
	GetVersion(ctx context.Context) (map[string]any, error)
}

// NewRootCommand creates the root command. level, when non-nil, is the
// handler level behind logger and follows --log-level.
func NewRootCommand(logger *slog.Logger, level *slog.LevelVar, version, commit, buildDate string) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "volctrlctl",
		Short:         "Control studio monitors through volctrld",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := outputFormat(cmd); err != nil {
				return err
			}
			if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed && level != nil {
				level.Set(utils.GetLogLevel(utils.ValidateLogLevel(f.Value.String())))
			}
			if _, err := getClient(cmd); err == nil {
				return nil
			}
			path, _ := cmd.Flags().GetString("config")
			readClientConfig(v, path, getLoggerFromCmd(cmd))
			c, err := newClient(v, getLoggerFromCmd(cmd))
			if err != nil {
				return err
			}
			cmd.SetContext(WithClient(cmd.Context(), c))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to client config file")
	flags.String("socket", "", "Path to volctrld socket")
	flags.String("http", "", "Use the HTTP API at this base URL instead of the socket")
	flags.String("api-key", "", "API key for the HTTP API")
	flags.Duration("timeout", 10*time.Second, "Request timeout")
	flags.StringP("output", "o", outputTable, "Output format (table, json, yaml, parseable)")
	flags.String("log-level", config.LogLevelWarn, "Client log level (debug, info, warn, error)")

	for key, flag := range map[string]string{
		"socket":  "socket",
		"http":    "http",
		"api_key": "api-key",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	v.SetEnvPrefix("VOLCTRLCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd.AddCommand(
		newVersionCommand(version, commit, buildDate),
		NewStatusCommand(),
		NewModeCommand(),
		NewDevicesCommand(),
		NewVolumeCommand(),
		NewMuteCommand(),
		NewEncoderCommand(),
		NewButtonCommand(),
		NewCompanionCommand(),
		NewLogLevelCommand(),
		NewWatchCommand(),
	)

	if logger != nil {
		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		cmd.SetContext(context.WithValue(parent, loggerContextKey{}, logger))
	}

	return cmd
}

// requestContext bounds one daemon call by --timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

// readClientConfig loads volctrlctl.yaml when present. Flags and
// environment still win.
func readClientConfig(v *viper.Viper, path string, logger *slog.Logger) {
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigFile(config.GetClientConfigPath())
	}
	if err := v.ReadInConfig(); err != nil {
		logger.Debug("No client config loaded", "error", err)
	}
}

// newClient picks the HTTP client when a base URL is configured and the
// socket client otherwise.
func newClient(v *viper.Viper, logger *slog.Logger) (client.ClientInterface, error) {
	if base := v.GetString("http"); base != "" {
		if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
			return nil, fmt.Errorf("--http must be an http:// or https:// URL, got %q", base)
		}
		return client.NewHTTP(logger, base, v.GetString("api_key")), nil
	}
	socket := v.GetString("socket")
	if socket == "" {
		socket = config.GetRuntimeSocketPath()
	}
	return client.New(logger, socket), nil
}

// newVersionCommand creates the version command
func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Client:\n")
			fmt.Fprintf(out, "  Version:    %s\n", version)
			fmt.Fprintf(out, "  Commit:     %s\n", commit)
			fmt.Fprintf(out, "  Build Date: %s\n", buildDate)

			c, err := getClient(cmd)
			if err != nil {
				return nil
			}
			vc, ok := c.(versioner)
			if !ok {
				return nil
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()
			resp, err := vc.GetVersion(ctx)
			if err != nil {
				fmt.Fprintf(out, "\nDaemon: not reachable\n")
				return nil
			}
			fmt.Fprintf(out, "\nDaemon:\n")
			fmt.Fprintf(out, "  Version:    %v\n", resp["version"])
			fmt.Fprintf(out, "  Commit:     %v\n", resp["commit"])
			fmt.Fprintf(out, "  Build Date: %v\n", resp["build_date"])
			return nil
		},
	}
}
