package main

import (
	"cmp"
	"context"
	"log/slog"
	"os"

	"github.com/pterm/pterm"

	"github.com/jmylchreest/volctrld/cmd/volctrlctl/commands"
	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/utils"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	level := new(slog.LevelVar)
	logger := utils.SetupLogger(cmp.Or(os.Getenv("VOLCTRLCTL_LOG_LEVEL"), config.LogLevelWarn), config.LogFormatText, level)
	utils.SetAsDefaultLogger(logger)

	rootCmd := commands.NewRootCommand(logger, level, version, commit, buildDate)

	ctx := rootCmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
