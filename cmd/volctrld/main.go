package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/volctrld/internal/config"
	"github.com/jmylchreest/volctrld/internal/server"
	"github.com/jmylchreest/volctrld/internal/utils"
	"github.com/jmylchreest/volctrld/pkg/ssc"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// newFlagSet declares the daemon flags. Names match the keys config.Load
// binds, so a flag always overrides the file and environment.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("volctrld", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file")
	fs.StringSlice("env-file", nil, "Environment files to load before reading config (default .env)")
	fs.String("log-level", config.LogLevelInfo, "Log level (debug, info, warn, error)")
	fs.String("log-format", config.LogFormatText, "Log format (text, json)")
	fs.String("socket", "", "Unix socket path")
	fs.String("http-addr", "", "HTTP API listen address")
	fs.Bool("version", false, "Print version and exit")
	return fs
}

// loadConfig loads and validates configuration for the parsed flags.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	envFiles, _ := fs.GetStringSlice("env-file")
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	fs := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	if v, _ := fs.GetBool("version"); v {
		fmt.Printf("volctrld %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		utils.SetupErrorLogger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	logger := utils.SetupLogger(cfg.Logging.Level, cfg.Logging.Format, level)
	utils.SetAsDefaultLogger(logger)

	logger.Info("Starting volctrld",
		"version", version,
		"commit", commit,
		"buildDate", buildDate,
	)

	transport := ssc.NewTransport(cfg.Speaker.Port, cfg.Speaker.Timeout, logger)
	speakers := ssc.NewClient(transport, cfg.Speaker.MaxVolume, logger)

	srv, err := server.New(logger, level, cfg, speakers, server.BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildDate: buildDate,
	})
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", "error", err)
		srv.Stop()
		os.Exit(1)
	}

	go func() {
		err := cfg.Watch(ctx, logger, func(next *config.Config) {
			if err := srv.ApplyConfig(ctx, next); err != nil {
				logger.Warn("Failed to apply config change", "error", err)
			}
		})
		if err != nil {
			logger.Warn("Config watcher stopped", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	srv.Stop()
}
