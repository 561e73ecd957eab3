package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with a freshly loaded and validated Config each time the
// config file is written or replaced. It returns when ctx is cancelled.
// Invalid edits are logged and skipped. Without a config file Watch
// returns immediately.
func (c *Config) Watch(ctx context.Context, logger *slog.Logger, fn func(*Config)) error {
	path := c.File()
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Watch the directory so editors that replace the file are seen.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		return err
	}
	logger.Debug("Watching config file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			next, err := c.Reload()
			if err != nil {
				logger.Warn("Config reload failed", "path", path, "error", err)
				continue
			}
			if err := next.Validate(); err != nil {
				logger.Warn("Ignoring invalid config change", "path", path, "error", err)
				continue
			}
			logger.Info("Config file changed", "path", path)
			fn(next)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", "error", err)
		}
	}
}
