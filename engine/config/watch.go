package config

import (
	"context"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration file at path whenever it is written or recreated and passes the result to fn.
// The containing directory is watched so editors that replace the file on save are still seen. Watch blocks until
// ctx is done.
//
// Parameters:
//   - ctx: cancels the watch
//   - path: the TOML file
//   - fn: called with every reload result, including parse failures
//
// Returns:
//   - error: an error if the watcher cannot be created, otherwise nil once ctx is done
func Watch(ctx context.Context, path string, fn func(Config, error)) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				common.Logger().Warn("config reload failed", "path", path, "error", err)
			} else {
				common.Logger().Info("config reloaded", "path", path)
			}
			fn(cfg, err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			common.Logger().Warn("config watcher error", "error", err)
		}
	}
}
