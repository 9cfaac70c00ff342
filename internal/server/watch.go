package server

import (
	"context"
	"fmt"
	"os"

	"github.com/conneroisu/assetry/internal/build"
	"github.com/conneroisu/assetry/internal/config"
	"github.com/conneroisu/assetry/internal/logging"
	"github.com/conneroisu/assetry/internal/watcher"
)

// WatchRules maps every category's watch glob to the task rebuilding it.
func WatchRules(cfg *config.Config) (*watcher.Rules, error) {
	rules := &watcher.Rules{}
	for _, cat := range config.Categories {
		asset := cfg.Asset(cat)
		if asset.Watch == "" {
			continue
		}
		task := build.TaskForCategory(cat)
		if err := rules.Add(task, cfg.SrcDir(), asset.Watch); err != nil {
			return nil, fmt.Errorf("watch glob for %s: %w", cat, err)
		}
	}
	return rules, nil
}

// Watch starts a file watcher over the source root that re-runs the task of
// every category whose watch glob matches a change. Task failures are logged
// by the runner and never stop the watcher.
func Watch(ctx context.Context, cfg *config.Config, runner *build.Runner, logger logging.Logger) (*watcher.FileWatcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	rules, err := WatchRules(cfg)
	if err != nil {
		return nil, err
	}

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(rules.Filter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		for _, e := range events {
			logger.Debug(ctx, "File changed", "path", e.Path, "type", e.Type.String())
		}
		for _, task := range rules.Names(events) {
			logger.Info(ctx, "Change detected", "task", task, "files", len(events))
			runner.Trigger(ctx, task)
		}
		return nil
	})

	src := cfg.SrcDir()
	if err := os.MkdirAll(src, 0o755); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("source directory %s: %w", src, err)
	}
	if err := fw.AddRecursive(src); err != nil {
		fw.Stop()
		return nil, fmt.Errorf("failed to watch %s: %w", src, err)
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return nil, err
	}

	logger.Info(ctx, "Watching for changes", "root", src, "directories", len(fw.WatchedPaths()))
	return fw, nil
}
