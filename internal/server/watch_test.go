package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetry/internal/build"
	"github.com/conneroisu/assetry/internal/config"
)

func TestWatchRules(t *testing.T) {
	cfg := testConfig(t)
	rules, err := WatchRules(cfg)
	require.NoError(t, err)

	src := cfg.SrcDir()
	tests := map[string][]string{
		"fonts/Inter.woff2":      {build.TaskFonts},
		"svg/arrow.svg":          {build.TaskSprite},
		"img/photo.jpg":          {build.TaskImages},
		"scss/blocks/_nav.scss":  {build.TaskStyles},
		"js/modules/menu.js":     {build.TaskScripts},
		"html/partials/nav.html": {build.TaskHTML},
		"index.html":             {build.TaskHTML},
		"readme.md":              nil,
	}
	for rel, want := range tests {
		t.Run(rel, func(t *testing.T) {
			assert.Equal(t, want, rules.Match(filepath.Join(src, filepath.FromSlash(rel))))
		})
	}
}

func TestWatchRulesRejectBadGlob(t *testing.T) {
	cfg := testConfig(t)
	cfg.Paths[string(config.CategoryStyles)] = config.AssetPath{
		Src:   "scss/*.scss",
		Dest:  "assets/css",
		Watch: "/abs/*.scss",
	}

	_, err := WatchRules(cfg)
	assert.Error(t, err)
}

func TestWatchTriggersMatchingTask(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watch.Debounce = 20 * time.Millisecond
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.SrcDir(), "scss"), 0o755))

	var mu sync.Mutex
	runs := map[string]int{}
	record := func(name string) build.Task {
		return build.NewTask(name, name, func(ctx context.Context, env *build.Env) error {
			mu.Lock()
			runs[name]++
			mu.Unlock()
			return nil
		})
	}
	runner := build.NewRunner(&build.Env{Config: cfg}, record(build.TaskStyles), record(build.TaskHTML))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fw, err := Watch(ctx, cfg, runner, nil)
	require.NoError(t, err)
	defer fw.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(cfg.SrcDir(), "scss", "main.scss"), []byte("a{}"), 0o644))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return runs[build.TaskStyles] > 0
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.SrcDir(), "notes.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	runner.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, runs[build.TaskHTML])
}
