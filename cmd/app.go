package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/viper"

	"github.com/conneroisu/assetry/internal/build"
	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
	"github.com/conneroisu/assetry/internal/notify"
	"github.com/conneroisu/assetry/internal/sass"
	"github.com/conneroisu/assetry/internal/server"
)

// app is the wiring shared by every command that runs tasks.
type app struct {
	config *config.Config
	logger logging.Logger
	runner *build.Runner
	sass   *sass.Lazy
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		path := viper.ConfigFileUsed()
		if path == "" {
			path = ".assetry.yml"
		}
		return nil, asserrors.NewEnhancedError(
			"Configuration could not be loaded",
			err,
			asserrors.ConfigurationError(err.Error(), path),
		)
	}
	return cfg, nil
}

func newApp(production bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if production {
		cfg.Production = true
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	compiler := sass.LazyDart(cfg.Styles.SassBinary, logger)
	env := &build.Env{
		Config:   cfg,
		Logger:   logger,
		Notifier: notify.New(logger, cfg.Notify.Desktop),
		Sass:     compiler,
		Cache:    build.NewBuildCache(build.DefaultCacheSize, 0),
	}

	return &app{
		config: cfg,
		logger: logger,
		runner: build.NewRunner(env),
		sass:   compiler,
	}, nil
}

func (a *app) Close() error {
	return a.sass.Close()
}

// series runs the named tasks once.
func (a *app) series(ctx context.Context, names ...string) error {
	a.logger.Info(ctx, "Building", "mode", a.config.Mode(), "src", a.config.SrcDir(), "build", a.config.BuildDir())
	return a.runner.Series(ctx, names...)
}

// serve runs the full pipeline, then serves the build root and rebuilds on
// change until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	srv := server.New(a.config, a.runner, a.logger)
	a.runner.Env().Streamer = srv

	if err := a.series(ctx, build.Pipeline...); err != nil {
		return err
	}

	fw, err := server.Watch(ctx, a.config, a.runner, a.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	err = srv.Start(ctx)
	a.runner.Wait()
	if errors.Is(ctx.Err(), context.Canceled) && err == nil {
		a.logger.Info(context.Background(), "Stopped")
	}
	return err
}

func withApp(production bool, fn func(a *app) error) error {
	a, err := newApp(production)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.logger.Warn(context.Background(), cerr, "Sass compiler did not shut down cleanly")
		}
	}()
	return fn(a)
}
