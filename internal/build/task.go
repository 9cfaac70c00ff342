// Package build runs the asset pipeline: a fixed set of named tasks, each
// reading one category of source files, handing them to a library and writing
// the result under the build root.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/include"
	"github.com/conneroisu/assetry/internal/logging"
	"github.com/conneroisu/assetry/internal/notify"
	"github.com/conneroisu/assetry/internal/sass"
)

// Task is one step of the pipeline.
type Task interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Env) error
}

// Streamer receives what a task produced. The live-reload server implements
// it to push changes to browsers.
type Streamer interface {
	Stream(ctx context.Context, task string, paths []string)
	Report(ctx context.Context, task string, errs []asserrors.BuildError)
}

type nopStreamer struct{}

func (nopStreamer) Stream(context.Context, string, []string)                {}
func (nopStreamer) Report(context.Context, string, []asserrors.BuildError) {}

// Env is everything a task may use. The runner hands every run its own copy
// so written paths and reported problems stay per run.
type Env struct {
	Config   *config.Config
	Logger   logging.Logger
	Notifier notify.Notifier
	Sass     sass.Compiler
	Streamer Streamer
	// Cache memoizes image conversions across runs. Nil disables it.
	Cache *BuildCache

	mu       sync.Mutex
	written  []string
	problems []asserrors.BuildError
}

func (e *Env) fork(task string) *Env {
	logger := e.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	notifier := e.Notifier
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}
	streamer := e.Streamer
	if streamer == nil {
		streamer = nopStreamer{}
	}
	return &Env{
		Config:   e.Config,
		Logger:   logger.WithComponent(task),
		Notifier: notifier,
		Sass:     e.Sass,
		Streamer: streamer,
		Cache:    e.Cache,
	}
}

// WriteFile writes data to path, creating parent directories, and records
// the path for live reload.
func (e *Env) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	e.record(path)
	return nil
}

// CopyFile copies src to dst byte for byte.
func (e *Env) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	e.record(dst)
	return nil
}

func (e *Env) record(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.written = append(e.written, path)
}

// Written returns the paths written so far, sorted.
func (e *Env) Written() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]string(nil), e.written...)
	sort.Strings(out)
	return out
}

// Report handles a recoverable failure: it is logged, sent to the notifier
// as "Error: <message>" under title, and remembered for the error overlay.
// The task carries on.
func (e *Env) Report(ctx context.Context, title string, err error) {
	e.Logger.Error(ctx, err, "Task error", "title", title)
	if nerr := e.Notifier.Notify(ctx, title, "Error: "+err.Error()); nerr != nil {
		e.Logger.Warn(ctx, nerr, "Notification failed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.problems = append(e.problems, toBuildErrors(err)...)
}

// Problems returns the failures reported during the run.
func (e *Env) Problems() []asserrors.BuildError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]asserrors.BuildError(nil), e.problems...)
}

// toBuildErrors flattens the error types the pipeline knows into located
// build errors.
func toBuildErrors(err error) []asserrors.BuildError {
	if err == nil {
		return nil
	}

	var list asserrors.BuildErrors
	if errors.As(err, &list) {
		out := make([]asserrors.BuildError, 0, len(list))
		for _, be := range list {
			out = append(out, *be)
		}
		return out
	}

	var be *asserrors.BuildError
	if errors.As(err, &be) {
		return []asserrors.BuildError{*be}
	}

	var sassErr *sass.Error
	if errors.As(err, &sassErr) {
		return []asserrors.BuildError{{File: sassErr.Path, Message: sassErr.Message, Severity: asserrors.ErrorSeverityError}}
	}

	var incErr *include.Error
	if errors.As(err, &incErr) {
		msg := incErr.Message
		if incErr.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, incErr.Err)
		}
		return []asserrors.BuildError{{File: incErr.File, Line: incErr.Line, Message: msg, Severity: asserrors.ErrorSeverityError}}
	}

	return []asserrors.BuildError{{Message: err.Error(), Severity: asserrors.ErrorSeverityError}}
}

// simpleTask adapts a function to Task.
type simpleTask struct {
	name        string
	description string
	run         func(ctx context.Context, env *Env) error
}

func (t simpleTask) Name() string                            { return t.name }
func (t simpleTask) Description() string                     { return t.description }
func (t simpleTask) Run(ctx context.Context, env *Env) error { return t.run(ctx, env) }

// NewTask builds a Task from a function.
func NewTask(name, description string, run func(ctx context.Context, env *Env) error) Task {
	return simpleTask{name: name, description: description, run: run}
}
