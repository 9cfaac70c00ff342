// Package sass compiles SCSS through the Dart Sass embedded protocol.
package sass

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"

	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
)

// Request is one stylesheet to compile.
type Request struct {
	// Path is the stylesheet on disk. Relative imports resolve from its
	// directory.
	Path string
	// Source overrides the file content when non-empty.
	Source       string
	IncludePaths []string
	SourceMap    bool
}

// Result holds the compiled CSS.
type Result struct {
	CSS       string
	SourceMap string
}

// Compiler turns SCSS into CSS.
type Compiler interface {
	Compile(ctx context.Context, req Request) (Result, error)
	Close() error
}

// Error is a Sass compilation failure.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Dart talks to a long-lived Dart Sass process.
type Dart struct {
	transpiler *godartsass.Transpiler
}

// Start launches the Dart Sass binary. Warnings and deprecations the compiler
// emits go to logger.
func Start(binary string, logger logging.Logger) (*Dart, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, asserrors.NewEnhancedError(
			fmt.Sprintf("Dart Sass binary %q not found", binary),
			err,
			asserrors.SassBinaryError(binary),
		)
	}

	logger = logger.WithComponent("sass")
	t, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: path,
		LogEventHandler: func(e godartsass.LogEvent) {
			switch e.Type {
			case godartsass.LogEventTypeDebug:
				logger.Debug(context.Background(), e.Message)
			default:
				logger.Warn(context.Background(), nil, e.Message)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting dart sass: %w", err)
	}

	return &Dart{transpiler: t}, nil
}

// Compile implements Compiler.
func (d *Dart) Compile(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	source := req.Source
	if source == "" {
		b, err := os.ReadFile(req.Path)
		if err != nil {
			return Result{}, err
		}
		source = string(b)
	}

	abs, err := filepath.Abs(req.Path)
	if err != nil {
		return Result{}, err
	}

	includes := append([]string{filepath.Dir(abs)}, req.IncludePaths...)
	res, err := d.transpiler.Execute(godartsass.Args{
		Source:          source,
		URL:             "file://" + filepath.ToSlash(abs),
		IncludePaths:    includes,
		OutputStyle:     godartsass.OutputStyleExpanded,
		SourceSyntax:    syntaxFor(req.Path),
		EnableSourceMap: req.SourceMap,
	})
	if err != nil {
		var sassErr godartsass.SassError
		if errors.As(err, &sassErr) {
			return Result{}, &Error{Path: req.Path, Message: sassErr.Message}
		}
		return Result{}, &Error{Path: req.Path, Message: err.Error()}
	}

	return Result{CSS: res.CSS, SourceMap: res.SourceMap}, nil
}

// Close stops the Dart Sass process.
func (d *Dart) Close() error {
	return d.transpiler.Close()
}

func syntaxFor(path string) godartsass.SourceSyntax {
	switch filepath.Ext(path) {
	case ".sass":
		return godartsass.SourceSyntaxSASS
	case ".css":
		return godartsass.SourceSyntaxCSS
	default:
		return godartsass.SourceSyntaxSCSS
	}
}

var errClosed = errors.New("sass: compiler closed")

// Lazy starts the underlying compiler on first use, so commands that never
// touch styles do not need Dart Sass installed.
type Lazy struct {
	start func() (Compiler, error)

	once     sync.Once
	compiler Compiler
	err      error
}

// NewLazy wraps a constructor.
func NewLazy(start func() (Compiler, error)) *Lazy {
	return &Lazy{start: start}
}

// LazyDart returns a Lazy that starts Dart Sass from binary.
func LazyDart(binary string, logger logging.Logger) *Lazy {
	return NewLazy(func() (Compiler, error) {
		return Start(binary, logger)
	})
}

// Compile implements Compiler.
func (l *Lazy) Compile(ctx context.Context, req Request) (Result, error) {
	l.once.Do(func() {
		l.compiler, l.err = l.start()
	})
	if l.err != nil {
		return Result{}, l.err
	}
	return l.compiler.Compile(ctx, req)
}

// Close implements Compiler. It is a no-op when nothing was started.
func (l *Lazy) Close() error {
	started := true
	l.once.Do(func() {
		started = false
		l.err = errClosed
	})
	if !started || l.compiler == nil {
		return nil
	}
	return l.compiler.Close()
}
