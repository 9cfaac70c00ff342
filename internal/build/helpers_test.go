package build

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
	"github.com/conneroisu/assetry/internal/notify"
	"github.com/conneroisu/assetry/internal/sass"
)

// fileSass returns stylesheet files unchanged, which is enough for plain
// CSS written with an .scss extension.
type fileSass struct {
	fail map[string]string
}

func (f fileSass) Compile(_ context.Context, req sass.Request) (sass.Result, error) {
	if msg, ok := f.fail[filepath.Base(req.Path)]; ok {
		return sass.Result{}, &sass.Error{Path: req.Path, Message: msg}
	}
	b, err := os.ReadFile(req.Path)
	if err != nil {
		return sass.Result{}, err
	}
	return sass.Result{CSS: string(b)}, nil
}

func (fileSass) Close() error { return nil }

type recordingStreamer struct {
	mu       sync.Mutex
	streamed map[string][]string
	reported map[string][]asserrors.BuildError
}

func newRecordingStreamer() *recordingStreamer {
	return &recordingStreamer{
		streamed: make(map[string][]string),
		reported: make(map[string][]asserrors.BuildError),
	}
}

func (s *recordingStreamer) Stream(_ context.Context, task string, paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamed[task] = append(s.streamed[task], paths...)
}

func (s *recordingStreamer) Report(_ context.Context, task string, errs []asserrors.BuildError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reported[task] = errs
}

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, data := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, data, 0o644))
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 30), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// sampleProject lays out a small source tree touching every category.
func sampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, filepath.Join(root, "src"), map[string][]byte{
		"fonts/Inter.woff2":   []byte("wOF2 font data"),
		"fonts/readme.txt":    []byte("not a font"),
		"svg/arrow.svg":       []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><path d="M4 12h16" fill="#000" stroke="red"/></svg>`),
		"svg/close.svg":       []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"><path d="M2 2l12 12" style="stroke:#000"/></svg>`),
		"img/photo.png":       pngBytes(t),
		"img/logo.svg":        []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`),
		"img/sub/anim.gif":    []byte("GIF89a fake"),
		"scss/main.scss":      []byte(".card {\n  display: flex;\n  user-select: none;\n}\n\n.card .title {\n  color: #ff0000;\n}\n"),
		"scss/_partial.scss":  []byte(".partial { color: blue; }\n"),
		"scss/blocks/_x.scss": []byte(".x { color: red; }\n"),
		"js/main.js":          []byte("import { greet } from './util.js';\n\nconst message = greet('world');\nconsole.log(message);\n"),
		"js/util.js":          []byte("export function greet(name) {\n  const greeting = `Hello, ${name}`;\n  return greeting;\n}\n"),
		"html/header.html":    []byte("<header><h1>@title</h1></header>"),
		"index.html":          []byte("<!DOCTYPE html>\n<html lang=\"ru\">\n<body>\n@include('html/header.html', {\"title\": \"Главная\"})\n<p>Это \"тест\"...</p>\n</body>\n</html>\n"),
	})
	return root
}

func testConfig(root string, production bool) *config.Config {
	cfg := config.Default()
	cfg.Root = root
	cfg.Src = "src"
	cfg.Build = "dest"
	cfg.Production = production
	cfg.Images.Workers = 2
	return cfg
}

type harness struct {
	runner   *Runner
	notes    *notify.Recorder
	streamer *recordingStreamer
	logs     *bytes.Buffer
}

func newHarness(cfg *config.Config, compiler sass.Compiler, tasks ...Task) *harness {
	logs := &bytes.Buffer{}
	notes := &notify.Recorder{}
	streamer := newRecordingStreamer()
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelDebug, Format: "text", Output: &syncWriter{w: logs}})

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		Notifier: notes,
		Sass:     compiler,
		Streamer: streamer,
	}
	return &harness{
		runner:   NewRunner(env, tasks...),
		notes:    notes,
		streamer: streamer,
		logs:     logs,
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  *bytes.Buffer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func readTree(t *testing.T, root string) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = data
		return nil
	}))
	return out
}
