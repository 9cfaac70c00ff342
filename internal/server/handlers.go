package server

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/net/html"

	"github.com/conneroisu/assetry/internal/build"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/version"
)

//go:embed client.js
var clientJS []byte

func (s *DevServer) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := path.Clean("/" + r.URL.Path)
	if strings.HasPrefix(urlPath+"/", routePrefix) {
		s.notFound(w, r)
		return
	}

	file := filepath.Join(s.config.BuildDir(), filepath.FromSlash(urlPath))
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(r.Context(), err, "Could not stat file", "path", file)
		}
		s.notFound(w, r)
		return
	}

	if filepath.Ext(file) != ".html" {
		f, err := os.Open(file)
		if err != nil {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		defer f.Close()
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
		return
	}

	page, err := os.ReadFile(file)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	page = InjectClient(page, clientScript)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, info.Name(), info.ModTime(), bytes.NewReader(page))
}

func (s *DevServer) notFound(w http.ResponseWriter, r *http.Request) {
	templ.Handler(notFoundPage(r.URL.Path), templ.WithStatus(http.StatusNotFound)).ServeHTTP(w, r)
}

func (s *DevServer) handleClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(clientJS)
}

// InjectClient inserts snippet before the last closing body tag of page, or
// appends it when the page has none.
func InjectClient(page []byte, snippet string) []byte {
	pos := -1
	offset := 0

	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				pos = offset
			}
		}
		offset += raw
	}

	out := make([]byte, 0, len(page)+len(snippet))
	if pos < 0 {
		out = append(out, page...)
		return append(out, snippet...)
	}
	out = append(out, page[:pos]...)
	out = append(out, snippet...)
	return append(out, page[pos:]...)
}

type healthError struct {
	Task    string `json:"task"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Mode      string                 `json:"mode"`
	Clients   int                    `json:"clients"`
	Metrics   *build.MetricsSnapshot `json:"metrics,omitempty"`
	Cache     *build.CacheStats      `json:"cache,omitempty"`
	Errors    []healthError          `json:"errors"`
}

// handleHealth reports server state, task metrics and outstanding errors.
func (s *DevServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.GetShortVersion(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Mode:      s.config.Mode(),
		Clients:   s.ClientCount(),
		Errors:    []healthError{},
	}

	if s.runner != nil {
		snapshot := s.runner.Metrics().GetSnapshot()
		resp.Metrics = &snapshot
		if cache := s.runner.Env().Cache; cache != nil {
			stats := cache.Stats()
			resp.Cache = &stats
		}
		for _, e := range s.runner.Errors().GetErrors() {
			resp.Errors = append(resp.Errors, healthError{
				Task:    e.Task,
				File:    e.File,
				Line:    e.Line,
				Column:  e.Column,
				Message: e.Message,
			})
		}
	}
	if len(resp.Errors) > 0 {
		resp.Status = "error"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode health response")
	}
}

// handleErrors renders the outstanding task errors as a page.
func (s *DevServer) handleErrors(w http.ResponseWriter, r *http.Request) {
	var errs []asserrors.BuildError
	if s.runner != nil {
		errs = s.runner.Errors().GetErrors()
	}
	templ.Handler(errorsPage(errs)).ServeHTTP(w, r)
}
