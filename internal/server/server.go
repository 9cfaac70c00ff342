// Package server is the development server: it serves the build root, injects
// a live-reload client into HTML pages and pushes reload, CSS swap and error
// messages over a websocket whenever a task finishes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/assetry/internal/build"
	"github.com/conneroisu/assetry/internal/config"
	asserrors "github.com/conneroisu/assetry/internal/errors"
	"github.com/conneroisu/assetry/internal/logging"
)

// Routes owned by the server. Everything else is a file under the build root.
const (
	routePrefix  = "/__assetry/"
	routeWS      = routePrefix + "ws"
	routeHealth  = routePrefix + "health"
	routeErrors  = routePrefix + "errors"
	routeClient  = routePrefix + "client.js"
	clientScript = `<script src="` + routeClient + `"></script>`
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *DevServer
}

// DevServer serves the build root with live reload.
type DevServer struct {
	config *config.Config
	runner *build.Runner
	logger logging.Logger

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	hubDone      chan struct{}

	shutdownOnce sync.Once
	started      time.Time
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Path      string    `json:"path,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a server for cfg. runner is used for health reporting and may
// be nil.
func New(cfg *config.Config, runner *build.Runner, logger logging.Logger) *DevServer {
	if logger == nil {
		logger = logging.Nop()
	}
	return &DevServer{
		config:     cfg,
		runner:     runner,
		logger:     logger.WithComponent("server"),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		hubDone:    make(chan struct{}),
		started:    time.Now(),
	}
}

// Addr returns the configured listen address.
func (s *DevServer) Addr() string {
	return net.JoinHostPort(s.config.Server.Host, fmt.Sprint(s.config.Server.Port))
}

// Handler returns the HTTP handler of the server.
func (s *DevServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(routeWS, s.handleWebSocket)
	mux.HandleFunc(routeHealth, s.handleHealth)
	mux.HandleFunc(routeErrors, s.handleErrors)
	mux.HandleFunc(routeClient, s.handleClient)
	mux.HandleFunc("/", s.handleStatic)
	return s.addMiddleware(mux)
}

// Start runs the websocket hub and serves until ctx is cancelled or the
// listener fails.
func (s *DevServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return asserrors.NewEnhancedError(
			"Could not start the development server",
			err,
			asserrors.ServerStartError(err, s.config.Server.Port),
		)
	}
	return s.Serve(ctx, listener)
}

// Serve is Start on an existing listener.
func (s *DevServer) Serve(ctx context.Context, listener net.Listener) error {
	go s.runWebSocketHub(ctx)

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	url := "http://" + listener.Addr().String()
	s.logger.Info(ctx, "Serving files", "url", url, "root", s.config.BuildDir())
	if s.config.Server.Open {
		go s.openBrowser(ctx, url)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(context.Background(), err, "Server shutdown failed")
		}
	}()

	if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *DevServer) openBrowser(ctx context.Context, url string) {
	time.Sleep(100 * time.Millisecond) // Give server time to start

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser", "url", url)
	}
}

func (s *DevServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Browsers must always see the latest build.
		w.Header().Set("Cache-Control", "no-store")

		start := time.Now()
		handler.ServeHTTP(w, r)
		if !strings.HasPrefix(r.URL.Path, routePrefix) {
			s.logger.Debug(r.Context(), "Request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		}
	})
}

// Stream implements build.Streamer. Stylesheets are swapped in place, any
// other output reloads the page.
func (s *DevServer) Stream(ctx context.Context, task string, paths []string) {
	if len(paths) == 0 {
		return
	}

	var css []string
	for _, p := range paths {
		if filepath.Ext(p) != ".css" {
			s.broadcastMessage(ctx, UpdateMessage{Type: "reload", Timestamp: time.Now()})
			return
		}
		if u, ok := s.urlFor(p); ok {
			css = append(css, u)
		}
	}
	for _, u := range css {
		s.broadcastMessage(ctx, UpdateMessage{Type: "css", Path: u, Timestamp: time.Now()})
	}
}

// Report implements build.Streamer by forwarding task problems to the
// browser overlay.
func (s *DevServer) Report(ctx context.Context, task string, errs []asserrors.BuildError) {
	if len(errs) == 0 {
		return
	}
	s.broadcastMessage(ctx, UpdateMessage{
		Type:      "notify",
		Content:   asserrors.FormatErrors(errs),
		Timestamp: time.Now(),
	})
}

// urlFor maps a written file to its URL path under the build root.
func (s *DevServer) urlFor(file string) (string, bool) {
	root, err := filepath.Abs(s.config.BuildDir())
	if err != nil {
		return "", false
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path.Join("/", filepath.ToSlash(rel)), true
}

func (s *DevServer) broadcastMessage(ctx context.Context, msg UpdateMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		s.logger.Warn(ctx, err, "Failed to marshal message")
		jsonData = []byte(`{"type":"reload"}`)
	}

	select {
	case s.broadcast <- jsonData:
	default:
		s.logger.Warn(ctx, nil, "Dropping live reload message, hub is busy", "type", msg.Type)
	}
}

// ClientCount returns the number of connected browsers.
func (s *DevServer) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

// Shutdown gracefully shuts down the server and cleans up resources
func (s *DevServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
