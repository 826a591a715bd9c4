// Package web provides the real-time catcam dashboard.
//
// Server implements ui.Surface for browsers: every state change is kept in a
// snapshot and pushed to /ws/status subscribers. It is also a cue player,
// telling the browser which clip to play.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-catcam/pkg/detector"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/hub"
	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/ui"
)

// maxLogs is how many dashboard log entries are retained.
const maxLogs = 200

// State is the dashboard's view of the UI.
type State struct {
	Type     string             `json:"type"`
	Pages    map[string]bool    `json:"pages"`
	Banner   ui.Banner          `json:"banner"`
	Error    string             `json:"error,omitempty"`
	Effects  ui.Effects         `json:"effects"`
	Viewport media.Size         `json:"viewport"`
	Session  *detector.Snapshot `json:"session,omitempty"`
}

// CueEvent tells browsers to play a cue.
type CueEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
}

// LogEntry is a dashboard log line.
type LogEntry struct {
	Time    string `json:"time"`
	Type    string `json:"type"` // info, cat, badger, error
	Message string `json:"message"`
}

// Starter triggers a detection session for a viewport.
type Starter interface {
	Start(viewport media.Size) error
}

// Config configures the dashboard server.
type Config struct {
	Port     string
	WebDir   string
	Catalog  *effects.Catalog
	Presets  map[string]media.Size
	Viewport media.Size
	Logger   *slog.Logger
}

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	catalog  *effects.Catalog
	presets  map[string]media.Size
	viewport media.Size
	sink     *media.VideoSink

	state   State
	stateMu sync.RWMutex

	logs   []LogEntry
	logsMu sync.RWMutex

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub

	starter   Starter
	starterMu sync.RWMutex
}

// NewServer creates a new web dashboard server
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:      cfg.Port,
		logger:    logger.With("component", "web"),
		catalog:   cfg.Catalog,
		presets:   cfg.Presets,
		viewport:  cfg.Viewport,
		sink:      media.NewVideoSink(logger),
		logs:      make([]LogEntry, 0, maxLogs),
		statusHub: hub.New("status", logger),
		logHub:    hub.New("logs", logger),
		cameraHub: hub.New("camera", logger),
		state: State{
			Type:     "state",
			Pages:    make(map[string]bool),
			Viewport: cfg.Viewport,
		},
	}

	// Preview frames go out only when someone is watching.
	s.sink.OnFrame(func(f media.Frame) {
		if s.cameraHub.ClientCount() > 0 {
			s.cameraHub.BroadcastBinary(f.Data)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "catcam",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/start", s.handleStart)
	api.Get("/cues", s.handleCues)
	api.Get("/presets", s.handlePresets)
	api.Get("/logs", s.handleGetLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	if cfg.WebDir != "" {
		app.Static("/", cfg.WebDir)
	}

	s.app = app
	return s
}

// SetStarter wires the detection trigger.
func (s *Server) SetStarter(st Starter) {
	s.starterMu.Lock()
	s.starter = st
	s.starterMu.Unlock()
}

// Start runs the hubs until ctx is done and serves until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("web dashboard", "url", fmt.Sprintf("http://localhost:%s", s.port))

	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown(ctx context.Context) error {
	s.sink.Detach()
	return s.app.ShutdownWithContext(ctx)
}

// SetPageVisible implements ui.Surface.
func (s *Server) SetPageVisible(name string, visible bool) {
	s.updateState(func(st *State) { st.Pages[name] = visible })
}

// SetBanner implements ui.Surface.
func (s *Server) SetBanner(b ui.Banner) {
	s.updateState(func(st *State) { st.Banner = b })
}

// SetErrorMessage implements ui.Surface.
func (s *Server) SetErrorMessage(msg string) {
	s.updateState(func(st *State) { st.Error = msg })
	if msg != "" {
		s.AddLog("error", msg)
	}
}

// SetEffects implements ui.Surface.
func (s *Server) SetEffects(e ui.Effects) {
	s.updateState(func(st *State) { st.Effects = e })
}

// VideoSink implements ui.Surface.
func (s *Server) VideoSink() *media.VideoSink {
	return s.sink
}

// Play implements effects.CuePlayer by telling browsers to play the cue.
func (s *Server) Play(index int) {
	ev := CueEvent{Type: "cue", Index: index}
	if s.catalog != nil {
		if cues := s.catalog.Cues(); index >= 0 && index < len(cues) {
			ev.Name = cues[index].Name
		}
	}
	if err := s.statusHub.BroadcastJSON(ev); err != nil {
		s.logger.Warn("broadcast cue", "error", err)
	}
}

// SetSession records the latest session snapshot and broadcasts it.
func (s *Server) SetSession(snap detector.Snapshot) {
	s.updateState(func(st *State) { st.Session = &snap })
}

// Snapshot returns a copy of the current state.
func (s *Server) Snapshot() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.copyStateLocked()
}

func (s *Server) copyStateLocked() State {
	st := s.state
	st.Pages = make(map[string]bool, len(s.state.Pages))
	for k, v := range s.state.Pages {
		st.Pages[k] = v
	}
	if s.state.Session != nil {
		snap := *s.state.Session
		st.Session = &snap
	}
	return st
}

// updateState updates the state and broadcasts it to clients
func (s *Server) updateState(update func(*State)) {
	s.stateMu.Lock()
	update(&s.state)
	state := s.copyStateLocked()
	s.stateMu.Unlock()

	if err := s.statusHub.BroadcastJSON(state); err != nil {
		s.logger.Warn("broadcast state", "error", err)
	}
}

// AddLog adds a log entry and broadcasts to clients
func (s *Server) AddLog(logType, message string) {
	entry := LogEntry{
		Time:    time.Now().Format("15:04:05"),
		Type:    logType,
		Message: message,
	}

	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > maxLogs {
		s.logs = s.logs[1:]
	}
	s.logsMu.Unlock()

	if err := s.logHub.BroadcastJSON(entry); err != nil {
		s.logger.Warn("broadcast log", "error", err)
	}
}

// Logs returns the retained log entries.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

var (
	_ ui.Surface        = (*Server)(nil)
	_ effects.CuePlayer = (*Server)(nil)
)
