package web

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-catcam/pkg/camera"
	"github.com/teslashibe/go-catcam/pkg/detector"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/hub"
	"github.com/teslashibe/go-catcam/pkg/media"
)

// StartRequest is the request body for starting detection. Preset wins over
// explicit dimensions; an empty body uses the configured viewport.
type StartRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Preset string `json:"preset"`
}

// PresetInfo describes a viewport preset
type PresetInfo struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// handleStatus returns the current dashboard state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Snapshot())
}

// handleStart triggers camera acquisition and detection
func (s *Server) handleStart(c *fiber.Ctx) error {
	s.starterMu.RLock()
	starter := s.starter
	s.starterMu.RUnlock()

	if starter == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "detection not configured",
		})
	}

	viewport, err := s.resolveViewport(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := starter.Start(viewport); err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, detector.ErrSessionActive):
			status = fiber.StatusConflict
		case errors.Is(err, camera.ErrFeatureUnsupported):
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.stateMu.Lock()
	s.state.Viewport = viewport
	s.stateMu.Unlock()
	s.AddLog("info", fmt.Sprintf("detection started at %dx%d", viewport.Width, viewport.Height))

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"viewport": viewport,
	})
}

func (s *Server) resolveViewport(c *fiber.Ctx) (media.Size, error) {
	var req StartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return media.Size{}, fmt.Errorf("invalid body: %w", err)
		}
	}

	if req.Preset != "" {
		size, ok := s.presets[req.Preset]
		if !ok {
			return media.Size{}, fmt.Errorf("unknown preset %q", req.Preset)
		}
		return size, nil
	}
	if req.Width != 0 || req.Height != 0 {
		size := media.Size{Width: req.Width, Height: req.Height}
		if !size.Valid() {
			return media.Size{}, fmt.Errorf("invalid viewport %dx%d", req.Width, req.Height)
		}
		return size, nil
	}
	return s.viewport, nil
}

// handleCues returns the cue catalog
func (s *Server) handleCues(c *fiber.Ctx) error {
	if s.catalog == nil {
		return c.JSON([]effects.Cue{})
	}
	return c.JSON(s.catalog.Cues())
}

// handlePresets returns the viewport presets sorted by name
func (s *Server) handlePresets(c *fiber.Ctx) error {
	out := make([]PresetInfo, 0, len(s.presets))
	for name, size := range s.presets {
		out = append(out, PresetInfo{Name: name, Width: size.Width, Height: size.Height})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return c.JSON(out)
}

// handleGetLogs returns recent log entries
func (s *Server) handleGetLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

// handleStatusWS sends the current state, then every update and cue event
func (s *Server) handleStatusWS(c *websocket.Conn) {
	msg, err := hub.Encode(s.Snapshot())
	if err != nil {
		s.logger.Warn("encode state", "error", err)
		return
	}
	hub.NewClient(s.statusHub, c, msg).Run()
}

// handleLogsWS sends recent logs, then new entries as they arrive
func (s *Server) handleLogsWS(c *websocket.Conn) {
	var initial []hub.Message
	for _, entry := range s.Logs() {
		if msg, err := hub.Encode(entry); err == nil {
			initial = append(initial, msg)
		}
	}
	hub.NewClient(s.logHub, c, initial...).Run()
}

// handleCameraWS streams JPEG preview frames
func (s *Server) handleCameraWS(c *websocket.Conn) {
	hub.NewClient(s.cameraHub, c).Run()
}
