// catcam - points a camera at the world and cheers when it sees a cat
// Serves the dashboard, classifies camera frames and plays cat cues
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/teslashibe/go-catcam/internal/config"
	"github.com/teslashibe/go-catcam/internal/log"
	"github.com/teslashibe/go-catcam/pkg/app"
	"github.com/teslashibe/go-catcam/pkg/audio"
	"github.com/teslashibe/go-catcam/pkg/camera"
	"github.com/teslashibe/go-catcam/pkg/classify"
	"github.com/teslashibe/go-catcam/pkg/detector"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/trace"
	"github.com/teslashibe/go-catcam/pkg/web"
)

// mockDevice selects the built-in test pattern instead of a real camera.
const mockDevice = "mock"

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		log.Error("catcam failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies command line overrides, then
// validates the result once.
func loadConfig(args []string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if err := parseFlags(&cfg, args); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, cfg.Validate()
}

// parseFlags applies command line overrides on top of env configuration.
func parseFlags(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("catcam", flag.ContinueOnError)
	port := fs.String("port", cfg.Port, "HTTP port for the dashboard")
	level := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	device := fs.String("device", cfg.CameraDevice, "Camera device index, file or URL (\"mock\" for a test pattern)")
	classifier := fs.String("classifier", cfg.Classifier, "Classifier backend: dnn, cloudvision, mock")
	model := fs.String("model", cfg.ModelPath, "ONNX model path for the dnn classifier")
	labels := fs.String("labels", cfg.LabelsPath, "Label file for the dnn classifier")
	interval := fs.Duration("interval", cfg.DetectionInterval, "Delay between detection cycles")
	webDir := fs.String("web", cfg.WebDir, "Directory of static dashboard files")
	tracing := fs.String("trace", cfg.TraceExporter, "Trace exporter: none, stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Port, cfg.LogLevel, cfg.CameraDevice = *port, *level, *device
	cfg.Classifier, cfg.ModelPath, cfg.LabelsPath = *classifier, *model, *labels
	cfg.DetectionInterval, cfg.WebDir, cfg.TraceExporter = *interval, *webDir, *tracing
	return nil
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	traceCfg := trace.DefaultConfig()
	traceCfg.Exporter = cfg.TraceExporter
	shutdownTrace, err := trace.Init(ctx, traceCfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTrace(sctx); err != nil {
			logger.Warn("trace shutdown", "error", err)
		}
	}()

	catalog, err := effects.CatalogFromDir(cfg.CueDir, effects.DefaultCueFiles...)
	if err != nil {
		return err
	}

	capture, err := newCapture(cfg)
	if err != nil {
		// Leave capture nil; the dashboard shows the unsupported page.
		logger.Warn("camera unavailable", "error", err)
	}

	viewport := media.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight}

	server := web.NewServer(web.Config{
		Port:     cfg.Port,
		WebDir:   cfg.WebDir,
		Catalog:  catalog,
		Presets:  camera.Presets(),
		Viewport: viewport,
		Logger:   logger,
	})

	players := []effects.CuePlayer{server}
	var player *audio.Player
	if cfg.CuePlayer != "" {
		player = audio.NewPlayer(catalog, audio.CommandRunner(cfg.CuePlayer), logger)
		players = append(players, player)
	}

	deps := app.Deps{
		Surface:   server,
		Capture:   capture,
		Loader:    newLoader(cfg, logger),
		Catalog:   catalog,
		Players:   players,
		Registrar: cueCheck(catalog),
		OnSession: server.SetSession,
		OnCycle: func(c detector.Cycle) {
			switch c.Outcome.State {
			case effects.Cat:
				server.AddLog("cat", fmt.Sprintf("cat spotted: %s", c.Outcome.Label))
			case effects.Badger:
				server.AddLog("badger", "badger!")
			}
		},
		Logger: logger,
	}

	a, err := app.New(app.Config{Viewport: viewport, Interval: cfg.DetectionInterval}, deps)
	if err != nil {
		return err
	}
	server.SetStarter(a)

	if err := a.Init(); err != nil {
		return err
	}
	defer func() {
		a.Shutdown()
		if player != nil {
			player.Close()
		}
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := server.Shutdown(sctx); err != nil {
			logger.Warn("web shutdown", "error", err)
		}
	}()

	server.StartAsync(ctx)
	logger.Info("catcam started",
		"port", cfg.Port,
		"classifier", cfg.Classifier,
		"device", cfg.CameraDevice,
		"interval", cfg.DetectionInterval,
	)

	return a.Run(ctx)
}

func newCapture(cfg config.Config) (camera.Capture, error) {
	if cfg.CameraDevice == mockDevice {
		return camera.NewMockCapture(testPattern), nil
	}
	camCfg := camera.DefaultConfig()
	camCfg.Device = cfg.CameraDevice
	camCfg.RearDevice = cfg.CameraRearDevice
	c, err := camera.NewGoCVCapture(camCfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newLoader(cfg config.Config, logger *slog.Logger) classify.Loader {
	switch cfg.Classifier {
	case config.ClassifierCloudVision:
		cv := classify.DefaultCloudVisionConfig()
		cv.APIKey = cfg.GoogleAPIKey
		cv.Logger = logger
		return classify.NewCloudVisionLoader(cv)
	case config.ClassifierMock:
		return demoMock()
	default:
		dnn := classify.DefaultDNNConfig()
		dnn.ModelPath = cfg.ModelPath
		dnn.LabelsPath = cfg.LabelsPath
		dnn.Logger = logger
		return classify.NewDNNLoader(dnn)
	}
}

// demoMock cycles through a few labels so the dashboard has something to show.
func demoMock() *classify.Mock {
	labels := []classify.Prediction{
		{ClassName: "window screen", Probability: 0.41},
		{ClassName: "tabby cat", Probability: 0.88},
		{ClassName: "badger", Probability: 0.64},
		{ClassName: "sports car", Probability: 0.52},
	}
	var n atomic.Uint64
	m := classify.NewMock()
	m.ClassifyFunc = func(ctx context.Context, frame media.Frame) (classify.Result, error) {
		i := n.Add(1) - 1
		return classify.Result{labels[i%uint64(len(labels))]}, nil
	}
	return m
}

// cueCheck verifies the cue files are present so playback works offline.
func cueCheck(catalog *effects.Catalog) app.Registrar {
	return app.RegistrarFunc(func(ctx context.Context) error {
		var errs []error
		for _, path := range catalog.Paths() {
			if _, err := os.Stat(path); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// testPattern is a 1x1 grey JPEG.
var testPattern = []byte{
	0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x43, 0x00, 0x08, 0x06, 0x06, 0x07, 0x06,
	0x05, 0x08, 0x07, 0x07, 0x07, 0x09, 0x09, 0x08, 0x0A, 0x0C, 0x14, 0x0D,
	0x0C, 0x0B, 0x0B, 0x0C, 0x19, 0x12, 0x13, 0x0F, 0x14, 0x1D, 0x1A, 0x1F,
	0x1E, 0x1D, 0x1A, 0x1C, 0x1C, 0x20, 0x24, 0x2E, 0x27, 0x20, 0x22, 0x2C,
	0x23, 0x1C, 0x1C, 0x28, 0x37, 0x29, 0x2C, 0x30, 0x31, 0x34, 0x34, 0x34,
	0x1F, 0x27, 0x39, 0x3D, 0x38, 0x32, 0x3C, 0x2E, 0x33, 0x34, 0x32, 0xFF,
	0xC0, 0x00, 0x0B, 0x08, 0x00, 0x01, 0x00, 0x01, 0x01, 0x01, 0x11, 0x00,
	0xFF, 0xC4, 0x00, 0x14, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x09,
	0xFF, 0xC4, 0x00, 0x14, 0x10, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xFF, 0xDA, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00, 0x3F, 0x00, 0x2A, 0x9F,
	0xFF, 0xD9,
}
