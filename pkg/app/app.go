// Package app wires the catcam components together and owns the detection
// session lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/teslashibe/go-catcam/pkg/camera"
	"github.com/teslashibe/go-catcam/pkg/classify"
	"github.com/teslashibe/go-catcam/pkg/detector"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/page"
	"github.com/teslashibe/go-catcam/pkg/report"
	"github.com/teslashibe/go-catcam/pkg/ui"
)

// shutdownTimeout bounds how long Shutdown waits for the session.
const shutdownTimeout = 5 * time.Second

// Registrar performs offline-cache registration once at startup.
type Registrar interface {
	Register(ctx context.Context) error
}

// RegistrarFunc adapts a function to Registrar.
type RegistrarFunc func(ctx context.Context) error

// Register implements Registrar.
func (f RegistrarFunc) Register(ctx context.Context) error { return f(ctx) }

// Config holds session settings.
type Config struct {
	// Viewport is used when Start is given an invalid size.
	Viewport media.Size

	// Interval is the delay between detection cycles.
	Interval time.Duration
}

// Deps are the collaborators the app drives.
type Deps struct {
	Surface ui.Surface      // required
	Capture camera.Capture  // nil means capture is unsupported
	Loader  classify.Loader // required
	Catalog *effects.Catalog
	Players []effects.CuePlayer

	// Registrar is optional.
	Registrar Registrar

	// OnSession is called with every session snapshot change.
	OnSession func(detector.Snapshot)

	// OnCycle is called after every successful detection cycle.
	OnCycle func(detector.Cycle)

	Rand   *rand.Rand
	Logger *slog.Logger
}

// App is the catcam orchestrator.
type App struct {
	config Config
	deps   Deps
	logger *slog.Logger

	pages      *page.Controller
	reporter   *report.Reporter
	acquirer   *camera.Acquisition
	dispatcher *effects.Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	session  *detector.Session
	starting bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates the app. Nothing is shown until Init.
func New(cfg Config, deps Deps) (*App, error) {
	if deps.Surface == nil {
		return nil, errors.New("app: surface is required")
	}
	if deps.Loader == nil {
		return nil, errors.New("app: classifier loader is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("app: cue catalog is required")
	}
	if !cfg.Viewport.Valid() {
		return nil, fmt.Errorf("app: invalid viewport %dx%d", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = detector.DefaultInterval
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := page.NewController(deps.Surface, page.Intro, page.DefaultPages...)
	if err != nil {
		return nil, err
	}

	opts := []effects.Option{effects.WithLogger(logger)}
	if deps.Rand != nil {
		opts = append(opts, effects.WithRand(deps.Rand))
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		config:     cfg,
		deps:       deps,
		logger:     logger.With("component", "app"),
		pages:      pages,
		reporter:   report.New(deps.Surface, pages, logger),
		acquirer:   camera.NewAcquisition(deps.Capture, deps.Surface.VideoSink(), logger),
		dispatcher: effects.NewDispatcher(deps.Surface, deps.Catalog, deps.Players, opts...),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Init runs the feature check and shows the entry page. Without a capture
// capability the unsupported entry is shown with no message.
func (a *App) Init() error {
	if a.acquirer.Supported() {
		a.pages.ShowSupportedEntry()
		a.logger.Info("capture supported")
	} else {
		a.reporter.Report(nil)
	}

	if a.deps.Registrar != nil {
		a.mu.Lock()
		a.goLocked(func() {
			if err := a.deps.Registrar.Register(a.ctx); err != nil {
				a.logger.Warn("offline registration failed", "error", err)
				return
			}
			a.logger.Info("offline registration complete")
		})
		a.mu.Unlock()
	}
	return nil
}

// goLocked runs fn on a tracked goroutine unless Shutdown has begun. a.mu
// must be held, so no Add can race with the Wait in Shutdown.
func (a *App) goLocked(fn func()) bool {
	if a.closed {
		return false
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
	return true
}

// Start is the detection trigger: show the detector page, acquire the
// camera, then load the model and run the loop in the background.
// Acquisition failures are reported and returned.
func (a *App) Start(viewport media.Size) error {
	if !viewport.Valid() {
		viewport = a.config.Viewport
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return context.Canceled
	}
	if a.starting || (a.session != nil && a.session.State() != detector.Stopped) {
		a.mu.Unlock()
		return detector.ErrSessionActive
	}
	a.starting = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.starting = false
		a.mu.Unlock()
	}()

	a.pages.MustShowPage(page.Detector)

	if _, err := a.acquirer.Acquire(a.ctx, viewport); err != nil {
		if errors.Is(err, camera.ErrFeatureUnsupported) {
			a.reporter.Report(nil)
		} else {
			a.reporter.Report(err)
		}
		return err
	}

	opts := []detector.Option{
		detector.WithInterval(a.config.Interval),
		detector.WithLogger(a.logger),
	}
	if a.deps.OnSession != nil {
		opts = append(opts, detector.OnStateChange(a.deps.OnSession))
	}

	var session *detector.Session
	opts = append(opts, detector.OnCycle(func(c detector.Cycle) {
		if a.deps.OnCycle != nil {
			a.deps.OnCycle(c)
		}
		if a.deps.OnSession != nil {
			a.deps.OnSession(session.Snapshot())
		}
	}))

	session = detector.NewSession(a.deps.Loader, a.deps.Surface.VideoSink(), a.dispatcher, a.reporter, opts...)

	a.mu.Lock()
	started := a.goLocked(func() { _ = session.Run(a.ctx) })
	if started {
		a.session = session
	}
	a.mu.Unlock()

	if !started {
		a.deps.Surface.VideoSink().Detach()
		return context.Canceled
	}

	a.logger.Info("detection started", "session", session.ID().String(),
		"width", viewport.Width, "height", viewport.Height)
	return nil
}

// Run blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("catcam ready")
	<-ctx.Done()
	return nil
}

// Shutdown cancels the session and releases the camera.
func (a *App) Shutdown() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.cancel()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		a.logger.Warn("shutdown timed out waiting for session")
	}

	a.deps.Surface.VideoSink().Detach()
	a.logger.Info("shutdown complete")
}

// Session returns the current or most recent session, nil before Start.
func (a *App) Session() *detector.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Pages returns the page controller.
func (a *App) Pages() *page.Controller {
	return a.pages
}

// Reporter returns the error reporter.
func (a *App) Reporter() *report.Reporter {
	return a.reporter
}

// Dispatcher returns the effect dispatcher.
func (a *App) Dispatcher() *effects.Dispatcher {
	return a.dispatcher
}
