// Package detector runs the classification loop for one detection session.
//
// A session loads the model once, then classifies the sink's current frame
// on a fixed delay measured from the end of each cycle. The first failure
// stops the session for good and is handed to the reporter; there is no
// retry and no restart.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teslashibe/go-catcam/pkg/classify"
	"github.com/teslashibe/go-catcam/pkg/effects"
	"github.com/teslashibe/go-catcam/pkg/media"
	"github.com/teslashibe/go-catcam/pkg/scheduler"
	"github.com/teslashibe/go-catcam/pkg/trace"
)

// DefaultInterval is the delay between the end of one cycle and the start
// of the next.
const DefaultInterval = time.Second

// State is the session lifecycle state.
type State int

const (
	NotStarted State = iota
	Loading
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{NotStarted, Loading, Running, Stopped} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("detector: unknown state %q", text)
}

// FrameSource yields the frame to classify.
type FrameSource interface {
	CurrentFrame(ctx context.Context) (media.Frame, error)
}

// Dispatcher applies a classification result to the UI.
type Dispatcher interface {
	Dispatch(result classify.Result) effects.Outcome
	SetDetecting(on bool)
}

// Reporter receives the error that stopped a session.
type Reporter interface {
	Report(err error)
}

// Stats summarizes the cycles run so far.
type Stats struct {
	Cycles          uint64        `json:"cycles"`
	CatDetections   uint64        `json:"cat_detections"`
	LastLabel       string        `json:"last_label,omitempty"`
	LastProbability float64       `json:"last_probability,omitempty"`
	LastLatency     time.Duration `json:"last_latency_ns,omitempty"`
	StartedAt       time.Time     `json:"started_at,omitempty"`
	LastCycleAt     time.Time     `json:"last_cycle_at,omitempty"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID      string `json:"id"`
	Backend string `json:"backend"`
	State   State  `json:"state"`
	Error   string `json:"error,omitempty"`
	Stats   Stats  `json:"stats"`
}

// Cycle describes one completed detection cycle.
type Cycle struct {
	Seq     uint64
	Outcome effects.Outcome
	Latency time.Duration
}

// Option configures a Session.
type Option func(*Session)

// WithInterval sets the delay between cycles.
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// OnStateChange registers a callback run after every state transition.
func OnStateChange(fn func(Snapshot)) Option {
	return func(s *Session) { s.onState = append(s.onState, fn) }
}

// OnCycle registers a callback run after every successful cycle.
func OnCycle(fn func(Cycle)) Option {
	return func(s *Session) { s.onCycle = append(s.onCycle, fn) }
}

// Session is one run of the classification loop. It owns the model handle.
type Session struct {
	id         uuid.UUID
	loader     classify.Loader
	frames     FrameSource
	dispatcher Dispatcher
	reporter   Reporter
	interval   time.Duration
	logger     *slog.Logger
	onState    []func(Snapshot)
	onCycle    []func(Cycle)

	mu     sync.Mutex
	state  State
	err    error
	model  classify.Model
	stats  Stats
	cancel context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
}

// NewSession creates a session in NotStarted.
func NewSession(loader classify.Loader, frames FrameSource, dispatcher Dispatcher, reporter Reporter, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New(),
		loader:     loader,
		frames:     frames,
		dispatcher: dispatcher,
		reporter:   reporter,
		interval:   DefaultInterval,
		logger:     slog.Default(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "detector", "session", s.id.String())
	return s
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Run loads the model and runs cycles until the first failure or until ctx
// is cancelled. It blocks and returns the error that stopped the session.
// Failures are reported; cancellation is not.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != NotStarted {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Loading
	s.mu.Unlock()
	defer cancel()

	s.transition(Loading, nil)

	model, err := s.load(ctx)
	if err != nil {
		return s.stop(err)
	}

	s.mu.Lock()
	s.model = model
	s.stats.StartedAt = time.Now()
	s.mu.Unlock()

	s.dispatcher.SetDetecting(true)
	s.transition(Running, nil)
	s.logger.Info("detection running", "backend", s.loader.Name(), "interval", s.interval)

	handle := scheduler.Start(ctx, s.interval, s.cycle)
	err = handle.Wait()

	if cerr := model.Close(); cerr != nil {
		s.logger.Warn("close model", "error", cerr)
	}
	s.dispatcher.SetDetecting(false)

	return s.stop(err)
}

// Start runs the session in a new goroutine.
func (s *Session) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Cancel stops the session without reporting. A session that never started
// goes straight to Stopped.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	notStarted := s.state == NotStarted
	if notStarted {
		s.state = Stopped
		s.err = context.Canceled
	}
	s.mu.Unlock()

	if notStarted {
		s.doneOnce.Do(func() { close(s.done) })
		return
	}
	if cancel != nil {
		cancel()
	}
}

// Done is closed once the session is Stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session stops and returns its error.
func (s *Session) Wait() error {
	<-s.done
	return s.Err()
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that stopped the session, nil while active.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Active reports whether the session is loading or running.
func (s *Session) Active() bool {
	st := s.State()
	return st == Loading || st == Running
}

// Snapshot returns the session's current view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:      s.id.String(),
		Backend: s.loader.Name(),
		State:   s.state,
		Stats:   s.stats,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

func (s *Session) load(ctx context.Context) (model classify.Model, err error) {
	ctx, span := trace.Start(ctx, "detector.load",
		attribute.String("session.id", s.id.String()),
		attribute.String("classifier.backend", s.loader.Name()),
	)
	defer func() { trace.End(span, err) }()

	start := time.Now()
	model, err = s.loader.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ModelLoadError{Backend: s.loader.Name(), Err: err}
	}
	s.logger.Info("model loaded", "backend", s.loader.Name(), "duration", time.Since(start))
	return model, nil
}

// cycle is one unit of scheduled work: frame, classify, dispatch.
func (s *Session) cycle(ctx context.Context) (err error) {
	s.mu.Lock()
	seq := s.stats.Cycles + 1
	model := s.model
	s.mu.Unlock()

	ctx, span := trace.Start(ctx, "detector.cycle",
		attribute.String("session.id", s.id.String()),
		attribute.Int64("cycle", int64(seq)),
	)
	defer func() { trace.End(span, err) }()

	fail := func(cause error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &ClassificationError{Cycle: seq, Err: cause}
	}

	start := time.Now()

	frame, err := s.frames.CurrentFrame(ctx)
	if err != nil {
		return fail(err)
	}

	result, err := model.Classify(ctx, frame)
	if err != nil {
		return fail(err)
	}
	if result.Empty() {
		return fail(ErrEmptyResult)
	}

	out := s.dispatcher.Dispatch(result)
	latency := time.Since(start)
	top := result.Top()

	span.SetAttributes(
		attribute.String("label", top.ClassName),
		attribute.Float64("probability", top.Probability),
		attribute.String("state", out.State.String()),
	)

	s.mu.Lock()
	s.stats.Cycles = seq
	s.stats.LastLabel = top.ClassName
	s.stats.LastProbability = top.Probability
	s.stats.LastLatency = latency
	s.stats.LastCycleAt = time.Now()
	if out.State == effects.Cat {
		s.stats.CatDetections++
	}
	hooks := s.onCycle
	s.mu.Unlock()

	s.logger.Debug("cycle", "seq", seq, "label", top.ClassName, "probability", top.Probability, "latency", latency)

	c := Cycle{Seq: seq, Outcome: out, Latency: latency}
	for _, fn := range hooks {
		fn(c)
	}
	return nil
}

// stop moves to Stopped. Real failures go to the reporter first: once the
// state reads Stopped a new session may start, and its detector page must
// not be replaced by this session's error.
func (s *Session) stop(err error) error {
	cancelled := scheduler.Cancelled(err) && !isSessionError(err)
	if cancelled {
		err = context.Canceled
		s.logger.Info("detection cancelled")
	} else {
		s.logger.Error("detection stopped", "error", err)
		s.reporter.Report(err)
	}

	s.transition(Stopped, err)

	s.doneOnce.Do(func() { close(s.done) })
	return err
}

func (s *Session) transition(state State, err error) {
	s.mu.Lock()
	s.state = state
	s.err = err
	snap := s.snapshotLocked()
	hooks := s.onState
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
}

// isSessionError reports whether err is one of the typed failures, which are
// reported even when they wrap a context error from the backend.
func isSessionError(err error) bool {
	var mle *ModelLoadError
	var ce *ClassificationError
	return errors.As(err, &mle) || errors.As(err, &ce)
}
