// Package effects maps a classification's top label to UI effects.
//
//	label contains "cat"  -> cat on, badger off, play a random cue
//	label == "badger"     -> badger on, cat off
//	anything else         -> both off
//
// Confidence is not thresholded.
package effects

import (
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/teslashibe/go-catcam/pkg/classify"
	"github.com/teslashibe/go-catcam/pkg/ui"
)

// State is the detection outcome of one cycle.
type State int

const (
	Idle State = iota
	Cat
	Badger
	None
)

func (s State) String() string {
	switch s {
	case Cat:
		return "cat"
	case Badger:
		return "badger"
	case None:
		return "none"
	default:
		return "idle"
	}
}

// Decide applies the decision table to a label.
func Decide(label string) State {
	switch {
	case strings.Contains(label, "cat"):
		return Cat
	case label == "badger":
		return Badger
	default:
		return None
	}
}

// CuePlayer plays a catalog cue by index. Play must not block on playback.
type CuePlayer interface {
	Play(index int)
}

// CuePlayerFunc adapts a function to CuePlayer.
type CuePlayerFunc func(index int)

// Play implements CuePlayer.
func (f CuePlayerFunc) Play(index int) { f(index) }

// Outcome is what Dispatch did.
type Outcome struct {
	State State
	Label string
	Cue   int // -1 when no cue was played
}

// Dispatcher turns a classification result into surface flags and cues.
type Dispatcher struct {
	surface ui.Surface
	catalog *Catalog
	players []CuePlayer
	logger  *slog.Logger

	mu      sync.Mutex
	rng     *rand.Rand
	effects ui.Effects
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRand sets the random source used for cue selection.
func WithRand(rng *rand.Rand) Option {
	return func(d *Dispatcher) { d.rng = rng }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher. Every player is told about each cue.
func NewDispatcher(surface ui.Surface, catalog *Catalog, players []CuePlayer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		surface: surface,
		catalog: catalog,
		players: players,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "effects")
	return d
}

// SetDetecting toggles the detecting flag, leaving cat and badger as they are.
func (d *Dispatcher) SetDetecting(on bool) {
	d.mu.Lock()
	d.effects.Detecting = on
	e := d.effects
	d.mu.Unlock()
	d.surface.SetEffects(e)
}

// Dispatch applies the decision table to the top entry of result.
// result must not be empty.
func (d *Dispatcher) Dispatch(result classify.Result) Outcome {
	top := result.Top()
	state := Decide(top.ClassName)
	out := Outcome{State: state, Label: top.ClassName, Cue: -1}

	d.mu.Lock()
	switch state {
	case Cat:
		d.effects.Cat, d.effects.Badger = true, false
		out.Cue = d.catalog.Pick(d.rng)
	case Badger:
		d.effects.Cat, d.effects.Badger = false, true
	default:
		d.effects.Cat, d.effects.Badger = false, false
	}
	e := d.effects
	d.mu.Unlock()

	d.surface.SetEffects(e)

	if out.Cue >= 0 {
		d.logger.Info("cat detected", "label", top.ClassName, "probability", top.Probability, "cue", out.Cue)
		for _, p := range d.players {
			p.Play(out.Cue)
		}
	} else {
		d.logger.Debug("dispatch", "state", state, "label", top.ClassName, "probability", top.Probability)
	}

	return out
}

// Effects returns the flags last pushed to the surface.
func (d *Dispatcher) Effects() ui.Effects {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effects
}

// Catalog returns the cue catalog.
func (d *Dispatcher) Catalog() *Catalog {
	return d.catalog
}
