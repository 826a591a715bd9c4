// Package audio plays cue clips on the host through an external player.
package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/teslashibe/go-catcam/pkg/effects"
)

// DefaultCommand is the player used when none is configured.
const DefaultCommand = "paplay"

// Runner plays one file and returns when playback ends or ctx is cancelled.
type Runner func(ctx context.Context, path string) error

// CommandRunner runs command with its args followed by the clip path.
// command is split on spaces, so "mpg123 -q" works.
func CommandRunner(command string) Runner {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{DefaultCommand}
	}
	return func(ctx context.Context, path string) error {
		args := append(append([]string(nil), fields[1:]...), path)
		out, err := exec.CommandContext(ctx, fields[0], args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("%s: %w: %s", fields[0], err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

// Player plays cues from a catalog. A new cue interrupts the one playing.
type Player struct {
	catalog *effects.Catalog
	run     Runner
	logger  *slog.Logger

	// Callbacks
	OnPlaybackStart func(index int)
	OnPlaybackEnd   func(index int, err error)

	mu      sync.Mutex
	cancel  context.CancelFunc
	playing int // index, -1 when idle
	gen     uint64
	wg      sync.WaitGroup
}

// NewPlayer creates a player. A nil run uses CommandRunner(DefaultCommand).
func NewPlayer(catalog *effects.Catalog, run Runner, logger *slog.Logger) *Player {
	if run == nil {
		run = CommandRunner(DefaultCommand)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		catalog: catalog,
		run:     run,
		logger:  logger.With("component", "audio"),
		playing: -1,
	}
}

// Play starts cue index in the background and returns immediately.
func (p *Player) Play(index int) {
	cues := p.catalog.Cues()
	if index < 0 || index >= len(cues) {
		p.logger.Warn("cue out of range", "index", index, "cues", len(cues))
		return
	}
	cue := cues[index]

	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = cancel
	p.playing = index
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		if p.OnPlaybackStart != nil {
			p.OnPlaybackStart(index)
		}

		err := p.run(ctx, cue.Path)
		if ctx.Err() != nil {
			// Interrupted by a newer cue or Cancel.
			err = nil
		}
		if err != nil {
			p.logger.Warn("cue playback failed", "cue", cue.Name, "error", err)
		} else {
			p.logger.Debug("cue played", "cue", cue.Name)
		}

		p.mu.Lock()
		if p.gen == gen {
			p.playing = -1
			p.cancel = nil
		}
		p.mu.Unlock()

		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd(index, err)
		}
	}()
}

// Cancel stops the current cue, if any.
func (p *Player) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Playing returns the index of the cue playing, or -1.
func (p *Player) Playing() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// IsPlaying returns whether a cue is playing.
func (p *Player) IsPlaying() bool {
	return p.Playing() >= 0
}

// Close cancels playback and waits for background goroutines.
func (p *Player) Close() error {
	p.Cancel()
	p.wg.Wait()
	return nil
}

var _ effects.CuePlayer = (*Player)(nil)
