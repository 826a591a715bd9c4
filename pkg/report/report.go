// Package report routes failures to the unsupported entry page.
package report

import (
	"log/slog"
	"sync"

	"github.com/teslashibe/go-catcam/pkg/ui"
)

// EntryShower is the part of the page controller the reporter drives.
type EntryShower interface {
	ShowUnsupportedEntry(message string)
}

// Reporter renders an error message and switches to the unsupported entry.
// Report never panics and may be called any number of times.
type Reporter struct {
	surface ui.Surface
	pages   EntryShower
	logger  *slog.Logger

	mu   sync.Mutex
	last error
	n    int
}

// New creates a Reporter.
func New(surface ui.Surface, pages EntryShower, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		surface: surface,
		pages:   pages,
		logger:  logger.With("component", "report"),
	}
}

// Report shows err on the unsupported entry. A nil err shows the entry with
// no message, which is how a missing capability is presented.
func (r *Reporter) Report(err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("report panicked", "panic", p)
		}
	}()

	msg := Message(err)

	r.mu.Lock()
	r.last = err
	r.n++
	r.mu.Unlock()

	if err != nil {
		r.logger.Error("detection stopped", "error", err)
	} else {
		r.logger.Warn("capability unsupported")
	}

	r.surface.SetErrorMessage(msg)
	r.pages.ShowUnsupportedEntry(msg)
}

// Last returns the most recently reported error.
func (r *Reporter) Last() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Count returns how many times Report was called.
func (r *Reporter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Message is the human-readable form of err, "" for nil.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
