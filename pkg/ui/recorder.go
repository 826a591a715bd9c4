package ui

import (
	"sync"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// Recorder is an in-memory Surface that keeps the latest state and a log of
// every call. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	pages    map[string]bool
	banner   Banner
	errorMsg string
	effects  Effects
	calls    []string
	sink     *media.VideoSink

	effectHistory []Effects
}

// NewRecorder creates a Recorder with its own video sink.
func NewRecorder() *Recorder {
	return &Recorder{
		pages: make(map[string]bool),
		sink:  media.NewVideoSink(nil),
	}
}

// SetPageVisible implements Surface.
func (r *Recorder) SetPageVisible(name string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[name] = visible
	r.calls = append(r.calls, "SetPageVisible")
}

// SetBanner implements Surface.
func (r *Recorder) SetBanner(b Banner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banner = b
	r.calls = append(r.calls, "SetBanner")
}

// SetErrorMessage implements Surface.
func (r *Recorder) SetErrorMessage(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorMsg = msg
	r.calls = append(r.calls, "SetErrorMessage")
}

// SetEffects implements Surface.
func (r *Recorder) SetEffects(e Effects) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = e
	r.effectHistory = append(r.effectHistory, e)
	r.calls = append(r.calls, "SetEffects")
}

// VideoSink implements Surface.
func (r *Recorder) VideoSink() *media.VideoSink {
	return r.sink
}

// Visible returns the names of pages currently visible.
func (r *Recorder) Visible() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name, v := range r.pages {
		if v {
			names = append(names, name)
		}
	}
	return names
}

// PageVisible reports the last visibility set for name.
func (r *Recorder) PageVisible(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pages[name]
}

// Banner returns the last banner.
func (r *Recorder) Banner() Banner {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.banner
}

// ErrorMessage returns the last error message.
func (r *Recorder) ErrorMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorMsg
}

// Effects returns the last effect flags.
func (r *Recorder) Effects() Effects {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effects
}

// EffectHistory returns every SetEffects value in order.
func (r *Recorder) EffectHistory() []Effects {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Effects, len(r.effectHistory))
	copy(out, r.effectHistory)
	return out
}

// CallCount returns how many times method was called.
func (r *Recorder) CallCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == method {
			n++
		}
	}
	return n
}

var _ Surface = (*Recorder)(nil)
