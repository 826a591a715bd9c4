package camera

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// MockCapture is a Capture for tests and for running without a camera.
type MockCapture struct {
	mu    sync.Mutex
	calls []media.Constraints

	// Unsupported makes Supported return false.
	Unsupported bool

	// Err is returned from RequestVideo when set.
	Err error

	// Frame is the JPEG payload the returned stream repeats.
	Frame []byte

	// Interval between frames. Defaults to 10ms.
	Interval time.Duration

	// Label names the mock device.
	Label string

	last *media.StaticStream
}

// NewMockCapture creates a supported mock that streams frame.
func NewMockCapture(frame []byte) *MockCapture {
	return &MockCapture{Frame: frame, Label: "mock camera"}
}

// Supported implements Capture.
func (m *MockCapture) Supported() bool {
	return !m.Unsupported
}

// RequestVideo implements Capture.
func (m *MockCapture) RequestVideo(ctx context.Context, c media.Constraints) (media.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)

	if m.Err != nil {
		return nil, m.Err
	}
	size := media.Size{Width: c.Width.Ideal, Height: c.Height.Ideal}
	m.last = media.NewStaticStream(m.Label, m.Frame, size, m.Interval)
	return m.last, nil
}

// Calls returns the constraints of each RequestVideo call.
func (m *MockCapture) Calls() []media.Constraints {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]media.Constraints(nil), m.calls...)
}

// CallCount returns how many times RequestVideo was called.
func (m *MockCapture) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastStream returns the most recently opened stream.
func (m *MockCapture) LastStream() *media.StaticStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

var _ Capture = (*MockCapture)(nil)
