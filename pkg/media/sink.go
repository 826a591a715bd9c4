package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrNoStream is returned by CurrentFrame when nothing is attached.
var ErrNoStream = errors.New("media: no stream attached")

// VideoSink holds the attached stream and the most recent frame it produced.
// A pump goroutine overwrites the latest frame; readers never queue.
type VideoSink struct {
	mu      sync.Mutex
	size    Size
	stream  Stream
	latest  Frame
	err     error
	ready   chan struct{} // closed when the first frame or an error lands
	stopped chan struct{}
	cancel  context.CancelFunc

	onFrame []func(Frame)
	logger  *slog.Logger
}

// NewVideoSink creates an empty sink.
func NewVideoSink(logger *slog.Logger) *VideoSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoSink{
		logger: logger.With("component", "media.sink"),
	}
}

// SetDimensions records the display size. Some classifier backends read the
// sink size eagerly, so it is set explicitly rather than taken from frames.
func (s *VideoSink) SetDimensions(size Size) {
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()
}

// Dimensions returns the size set by SetDimensions.
func (s *VideoSink) Dimensions() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// OnFrame registers a callback run from the pump goroutine for every frame.
// Register before Attach.
func (s *VideoSink) OnFrame(fn func(Frame)) {
	s.mu.Lock()
	s.onFrame = append(s.onFrame, fn)
	s.mu.Unlock()
}

// Attach binds a stream to the sink, replacing any previous one.
func (s *VideoSink) Attach(stream Stream) {
	s.Detach()

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.stream = stream
	s.latest = Frame{}
	s.err = nil
	s.ready = make(chan struct{})
	s.stopped = make(chan struct{})
	s.cancel = cancel
	ready, stopped := s.ready, s.stopped
	callbacks := append([]func(Frame){}, s.onFrame...)
	s.mu.Unlock()

	s.logger.Info("stream attached", "device", stream.Label())
	go s.pump(ctx, stream, ready, stopped, callbacks)
}

// Detach stops the pump and closes the attached stream, if any.
func (s *VideoSink) Detach() {
	s.mu.Lock()
	stream, cancel, stopped := s.stream, s.cancel, s.stopped
	s.stream, s.cancel = nil, nil
	s.mu.Unlock()

	if stream == nil {
		return
	}
	cancel()
	stream.Close()
	<-stopped
}

// Attached reports whether a stream is bound.
func (s *VideoSink) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

// CurrentFrame returns the latest frame, waiting for the first one if the
// stream has not produced anything yet. Once the stream fails, its error is
// returned.
func (s *VideoSink) CurrentFrame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()

	if ready == nil {
		return Frame{}, ErrNoStream
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Frame{}, s.err
	}
	return s.latest, nil
}

func (s *VideoSink) pump(ctx context.Context, stream Stream, ready, stopped chan struct{}, callbacks []func(Frame)) {
	defer close(stopped)

	signalled := false
	signal := func() {
		if !signalled {
			signalled = true
			close(ready)
		}
	}

	for {
		frame, err := stream.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("stream inactive", "device", stream.Label(), "error", err)
			}
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			signal()
			return
		}

		s.mu.Lock()
		s.latest = frame
		s.mu.Unlock()
		signal()

		for _, fn := range callbacks {
			fn(frame)
		}
	}
}
