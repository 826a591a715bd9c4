package media

import (
	"context"
	"sync"
	"time"
)

// StaticStream replays a fixed frame at a steady rate. It backs the mock
// capture used in tests and in the service's "mock" classifier mode.
type StaticStream struct {
	frame    Frame
	interval time.Duration
	label    string

	mu     sync.Mutex
	seq    uint64
	failAt uint64 // return FailErr once seq reaches failAt (0 = never)
	closed chan struct{}
	once   sync.Once

	// FailErr is returned once the stream has produced failAt frames.
	FailErr error
}

// NewStaticStream creates a stream emitting data every interval.
func NewStaticStream(label string, data []byte, size Size, interval time.Duration) *StaticStream {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &StaticStream{
		frame:    Frame{Data: data, Width: size.Width, Height: size.Height},
		interval: interval,
		label:    label,
		closed:   make(chan struct{}),
		FailErr:  ErrStreamEnded,
	}
}

// FailAfter makes the stream end after n frames.
func (s *StaticStream) FailAfter(n uint64) *StaticStream {
	s.mu.Lock()
	s.failAt = n
	s.mu.Unlock()
	return s
}

// ReadFrame implements Stream.
func (s *StaticStream) ReadFrame(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	seq := s.seq
	failAt := s.failAt
	s.mu.Unlock()

	if seq > 0 {
		timer := time.NewTimer(s.interval)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.closed:
			return Frame{}, ErrStreamEnded
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}

	if failAt > 0 && seq >= failAt {
		return Frame{}, s.FailErr
	}

	select {
	case <-s.closed:
		return Frame{}, ErrStreamEnded
	default:
	}

	s.mu.Lock()
	s.seq++
	f := s.frame
	f.Seq = s.seq
	s.mu.Unlock()
	f.CapturedAt = time.Now()
	return f, nil
}

// Label implements Stream.
func (s *StaticStream) Label() string {
	return s.label
}

// Close implements Stream.
func (s *StaticStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// Frames returns how many frames have been produced.
func (s *StaticStream) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

var _ Stream = (*StaticStream)(nil)
