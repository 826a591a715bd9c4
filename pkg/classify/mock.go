package classify

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-catcam/pkg/media"
)

// Mock implements Loader and Model for testing.
type Mock struct {
	// LoadFunc is called when Load is invoked. Nil loads successfully.
	LoadFunc func(ctx context.Context) error

	// ClassifyFunc is called when Classify is invoked.
	ClassifyFunc func(ctx context.Context, frame media.Frame) (Result, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock that always sees nothing interesting.
func NewMock() *Mock {
	return &Mock{
		ClassifyFunc: func(ctx context.Context, frame media.Frame) (Result, error) {
			return Result{{ClassName: "window screen", Probability: 0.42}}, nil
		},
	}
}

// NewScriptedMock returns results in order, repeating the last one.
// An entry with a non-nil error makes that call fail.
func NewScriptedMock(steps ...MockStep) *Mock {
	m := &Mock{}
	var mu sync.Mutex
	i := 0
	m.ClassifyFunc = func(ctx context.Context, frame media.Frame) (Result, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(steps) == 0 {
			return nil, ErrNoLabels
		}
		step := steps[i]
		if i < len(steps)-1 {
			i++
		}
		return step.Result, step.Err
	}
	return m
}

// MockStep is one scripted Classify response.
type MockStep struct {
	Result Result
	Err    error
}

// Name implements Loader.
func (m *Mock) Name() string { return "mock" }

// Load calls LoadFunc and records the call.
func (m *Mock) Load(ctx context.Context) (Model, error) {
	m.record("Load")
	if m.LoadFunc != nil {
		if err := m.LoadFunc(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Classify calls ClassifyFunc and records the call.
func (m *Mock) Classify(ctx context.Context, frame media.Frame) (Result, error) {
	m.record("Classify")
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, frame)
	}
	return nil, WrapError("mock", ErrNoLabels)
}

// Close implements Model.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// WithError returns a mock whose Load always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		LoadFunc: func(ctx context.Context) error { return err },
	}
}

// Verify Mock implements Loader and Model at compile time.
var (
	_ Loader = (*Mock)(nil)
	_ Model  = (*Mock)(nil)
)
