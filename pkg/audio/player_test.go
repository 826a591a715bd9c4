package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-catcam/pkg/effects"
)

func testCatalog(t *testing.T) *effects.Catalog {
	t.Helper()
	c, err := effects.CatalogFromDir("/cues", effects.DefaultCueFiles...)
	require.NoError(t, err)
	return c
}

type fakeRunner struct {
	mu    sync.Mutex
	paths []string
	block chan struct{}
	err   error
}

func (f *fakeRunner) run(ctx context.Context, path string) error {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeRunner) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func TestPlayer_PlaysCuePath(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPlayer(testCatalog(t), runner.run, nil)

	ended := make(chan int, 1)
	p.OnPlaybackEnd = func(index int, err error) {
		assert.NoError(t, err)
		ended <- index
	}

	p.Play(2)

	select {
	case idx := <-ended:
		assert.Equal(t, 2, idx)
	case <-time.After(time.Second):
		t.Fatal("playback did not end")
	}
	assert.Equal(t, []string{"/cues/katje.mp3"}, runner.Paths())
	require.NoError(t, p.Close())
	assert.False(t, p.IsPlaying())
}

func TestPlayer_OutOfRange(t *testing.T) {
	runner := &fakeRunner{}
	p := NewPlayer(testCatalog(t), runner.run, nil)

	p.Play(-1)
	p.Play(5)
	require.NoError(t, p.Close())
	assert.Empty(t, runner.Paths())
}

func TestPlayer_NewCueInterrupts(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	p := NewPlayer(testCatalog(t), runner.run, nil)

	var mu sync.Mutex
	var ends []error
	p.OnPlaybackEnd = func(index int, err error) {
		mu.Lock()
		ends = append(ends, err)
		mu.Unlock()
	}

	p.Play(0)
	assert.Eventually(t, func() bool { return len(runner.Paths()) == 1 }, time.Second, time.Millisecond)

	p.Play(1)
	assert.Eventually(t, func() bool { return len(runner.Paths()) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, 1, p.Playing())

	close(runner.block)
	require.NoError(t, p.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, ends, 2)
	for _, err := range ends {
		assert.NoError(t, err)
	}
}

func TestPlayer_FailureReported(t *testing.T) {
	boom := errors.New("no sink")
	runner := &fakeRunner{err: boom}
	p := NewPlayer(testCatalog(t), runner.run, nil)

	got := make(chan error, 1)
	p.OnPlaybackEnd = func(index int, err error) { got <- err }
	p.Play(0)

	select {
	case err := <-got:
		assert.ErrorIs(t, err, boom)
	case <-time.After(time.Second):
		t.Fatal("playback did not end")
	}
	require.NoError(t, p.Close())
}

func TestCommandRunner_MissingBinary(t *testing.T) {
	run := CommandRunner("catcam-no-such-player -q")
	err := run(context.Background(), "/cues/cat.mp3")
	assert.ErrorContains(t, err, "catcam-no-such-player")
}
