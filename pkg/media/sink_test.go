package media

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstraintsFor(t *testing.T) {
	c := ConstraintsFor(Size{Width: 800, Height: 600})

	assert.Equal(t, Range{Ideal: 800, Max: 800}, c.Width)
	assert.Equal(t, Range{Ideal: 600, Max: 600}, c.Height)
	assert.Equal(t, FacingEnvironment, c.FacingMode)
}

func TestVideoSink_NoStream(t *testing.T) {
	sink := NewVideoSink(nil)

	_, err := sink.CurrentFrame(context.Background())
	assert.ErrorIs(t, err, ErrNoStream)
	assert.False(t, sink.Attached())
}

func TestVideoSink_LatestFrame(t *testing.T) {
	sink := NewVideoSink(nil)
	var seen atomic.Int64
	sink.OnFrame(func(Frame) { seen.Add(1) })

	stream := NewStaticStream("test", []byte{0xff, 0xd8}, Size{Width: 4, Height: 3}, time.Millisecond)
	sink.Attach(stream)
	defer sink.Detach()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	f, err := sink.CurrentFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, f.Data)
	assert.Equal(t, 4, f.Width)
	assert.GreaterOrEqual(t, f.Seq, uint64(1))

	assert.Eventually(t, func() bool { return seen.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestVideoSink_StreamFailure(t *testing.T) {
	sink := NewVideoSink(nil)
	boom := errors.New("device unplugged")

	stream := NewStaticStream("test", []byte{1}, Size{Width: 1, Height: 1}, time.Millisecond).FailAfter(1)
	stream.FailErr = boom
	sink.Attach(stream)
	defer sink.Detach()

	assert.Eventually(t, func() bool {
		_, err := sink.CurrentFrame(context.Background())
		return errors.Is(err, boom)
	}, time.Second, time.Millisecond)
}

func TestVideoSink_Dimensions(t *testing.T) {
	sink := NewVideoSink(nil)
	sink.SetDimensions(Size{Width: 1280, Height: 720})
	assert.Equal(t, Size{Width: 1280, Height: 720}, sink.Dimensions())
}

func TestVideoSink_DetachClosesStream(t *testing.T) {
	sink := NewVideoSink(nil)
	stream := NewStaticStream("test", []byte{1}, Size{Width: 1, Height: 1}, time.Millisecond)
	sink.Attach(stream)

	sink.Detach()
	assert.False(t, sink.Attached())

	_, err := stream.ReadFrame(context.Background())
	assert.ErrorIs(t, err, ErrStreamEnded)
}
