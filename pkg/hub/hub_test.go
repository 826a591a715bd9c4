package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type int
	Data []byte
}

type fakeConn struct {
	mu      sync.Mutex
	written []frame
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) SetReadLimit(int64)                   {}
func (c *fakeConn) SetReadDeadline(time.Time) error      { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error     { return nil }
func (c *fakeConn) SetPongHandler(func(string) error)    {}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("closed")
}

func (c *fakeConn) WriteMessage(t int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, frame{Type: t, Data: append([]byte(nil), data...)})
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Written() []frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame(nil), c.written...)
}

func TestHub_BroadcastFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	ca := NewClient(h, a, NewJSONMessage([]byte(`{"hello":true}`)))
	cb := NewClient(h, b)
	go ca.Run()
	go cb.Run()

	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)
	assert.True(t, h.IsRunning())

	require.NoError(t, h.BroadcastJSON(map[string]int{"index": 3}))
	h.BroadcastBinary([]byte{0xFF, 0xD8})

	require.Eventually(t, func() bool { return len(a.Written()) == 3 && len(b.Written()) == 2 }, time.Second, time.Millisecond)

	wa := a.Written()
	assert.Equal(t, `{"hello":true}`, string(wa[0].Data))
	assert.Equal(t, websocket.TextMessage, wa[1].Type)
	assert.JSONEq(t, `{"index":3}`, string(wa[1].Data))
	assert.Equal(t, websocket.BinaryMessage, wa[2].Type)

	a.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", nil)
	assert.False(t, h.IsRunning())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	conn := newFakeConn()
	c := NewClient(h, conn)
	go c.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, 0, h.ClientCount())

	// writePump sends a close frame when its channel closes.
	require.Eventually(t, func() bool {
		for _, f := range conn.Written() {
			if f.Type == websocket.CloseMessage {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestClient_OfferSkipsFramesDropsEvents(t *testing.T) {
	c := &Client{send: make(chan Message, 1)}

	assert.True(t, c.offer(NewBinaryMessage([]byte{1})))
	assert.True(t, c.offer(NewBinaryMessage([]byte{2})), "full buffer skips a frame")
	assert.Equal(t, uint64(1), c.Skipped())

	assert.False(t, c.offer(NewJSONMessage([]byte(`{}`))), "full buffer drops on events")

	<-c.send
	assert.True(t, c.offer(NewJSONMessage([]byte(`{}`))))
}

func TestEncode(t *testing.T) {
	msg, err := Encode(map[string]string{"type": "cue"})
	require.NoError(t, err)
	assert.Equal(t, Text, msg.Kind)
	assert.JSONEq(t, `{"type":"cue"}`, string(msg.Data))

	_, err = Encode(make(chan int))
	assert.Error(t, err)
}

func TestNewClient_AfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", nil)
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	cancel()
	<-done

	conn := newFakeConn()
	finished := make(chan struct{})
	go func() {
		NewClient(h, conn, NewJSONMessage([]byte(`{}`))).Run()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("client blocked on a stopped hub")
	}
	assert.Equal(t, 0, h.ClientCount())

	written := conn.Written()
	require.NotEmpty(t, written)
	assert.Equal(t, websocket.CloseMessage, written[len(written)-1].Type)
}
