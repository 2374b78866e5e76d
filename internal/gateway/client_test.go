package gateway

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/concierge/internal/config"
	"github.com/soyeahso/concierge/internal/logging"
)

func testLog() *logging.Logger {
	return logging.New(nil, "silent")
}

// queueClient is a client without a socket; frames stay in its queue.
func queueClient(id string, buffer int) *Client {
	return &Client{
		ConnID: id,
		out:    make(chan Frame, buffer),
		done:   make(chan struct{}),
		log:    testLog(),
	}
}

func TestClientSendQueues(t *testing.T) {
	c := queueClient("conn-1", 2)

	require.NoError(t, c.Respond("req-1", map[string]int{"n": 1}))
	require.NoError(t, c.RespondError("req-2", ErrorShape{Code: CodeInvalidParams, Message: "bad"}))
	assert.ErrorIs(t, c.SendEvent(EventHello, Hello{}, 1), ErrSendBuffer)

	f := <-c.out
	assert.Equal(t, "req-1", f.ID)
	assert.True(t, *f.OK)
	f = <-c.out
	assert.Equal(t, "req-2", f.ID)
	assert.Equal(t, CodeInvalidParams, f.Error.Code)
}

func TestClientSendAfterClose(t *testing.T) {
	c := queueClient("conn-1", 1)
	c.Close()
	c.Close() // idempotent

	assert.ErrorIs(t, c.Send(Frame{Type: FrameTypeEvent}), ErrClientClosed)
	select {
	case <-c.done:
	default:
		t.Fatal("done channel not closed")
	}
}

// --- ClientRegistry tests ---

func TestClientRegistryAddGetRemove(t *testing.T) {
	reg := NewClientRegistry(testLog())
	assert.Equal(t, 0, reg.Count())

	reg.Add(queueClient("conn-1", 1))
	reg.Add(queueClient("conn-2", 1))
	assert.Equal(t, 2, reg.Count())

	got, ok := reg.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "conn-1", got.ConnID)

	reg.Remove("conn-1")
	reg.Remove("nonexistent")
	assert.Equal(t, 1, reg.Count())
	_, ok = reg.Get("conn-1")
	assert.False(t, ok)
}

func TestClientRegistryBroadcast(t *testing.T) {
	reg := NewClientRegistry(testLog())
	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = queueClient(fmt.Sprintf("conn-%d", i), 1)
		reg.Add(clients[i])
	}
	clients[2].Close()

	reg.Broadcast(EventActionDeclined, ActionEvent{ConversationID: "c1"}, 5)

	for _, c := range clients[:2] {
		f := <-c.out
		assert.Equal(t, EventActionDeclined, f.Event)
		assert.Equal(t, int64(5), f.Seq)
	}
	assert.Empty(t, clients[2].out)
}

func TestClientRegistryCloseAll(t *testing.T) {
	reg := NewClientRegistry(testLog())
	a, b := queueClient("conn-1", 1), queueClient("conn-2", 1)
	reg.Add(a)
	reg.Add(b)

	reg.CloseAll()
	assert.Equal(t, 0, reg.Count())
	assert.ErrorIs(t, a.Send(Frame{}), ErrClientClosed)
	assert.ErrorIs(t, b.Send(Frame{}), ErrClientClosed)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		bind string
		port int
		want string
	}{
		{"loopback", 18790, "127.0.0.1:18790"},
		{"lan", 9999, "0.0.0.0:9999"},
		{"whatever", 5000, "127.0.0.1:5000"},
		{"", 5000, "127.0.0.1:5000"},
	}
	for _, tt := range tests {
		t.Run(tt.bind, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveBindAddr(config.GatewayConfig{Bind: tt.bind, Port: tt.port}))
		})
	}
}
