package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var frame received
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHub(t *testing.T) {
	hub := NewHub(4)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	first := dial(t, srv)
	second := dial(t, srv)

	t.Run("sayHi is echoed to the sender", func(t *testing.T) {
		require.NoError(t, first.WriteJSON(Frame{Event: SayHi, Data: "hello"}))
		frame := read(t, first)
		assert.Equal(t, SayHi, frame.Event)
		assert.JSONEq(t, `"hello"`, string(frame.Data))

		require.NoError(t, second.WriteJSON(Frame{Event: SayHi, Data: 1}))
		assert.Equal(t, SayHi, read(t, second).Event)
	})

	t.Run("broadcast reaches every client", func(t *testing.T) {
		require.Equal(t, 2, hub.Clients())
		hub.Broadcast(ProductQuantityChange, map[string]interface{}{"productId": "p1", "quantity": 3})

		for _, conn := range []*websocket.Conn{first, second} {
			frame := read(t, conn)
			assert.Equal(t, ProductQuantityChange, frame.Event)
			assert.JSONEq(t, `{"productId":"p1","quantity":3}`, string(frame.Data))
		}
	})

	t.Run("disconnected clients are removed", func(t *testing.T) {
		require.NoError(t, second.Close())
		assert.Eventually(t, func() bool { return hub.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)
	})
}

func TestClientDropsWhenBufferIsFull(t *testing.T) {
	c := &client{send: make(chan Frame, 1)}
	assert.True(t, c.push(Frame{Event: "a"}))
	assert.False(t, c.push(Frame{Event: "b"}))

	c.close()
	assert.False(t, c.push(Frame{Event: "c"}))
	c.close()
}
