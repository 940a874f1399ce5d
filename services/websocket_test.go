package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop().Sugar())
	go hub.Run()
	return hub
}

// dialTestClient connects a real websocket subscriber through an
// httptest server, the way the task handler wires one up.
func dialTestClient(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 256)}
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func TestHub_FanOutPreservesOrder(t *testing.T) {
	hub := startHub(t)
	first := dialTestClient(t, hub)
	second := dialTestClient(t, hub)

	hub.BroadcastEvent("taskCreated", map[string]string{"id": "a"})
	hub.BroadcastEvent("taskUpdated", map[string]string{"id": "a"})
	hub.BroadcastEvent("taskDeleted", map[string]string{"id": "a"})

	for _, conn := range []*websocket.Conn{first, second} {
		assert.Equal(t, "taskCreated", readEvent(t, conn).Type)
		assert.Equal(t, "taskUpdated", readEvent(t, conn).Type)
		assert.Equal(t, "taskDeleted", readEvent(t, conn).Type)
	}
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	hub := startHub(t)

	// A subscriber with a tiny buffer that never drains.
	slow := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.Register(slow)
	healthy := dialTestClient(t, hub)

	hub.BroadcastEvent("taskCreated", map[string]string{"id": "a"})
	hub.BroadcastEvent("taskCreated", map[string]string{"id": "b"})

	// The overflowing broadcast closes the slow client's channel
	// instead of blocking the publisher or the other subscribers.
	assert.Equal(t, "taskCreated", readEvent(t, healthy).Type)
	assert.Equal(t, "taskCreated", readEvent(t, healthy).Type)

	<-slow.Send // the one buffered message
	select {
	case _, open := <-slow.Send:
		assert.False(t, open, "slow client channel should be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("slow client was never dropped")
	}

	// Later events still reach the healthy subscriber.
	hub.BroadcastEvent("taskDeleted", map[string]string{"id": "a"})
	assert.Equal(t, "taskDeleted", readEvent(t, healthy).Type)
}
