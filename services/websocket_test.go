package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/kanban/board"
)

// startHub serves websocket connections whose uid comes from the ?uid= query.
func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url, uid string) *websocket.Conn {
	t.Helper()
	before := hub.Connections(uid)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?uid="+uid, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Connections(uid) == before+1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_NotifyReachesAllConnectionsOfUser(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	laptop := dial(t, hub, url, "alice")
	phone := dial(t, hub, url, "alice")

	hub.Notify("alice", board.SeedBoards())

	for _, conn := range []*websocket.Conn{laptop, phone} {
		msg := readMessage(t, conn)
		assert.Equal(t, MessageSync, msg.Type)
		assert.NotNil(t, msg.Data)
	}
}

func TestHub_NotifyIsScopedToUser(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	alice := dial(t, hub, url, "alice")
	bob := dial(t, hub, url, "bob")

	hub.Notify("alice", board.SeedBoards())
	assert.Equal(t, MessageSync, readMessage(t, alice).Type)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err, "bob receives nothing")
}

func TestHub_PingPong(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, "alice")

	require.NoError(t, conn.WriteJSON(WebSocketMessage{Type: MessagePing}))
	assert.Equal(t, MessagePong, readMessage(t, conn).Type)
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, "alice")
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Connections("alice") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_NotifyAfterStopDoesNotBlock(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	for range 100 {
		hub.Notify("alice", nil)
	}
}
