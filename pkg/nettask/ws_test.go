package nettask

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func newEchoWSServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"rtsp.onvif.org"}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestWebSocketTaskSendReceive(t *testing.T) {
	server := newEchoWSServer(t)
	addr := strings.TrimPrefix(server.URL, "http://")

	task := NewWebSocketTask(0)
	conn, err := task.Connect(context.Background(), addr)
	require.NoError(t, err)
	require.NotEmpty(t, conn.ID())

	require.NoError(t, task.Send(conn, []byte("hello")))

	select {
	case ev := <-task.Events():
		require.Equal(t, conn.ID(), ev.Conn.ID())
		require.Equal(t, "hello", string(ev.Data))
		require.NoError(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("never received the echoed message")
	}
}

func TestWebSocketTaskDisconnectEvent(t *testing.T) {
	server := newEchoWSServer(t)
	addr := strings.TrimPrefix(server.URL, "http://")

	task := NewWebSocketTask(0)
	conn, err := task.Connect(context.Background(), addr)
	require.NoError(t, err)

	server.Close()

	select {
	case ev := <-task.Events():
		require.Equal(t, conn.ID(), ev.Conn.ID())
		require.Error(t, ev.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("never received the disconnect event")
	}
}

func TestWebSocketTaskConnectError(t *testing.T) {
	task := NewWebSocketTask(0)
	_, err := task.Connect(context.Background(), "127.0.0.1:1")
	require.Error(t, err)
}
