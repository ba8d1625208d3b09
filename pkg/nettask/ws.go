package nettask

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WebSocketTask is the WebSocket-tunnel Task backend: every outgoing Send
// becomes one binary WebSocket message, and every inbound binary message
// is delivered as one Event. Used to reach RTSP servers that only accept
// signaling tunneled through an HTTP(S) front door.
type WebSocketTask struct {
	Dialer *websocket.Dialer

	// Subprotocol is negotiated with the server; defaults to
	// "rtsp.onvif.org" the way this tunnel is conventionally offered.
	Subprotocol string

	events chan Event

	mu     sync.Mutex
	conns  map[string]*wsConn
	closed bool
}

type wsConn struct {
	id         string
	remoteAddr string
	wc         *websocket.Conn

	writeMu sync.Mutex
	readBuf []byte
}

func (c *wsConn) ID() string         { return c.id }
func (c *wsConn) RemoteAddr() string { return c.remoteAddr }

func NewWebSocketTask(eventBuf int) *WebSocketTask {
	if eventBuf <= 0 {
		eventBuf = 64
	}
	return &WebSocketTask{
		events: make(chan Event, eventBuf),
		conns:  make(map[string]*wsConn),
	}
}

func (t *WebSocketTask) dialer() *websocket.Dialer {
	if t.Dialer != nil {
		return t.Dialer
	}
	return websocket.DefaultDialer
}

func (t *WebSocketTask) subprotocol() string {
	if t.Subprotocol != "" {
		return t.Subprotocol
	}
	return "rtsp.onvif.org"
}

// Connect dials a WebSocket tunnel at ws://addr/ (or wss:// if the
// configured Dialer carries a TLSClientConfig).
func (t *WebSocketTask) Connect(ctx context.Context, addr string) (Conn, error) {
	d := *t.dialer()
	d.Subprotocols = []string{t.subprotocol()}

	scheme := "ws"
	if d.TLSClientConfig != nil {
		scheme = "wss"
	}

	wc, _, err := d.DialContext(ctx, fmt.Sprintf("%s://%s/", scheme, addr), nil)
	if err != nil {
		return nil, err
	}

	c := &wsConn{id: uuid.NewString(), remoteAddr: addr, wc: wc}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		wc.Close()
		return nil, net.ErrClosed
	}
	t.conns[c.id] = c
	t.mu.Unlock()

	go t.readLoop(c)

	return c, nil
}

func (t *WebSocketTask) readLoop(c *wsConn) {
	for {
		msgType, data, err := c.wc.ReadMessage()
		if err != nil {
			t.mu.Lock()
			delete(t.conns, c.id)
			t.mu.Unlock()
			t.emit(Event{Conn: c, Err: err})
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		t.emit(Event{Conn: c, Data: data})
	}
}

func (t *WebSocketTask) emit(ev Event) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	select {
	case t.events <- ev:
	default:
	}
}

func (t *WebSocketTask) Send(c Conn, data []byte) error {
	wc, ok := c.(*wsConn)
	if !ok {
		return net.ErrClosed
	}
	wc.writeMu.Lock()
	defer wc.writeMu.Unlock()
	return wc.wc.WriteMessage(websocket.BinaryMessage, data)
}

func (t *WebSocketTask) CloseConn(c Conn) error {
	wc, ok := c.(*wsConn)
	if !ok {
		return net.ErrClosed
	}
	t.mu.Lock()
	delete(t.conns, wc.id)
	t.mu.Unlock()
	return wc.wc.Close()
}

func (t *WebSocketTask) Events() <-chan Event { return t.events }

func (t *WebSocketTask) Shutdown() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conns := make([]*wsConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = nil
	t.mu.Unlock()

	for _, c := range conns {
		c.wc.Close()
	}
}
