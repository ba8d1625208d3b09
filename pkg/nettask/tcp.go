package nettask

import (
	"context"
	"net"
	"sync"

	"github.com/google/uuid"
)

const readBufferSize = 4096

// TCPTask is the plain-TCP Task backend.
type TCPTask struct {
	// DialContext defaults to a zero-value net.Dialer's DialContext. Tests
	// override it (e.g. to dial into a net.Pipe) the same way the
	// reference dialer this is grounded on exposes a DialTimeout hook.
	DialContext func(ctx context.Context, network, address string) (net.Conn, error)

	events chan Event

	mu     sync.Mutex
	conns  map[string]*tcpConn
	closed bool
}

type tcpConn struct {
	id         string
	remoteAddr string
	nc         net.Conn
}

func (c *tcpConn) ID() string         { return c.id }
func (c *tcpConn) RemoteAddr() string { return c.remoteAddr }

// NewTCPTask creates a TCPTask. eventBuf sizes the Events channel; 0 means
// a reasonable default.
func NewTCPTask(eventBuf int) *TCPTask {
	if eventBuf <= 0 {
		eventBuf = 64
	}
	return &TCPTask{
		events: make(chan Event, eventBuf),
		conns:  make(map[string]*tcpConn),
	}
}

func (t *TCPTask) dial() func(ctx context.Context, network, address string) (net.Conn, error) {
	if t.DialContext != nil {
		return t.DialContext
	}
	return (&net.Dialer{}).DialContext
}

func (t *TCPTask) Connect(ctx context.Context, addr string) (Conn, error) {
	nc, err := t.dial()(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &tcpConn{id: uuid.NewString(), remoteAddr: addr, nc: nc}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		nc.Close()
		return nil, net.ErrClosed
	}
	t.conns[c.id] = c
	t.mu.Unlock()

	go t.readLoop(c)

	return c, nil
}

func (t *TCPTask) readLoop(c *tcpConn) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.emit(Event{Conn: c, Data: data})
		}
		if err != nil {
			t.mu.Lock()
			delete(t.conns, c.id)
			t.mu.Unlock()
			t.emit(Event{Conn: c, Err: err})
			return
		}
	}
}

func (t *TCPTask) emit(ev Event) {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return
	}
	select {
	case t.events <- ev:
	default:
		// Events is sized generously; a full channel means the core has
		// stopped draining it, which only happens on shutdown.
	}
}

func (t *TCPTask) Send(c Conn, data []byte) error {
	tc, ok := c.(*tcpConn)
	if !ok {
		return net.ErrClosed
	}
	_, err := tc.nc.Write(data)
	return err
}

func (t *TCPTask) CloseConn(c Conn) error {
	tc, ok := c.(*tcpConn)
	if !ok {
		return net.ErrClosed
	}
	t.mu.Lock()
	delete(t.conns, tc.id)
	t.mu.Unlock()
	return tc.nc.Close()
}

func (t *TCPTask) Events() <-chan Event { return t.events }

func (t *TCPTask) Shutdown() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	conns := make([]*tcpConn, 0, len(t.conns))
	for _, c := range t.conns {
		conns = append(conns, c)
	}
	t.conns = nil
	t.mu.Unlock()

	for _, c := range conns {
		c.nc.Close()
	}
}
