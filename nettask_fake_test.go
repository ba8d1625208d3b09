package rtspsession

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/baoweiwang/rtspsession/pkg/nettask"
)

// fakeConn is the Conn a fakeTask hands out: an opaque handle plus the
// address it was dialed to, nothing more.
type fakeConn struct {
	id, addr string
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return c.addr }

// fakeTask is an in-process nettask.Task double: Connect never touches a
// real socket, Send records what would have gone on the wire, and tests
// drive the read side by pushing directly onto events. It exists purely
// to exercise the Core's dispatch/correlate/terminate logic deterministically,
// the way the reference dialer's DialTimeout hook lets a real dial be
// swapped out in tests.
type fakeTask struct {
	mu          sync.Mutex
	events      chan nettask.Event
	conns       map[string]*fakeConn
	sent        map[string][][]byte
	nextID      int
	connectErr  error
	maxConnects int // 0 = unlimited
}

func newFakeTask() *fakeTask {
	return &fakeTask{
		events: make(chan nettask.Event, 256),
		conns:  make(map[string]*fakeConn),
		sent:   make(map[string][][]byte),
	}
}

func (t *fakeTask) Connect(_ context.Context, addr string) (nettask.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connectErr != nil {
		return nil, t.connectErr
	}
	if t.maxConnects > 0 && len(t.conns) >= t.maxConnects {
		return nil, errors.New("fakeTask: connect limit reached")
	}

	t.nextID++
	c := &fakeConn{id: fmt.Sprintf("conn-%d", t.nextID), addr: addr}
	t.conns[c.id] = c
	return c, nil
}

func (t *fakeTask) Send(c nettask.Conn, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	t.sent[c.ID()] = append(t.sent[c.ID()], cp)
	return nil
}

func (t *fakeTask) CloseConn(c nettask.Conn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.conns, c.ID())
	return nil
}

func (t *fakeTask) Events() <-chan nettask.Event { return t.events }

func (t *fakeTask) Shutdown() {}

// inject delivers data as if it arrived on conn.
func (t *fakeTask) inject(conn nettask.Conn, data []byte) {
	t.events <- nettask.Event{Conn: conn, Data: data}
}

// disconnect delivers a disconnect notification for conn.
func (t *fakeTask) disconnect(conn nettask.Conn, err error) {
	t.events <- nettask.Event{Conn: conn, Err: err}
}

// sentOn returns every message sent on conn so far, in order.
func (t *fakeTask) sentOn(conn nettask.Conn) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent[conn.ID()]))
	copy(out, t.sent[conn.ID()])
	return out
}

// connByAddr returns the (first) connection dialed to addr, if any.
func (t *fakeTask) connByAddr(addr string) nettask.Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.conns {
		if c.addr == addr {
			return c
		}
	}
	return nil
}

func (t *fakeTask) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
