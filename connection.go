package rtspsession

import "github.com/baoweiwang/rtspsession/pkg/nettask"

// Connection is the state a Core keeps for one multiplexed TCP socket: the
// sessions established on it, keyed by the Session-ID the server assigned,
// the sessions still waiting for their first response (found by the CSeq
// of their in-flight SETUP, since they have no Session-ID yet), and the
// bytes read off the
// wire that do not yet form a complete Message.
//
// Like Session, a Connection is only ever touched from the Core's event
// loop goroutine.
type Connection struct {
	id   string
	addr string
	conn nettask.Conn

	sessionTable map[string]*Session
	pendingQueue []*Session

	recvBuf []byte
}

func newConnection(id, addr string, conn nettask.Conn) *Connection {
	return &Connection{
		id:           id,
		addr:         addr,
		conn:         conn,
		sessionTable: make(map[string]*Session),
	}
}

func (c *Connection) removePending(s *Session) {
	for i, p := range c.pendingQueue {
		if p == s {
			c.pendingQueue = append(c.pendingQueue[:i], c.pendingQueue[i+1:]...)
			return
		}
	}
}

func (c *Connection) popPendingByCSeq(cseq uint64) *Session {
	for i, p := range c.pendingQueue {
		if p.lastCSeq == cseq {
			c.pendingQueue = append(c.pendingQueue[:i], c.pendingQueue[i+1:]...)
			return p
		}
	}
	return nil
}

// idle reports whether the Connection has no established and no pending
// sessions left, and is therefore safe to release.
func (c *Connection) idle() bool {
	return len(c.sessionTable) == 0 && len(c.pendingQueue) == 0
}
