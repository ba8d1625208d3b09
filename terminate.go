package rtspsession

import "github.com/baoweiwang/rtspsession/pkg/base"

// handleTerminateSession is the Control Channel handler for
// TaskMsg::TerminateSession. It is idempotent: a session already marked
// terminating is left alone, so a second call (or a race between an
// application-initiated terminate and a disconnect already in flight)
// never double-fires OnSessionTerminateResponse.
func (c *Core) handleTerminateSession(session *Session) {
	if session.terminating {
		return
	}
	session.terminating = true

	switch {
	case session.id != "":
		// Established: tear down properly, so the server releases
		// whatever resources the Session-ID holds. The response arrives
		// through the normal correlation path (see correlate.go), which
		// fires OnSessionTerminateResponse once it lands.
		teardown := &base.Message{Type: base.MessageRequest, Method: base.Teardown}
		c.submit(session, teardown)

	case session.connHandle != "":
		// Pending: still waiting on a SETUP response that will never be
		// acted on now. Pull it out of the queue it's waiting in.
		if conn, ok := c.connections[session.connHandle]; ok {
			conn.removePending(session)
			c.releaseIfIdle(conn)
		}
		session.connHandle = ""
		session.activeRequest = nil
		session.requestQueue = nil
		c.Handler.OnSessionTerminateResponse(c, session)

	default:
		// Detached: nothing to unwind.
		c.Handler.OnSessionTerminateResponse(c, session)
	}
}

// handleDisconnect runs when the Task reports a Connection is gone: every
// session still attached to it — established or pending — that is not
// already terminating is terminated immediately, since there is no wire
// left to carry a TEARDOWN over. Sessions already terminating are left
// as they are.
func (c *Core) handleDisconnect(conn *Connection, err error) {
	delete(c.connections, conn.id)
	c.Logger.Warn().Err(err).Str("conn", conn.id).Msg("connection closed")

	for _, session := range conn.sessionTable {
		c.detachOnDisconnect(session)
	}
	for _, session := range conn.pendingQueue {
		c.detachOnDisconnect(session)
	}
	conn.sessionTable = nil
	conn.pendingQueue = nil
}

func (c *Core) detachOnDisconnect(session *Session) {
	if session.terminating {
		return
	}
	session.terminating = true
	session.id = ""
	session.connHandle = ""
	session.activeRequest = nil
	session.requestQueue = nil
	c.Handler.OnSessionTerminateResponse(c, session)
}
