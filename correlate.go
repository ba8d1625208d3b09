package rtspsession

import (
	"regexp"

	"github.com/baoweiwang/rtspsession/pkg/base"
	"github.com/baoweiwang/rtspsession/pkg/liberrors"
)

// handleReadable is the Connection's read-side entry point: it feeds
// newly-arrived bytes through the Codec, dispatches every message decoded
// out of them, and on a malformed message synthesizes a 400 response and
// discards the remainder of the buffer (the stream can no longer be
// trusted to resynchronize).
func (c *Core) handleReadable(conn *Connection, data []byte) {
	conn.recvBuf = append(conn.recvBuf, data...)

	msgs, consumed, err := c.Codec.Decode(conn.recvBuf)
	conn.recvBuf = conn.recvBuf[consumed:]

	for _, msg := range msgs {
		c.handleIncoming(conn, msg)
	}

	if err != nil {
		c.Logger.Warn().Err(err).Str("conn", conn.id).Msg("malformed message")
		resp := &base.Message{Type: base.MessageResponse, StatusCode: base.StatusBadRequest}
		if cseq, ok := bestEffortCSeq(conn.recvBuf); ok {
			resp.SetCSeq(cseq)
		}
		c.sendOnConn(conn, resp)
		conn.recvBuf = nil
	}
}

var cseqPattern = regexp.MustCompile(`(?i)CSeq:\s*([0-9]+)`)

// bestEffortCSeq scans raw, otherwise-unparseable bytes for a CSeq header
// so the error response can still echo it back, per the correlation
// contract: a malformed message still gets the courtesy of its CSeq
// reflected, when it can be found at all.
func bestEffortCSeq(raw []byte) (uint64, bool) {
	m := cseqPattern.FindSubmatch(raw)
	if m == nil {
		return 0, false
	}
	msg := &base.Message{Header: base.Header{"CSeq": base.HeaderValue{string(m[1])}}}
	return msg.CSeq()
}

func (c *Core) handleIncoming(conn *Connection, msg *base.Message) {
	if msg.Type == base.MessageRequest {
		c.handleServerRequest(conn, msg)
		return
	}
	c.handleServerResponse(conn, msg)
}

// handleServerRequest answers a server-originated request (e.g. ANNOUNCE)
// on an established session: 200 OK if the Session-ID is recognized, 404
// otherwise. On a 200 the application hears about it before the response
// goes out; a 404 goes out without any callback.
func (c *Core) handleServerRequest(conn *Connection, msg *base.Message) {
	sid, _ := msg.SessionID()
	session := conn.sessionTable[sid]

	resp := &base.Message{Type: base.MessageResponse}
	if cseq, ok := msg.CSeq(); ok {
		resp.SetCSeq(cseq)
	}

	if session == nil {
		resp.StatusCode = base.StatusNotFound
		c.sendOnConn(conn, resp)
		return
	}

	resp.StatusCode = base.StatusOK
	resp.SetSessionID(sid)

	c.Handler.OnSessionEvent(c, session, msg)
	c.sendOnConn(conn, resp)
}

// handleServerResponse correlates a response with the session whose
// active_request it answers: an established session is found directly by
// Session-ID in session_table; a still-pending one (no Session-ID of its
// own yet) is found by matching the response's CSeq against the
// Connection's pending_queue, and is promoted to established on a 2xx
// that carries a Session-ID.
func (c *Core) handleServerResponse(conn *Connection, msg *base.Message) {
	var session *Session

	if sid, ok := msg.SessionID(); ok {
		session = conn.sessionTable[sid]
	}

	if session == nil {
		if cseq, ok := msg.CSeq(); ok {
			session = conn.popPendingByCSeq(cseq)
		}
		if session != nil {
			c.tryPromote(conn, session, msg)
		}
	}

	if session == nil {
		c.Logger.Warn().Err(liberrors.ErrSpuriousResponse{}).Msg("no session correlates")
		return
	}

	if session.activeRequest == nil {
		c.Logger.Warn().Err(liberrors.ErrSpuriousResponse{SessionID: session.id}).
			Str("session", session.id).Msg("no active request")
		return
	}

	request := session.activeRequest
	c.Handler.OnSessionResponse(c, session, request, msg)

	switch {
	case request.Method == base.Setup && !is2xx(msg.StatusCode):
		// Pending -> detached: this session drops its Connection binding
		// and its queued requests without acquiring an identity; the
		// Connection stays open only while other sessions still use it.
		session.activeRequest = nil
		session.connHandle = ""
		session.requestQueue = nil
		c.releaseIfIdle(conn)

	case request.Method == base.Teardown:
		if session.id != "" {
			delete(conn.sessionTable, session.id)
		}
		session.id = ""
		session.connHandle = ""
		session.activeRequest = nil
		session.requestQueue = nil
		c.Handler.OnSessionTerminateResponse(c, session)
		c.releaseIfIdle(conn)

	default:
		session.activeRequest = nil
		if len(session.requestQueue) > 0 {
			next := session.requestQueue[0]
			session.requestQueue = session.requestQueue[1:]
			session.activeRequest = next
			c.dispatchActive(session)
		}
	}
}

func (c *Core) tryPromote(conn *Connection, session *Session, msg *base.Message) {
	if !is2xx(msg.StatusCode) {
		return
	}
	sid, ok := msg.SessionID()
	if !ok || sid == "" {
		c.Logger.Warn().Err(liberrors.ErrContractViolation{
			Reason: "2xx SETUP response without a Session-ID",
		}).Msg("contract violation")
		return
	}
	session.id = sid
	conn.sessionTable[sid] = session
}

func is2xx(code base.StatusCode) bool { return code >= 200 && code < 300 }
