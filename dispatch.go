package rtspsession

import (
	"strconv"

	"github.com/baoweiwang/rtspsession/pkg/base"
	"github.com/baoweiwang/rtspsession/pkg/liberrors"
)

// handleSendMessage is the Control Channel handler for TaskMsg::SendMessage.
// It enforces per-session pipelining: at most one outstanding request per
// session at a time, everything else queued in arrival order.
func (c *Core) handleSendMessage(session *Session, message *base.Message) {
	if session.terminating {
		c.Logger.Warn().Err(liberrors.ErrContractViolation{
			Reason: "SendMessage on a terminating session",
		}).Msg("contract violation")
		return
	}
	c.submit(session, message)
}

// submit is the queue-or-dispatch step of handleSendMessage, factored out
// so the termination algorithm can push its synthesized TEARDOWN through
// the same pipelining discipline without tripping the terminating guard
// above (the session is deliberately already marked terminating by then).
func (c *Core) submit(session *Session, message *base.Message) {
	if session.activeRequest != nil {
		session.requestQueue = append(session.requestQueue, message)
		return
	}

	session.activeRequest = message
	c.dispatchActive(session)
}

// dispatchActive sends session's active_request: binding it to a
// Connection first if it doesn't already have one, then composing its
// URL, stamping CSeq (and Session-ID, if established), and handing the
// encoded bytes to the Task.
func (c *Core) dispatchActive(session *Session) {
	message := session.activeRequest

	var conn *Connection
	if session.connHandle == "" {
		newConn, err := c.bindConnection(session)
		if err != nil {
			c.Logger.Warn().Err(err).Str("addr", message.URL.String()).Msg("connect failed")
			session.activeRequest = nil
			if fh, ok := c.Handler.(FailureHandler); ok {
				fh.OnSessionFailure(c, session, message, err)
			}
			return
		}
		conn = newConn
		session.connHandle = conn.id

		switch {
		case message.Method == base.Setup:
			conn.pendingQueue = append(conn.pendingQueue, session)
		case session.id == "":
			c.Logger.Warn().Err(liberrors.ErrContractViolation{
				Reason: "non-SETUP (" + string(message.Method) + ") on a session without a server-assigned Session-ID",
			}).Str("method", string(message.Method)).Msg("contract violation")
		}
	} else {
		conn = c.connections[session.connHandle]
		if conn == nil {
			c.Logger.Error().Msg("session bound to an unknown connection")
			session.activeRequest = nil
			return
		}
	}

	message.URL = composeURL(session, message.ResourceName)
	message.ResourceName = ""

	session.lastCSeq++
	message.SetCSeq(session.lastCSeq)
	if session.id != "" {
		message.SetSessionID(session.id)
	}

	c.sendOnConn(conn, message)
}

// composeURL builds the request-URI for an outgoing message the way
// SETUP composes a per-track URL under the session's resource: host,
// then /resource_location, then /resourceName if given.
func composeURL(session *Session, resourceName string) *base.URL {
	raw := "rtsp://" + session.ServerIP + ":" + strconv.Itoa(session.ServerPort)
	if session.ResourceLocation != "" {
		raw += "/" + session.ResourceLocation
	}
	if resourceName != "" {
		raw += "/" + resourceName
	}
	u, err := base.ParseURL(raw)
	if err != nil {
		// ServerIP/port are caller-supplied and SessionCreate does not
		// validate them; fall back to a URL that at least carries the
		// host so the request is still attributable on the wire.
		u = &base.URL{Scheme: "rtsp", Host: session.ServerIP + ":" + strconv.Itoa(session.ServerPort)}
	}
	return u
}
