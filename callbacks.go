package rtspsession

import "github.com/baoweiwang/rtspsession/pkg/base"

// ClientHandler is the application's callback vtable. All methods are invoked
// synchronously from the Core's event loop goroutine; implementations must
// not block and must not call back into the Core re-entrantly (queue work
// for another goroutine instead, e.g. via SessionRequest/SessionTerminate,
// both of which are safe to call from inside a callback since they only
// enqueue onto the Control Channel).
type ClientHandler interface {
	// OnSessionResponse delivers a correlated server response for request,
	// which was the session's active_request at the time it was sent.
	OnSessionResponse(core *Core, session *Session, request, response *base.Message)

	// OnSessionEvent delivers a server-originated request on an
	// established session (e.g. an ANNOUNCE). The Core answers it with a
	// 200 OK right after this returns, so it can't observe a response
	// that hasn't been sent yet.
	OnSessionEvent(core *Core, session *Session, serverRequest *base.Message)

	// OnSessionTerminateResponse fires at most once per session, when the
	// session has left its terminal lifecycle state: a TEARDOWN round
	// trip completed, the session was dropped while still pending or
	// detached, or its Connection disconnected out from under it while it
	// was not already terminating. A session whose TEARDOWN is still
	// outstanding when its Connection disconnects gets no callback.
	OnSessionTerminateResponse(core *Core, session *Session)
}

// FailureHandler is an optional capability a ClientHandler may additionally
// implement to learn about submission failures that never produce a wire
// response, such as a session's Connection failing to establish. Checked
// via a type assertion, the way optional server-side capabilities are
// checked in this ecosystem's RTSP server implementations.
type FailureHandler interface {
	OnSessionFailure(core *Core, session *Session, request *base.Message, err error)
}
