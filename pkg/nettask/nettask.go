// Package nettask is the substrate the session engine drives connections
// through: a small Task contract around connect/send/close plus an event
// stream of arrived bytes and disconnects, with two concrete backends
// (plain TCP and a WebSocket tunnel) sharing the same contract so the core
// never has to know which one it is talking to.
package nettask

import (
	"context"
)

// Conn is an opaque handle to one connection a Task manages. The core
// matches an Event back to the Connection that owns it by ID.
type Conn interface {
	// ID is a stable identifier, unique among the Task's live connections.
	ID() string
	// RemoteAddr is the address that was dialed to reach this connection.
	RemoteAddr() string
}

// Event is one notification delivered on a Task's Events channel: either
// bytes that arrived on Conn (Err == nil), or notice that Conn is no
// longer usable (Err != nil, Data == nil).
type Event struct {
	Conn Conn
	Data []byte
	Err  error
}

// Task is the contract the session engine drives every connection
// through. Connect is synchronous and best-effort: it either returns a
// usable Conn or an error, with no separate asynchronous connect
// notification. Everything that happens afterwards — bytes arriving,
// the peer going away — is reported on Events.
type Task interface {
	Connect(ctx context.Context, addr string) (Conn, error)
	Send(c Conn, data []byte) error
	CloseConn(c Conn) error
	Events() <-chan Event
	Shutdown()
}
