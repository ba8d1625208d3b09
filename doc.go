// Package rtspsession implements the core of a client-side RTSP signaling
// engine: a single-threaded, event-driven state machine that owns a pool
// of TCP connections, multiplexes many logical RTSP sessions over each
// connection, serializes outgoing requests per session, correlates
// incoming responses with outstanding requests, promotes pending
// sessions to established ones upon server-assigned Session-IDs, and
// responds to server-originated RTSP requests.
//
// Wire parsing/serialization (pkg/codec, pkg/base), the TCP event loop
// substrate (pkg/nettask) and a companion SIP signaling agent
// (pkg/sipagent) are external collaborators consumed through narrow
// contracts; this package is the state machine that sits between them
// and the application.
package rtspsession
