package rtspsession

import "github.com/baoweiwang/rtspsession/pkg/base"

// Session is one logical RTSP session: SETUP through TEARDOWN, or anything
// in between. A Session starts detached (no Connection, no server-assigned
// identity) and is promoted to established once a SETUP response carries a
// Session-ID. All fields below this comment are mutated exclusively on the
// Core's event loop goroutine; SessionCreate only ever builds the value,
// never touches Core state, which is what makes it safe to call from any
// goroutine.
type Session struct {
	ServerIP         string
	ServerPort       int
	ResourceLocation string
	UserData         interface{}

	id            string
	lastCSeq      uint64
	activeRequest *base.Message
	requestQueue  []*base.Message
	connHandle    string
	terminating   bool
}

// ID returns the server-assigned Session-ID, or "" if the session has not
// been established yet.
func (s *Session) ID() string { return s.id }

// Established reports whether the session has a server-assigned Session-ID.
func (s *Session) Established() bool { return s.id != "" }
