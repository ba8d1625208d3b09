package rtspsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/baoweiwang/rtspsession/pkg/base"
	"github.com/baoweiwang/rtspsession/pkg/codec"
	"github.com/baoweiwang/rtspsession/pkg/liberrors"
	"github.com/baoweiwang/rtspsession/pkg/nettask"
)

// Core is the signaling engine: a single event loop owning a Task's
// connections, dispatching and correlating RTSP traffic across however
// many Sessions are multiplexed over them.
type Core struct {
	Handler            ClientHandler
	Task               nettask.Task
	Codec              codec.Codec
	Logger             zerolog.Logger
	MaxConnectionCount int

	control chan taskMsg
	done    chan struct{}
	stop    sync.Once
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// event-loop-owned
	connections map[string]*Connection
}

// New builds a Core. Call Start to run its event loop.
func New(task nettask.Task, handler ClientHandler) *Core {
	ctx, cancel := context.WithCancel(context.Background())
	return &Core{
		Handler:            handler,
		Task:               task,
		Logger:             zerolog.Nop(),
		MaxConnectionCount: 16,
		control:            make(chan taskMsg, 64),
		done:               make(chan struct{}),
		ctx:                ctx,
		cancel:             cancel,
		connections:        make(map[string]*Connection),
	}
}

// Start launches the event loop in its own goroutine and returns
// immediately.
func (c *Core) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run()
	}()
}

// Terminate stops the event loop, disconnects every Connection and
// releases the Task. It blocks until the loop has exited. Safe to call
// more than once.
func (c *Core) Terminate() {
	c.stop.Do(func() {
		close(c.done)
		c.cancel()
	})
	c.wg.Wait()
}

func (c *Core) run() {
	defer c.Task.Shutdown()
	for {
		select {
		case msg := <-c.control:
			switch m := msg.(type) {
			case sendMessageMsg:
				c.handleSendMessage(m.session, m.message)
			case terminateSessionMsg:
				c.handleTerminateSession(m.session)
			}

		case ev, ok := <-c.Task.Events():
			if !ok {
				return
			}
			c.handleNetEvent(ev)

		case <-c.ctx.Done():
			return
		}
	}
}

// SessionCreate builds a detached Session. It touches no Core state and is
// safe to call from any goroutine.
func (c *Core) SessionCreate(serverIP string, serverPort int, resourceLocation string, userData interface{}) *Session {
	return &Session{
		ServerIP:         serverIP,
		ServerPort:       serverPort,
		ResourceLocation: resourceLocation,
		UserData:         userData,
	}
}

// SessionRequest enqueues message for dispatch on session. It returns
// false, without enqueuing anything, if the Core has terminated.
func (c *Core) SessionRequest(session *Session, message *base.Message) bool {
	return c.enqueue(sendMessageMsg{session: session, message: message})
}

// SessionTerminate enqueues the termination of session: a synthesized
// TEARDOWN if it is established, an immediate drop otherwise. Idempotent.
func (c *Core) SessionTerminate(session *Session) bool {
	return c.enqueue(terminateSessionMsg{session: session})
}

// SessionDestroy releases session's memory. The caller must ensure session
// is no longer referenced by any Connection — in practice, that it has
// already gone through OnSessionTerminateResponse — since destroying it any
// earlier would nil out state the event loop still expects to find. Like
// SessionCreate, it touches no Core state and is safe to call from any
// goroutine.
func (c *Core) SessionDestroy(session *Session) {
	session.activeRequest = nil
	session.requestQueue = nil
	session.connHandle = ""
	session.id = ""
}

func (c *Core) handleNetEvent(ev nettask.Event) {
	conn, ok := c.connections[ev.Conn.ID()]
	if !ok {
		return
	}
	if ev.Err != nil {
		c.handleDisconnect(conn, ev.Err)
		return
	}
	c.handleReadable(conn, ev.Data)
}

// bindConnection returns an existing Connection to addr if one is already
// open, multiplexing the new session onto it, or dials a new one subject
// to MaxConnectionCount.
func (c *Core) bindConnection(session *Session) (*Connection, error) {
	addr := fmt.Sprintf("%s:%d", session.ServerIP, session.ServerPort)

	for _, conn := range c.connections {
		if conn.addr == addr {
			return conn, nil
		}
	}

	if c.MaxConnectionCount > 0 && len(c.connections) >= c.MaxConnectionCount {
		return nil, liberrors.ErrConnectionLimitReached{Max: c.MaxConnectionCount}
	}

	nc, err := c.Task.Connect(c.ctx, addr)
	if err != nil {
		return nil, liberrors.ErrConnectFailed{Addr: addr, Err: err}
	}

	// nc.ID() is already a stable, globally-unique handle (see
	// pkg/nettask); reusing it as the Connection's own id avoids a
	// redundant layer of indirection between the two.
	conn := newConnection(nc.ID(), addr, nc)
	c.connections[conn.id] = conn
	return conn, nil
}

// releaseIfIdle closes and forgets conn once it carries no established and
// no pending sessions: nothing is multiplexed over it anymore, so there is
// no reason to keep the socket open.
func (c *Core) releaseIfIdle(conn *Connection) {
	if !conn.idle() {
		return
	}
	delete(c.connections, conn.id)
	if err := c.Task.CloseConn(conn.conn); err != nil {
		c.Logger.Warn().Err(err).Str("conn", conn.id).Msg("close failed")
	}
}

func (c *Core) sendOnConn(conn *Connection, msg *base.Message) {
	data, err := c.Codec.Encode(msg)
	if err != nil {
		c.Logger.Error().Err(err).Msg("encode failed")
		return
	}
	if err := c.Task.Send(conn.conn, data); err != nil {
		c.Logger.Warn().Err(liberrors.ErrSendFailed{Err: err}).Str("conn", conn.id).Msg("send failed")
	}
}
