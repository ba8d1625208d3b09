package rtspsession

import (
	"github.com/baoweiwang/rtspsession/pkg/base"
	"github.com/baoweiwang/rtspsession/pkg/liberrors"
)

// taskMsg is anything the Control Channel can carry from an application
// goroutine to the Core's event loop. The event loop dispatches on the
// concrete type via a type switch.
type taskMsg interface {
	isTaskMsg()
}

type sendMessageMsg struct {
	session *Session
	message *base.Message
}

func (sendMessageMsg) isTaskMsg() {}

type terminateSessionMsg struct {
	session *Session
}

func (terminateSessionMsg) isTaskMsg() {}

// enqueue submits msg on the Control Channel. It returns false without
// blocking if the Core has already terminated.
func (c *Core) enqueue(msg taskMsg) bool {
	select {
	case <-c.done:
		c.Logger.Warn().Err(liberrors.ErrCoreTerminated{}).Msg("enqueue rejected")
		return false
	default:
	}
	select {
	case c.control <- msg:
		return true
	case <-c.done:
		c.Logger.Warn().Err(liberrors.ErrCoreTerminated{}).Msg("enqueue rejected")
		return false
	}
}
