// Package codec is the Message Codec Adapter: the boundary between the
// session engine and the RTSP wire grammar. Wire parsing/serialization is
// deliberately kept out of the core itself; this package is the one
// concrete implementation of that contract the engine is built against.
package codec

import "github.com/baoweiwang/rtspsession/pkg/base"

// DefaultMaxMessageSize is the per-message buffer ceiling inherited from
// the reference implementation this engine supersedes. It is a tunable,
// not a protocol limit: large responses beyond it are rejected here,
// before ever reaching session state.
const DefaultMaxMessageSize = 2048

// Codec decodes bytes arriving on a Connection into Messages, and encodes
// Messages into bytes to hand to the net task for sending.
type Codec struct {
	// MaxMessageSize bounds how many undecoded bytes may accumulate while
	// waiting for one message to complete. Zero means DefaultMaxMessageSize.
	MaxMessageSize int
}

func (c *Codec) maxSize() int {
	if c.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}
	return c.MaxMessageSize
}

// Decode parses zero or more complete messages out of buf, in arrival
// order, and reports how many leading bytes were consumed. The caller
// must keep any unconsumed trailing bytes and prepend them to the next
// read. A non-nil error means the message at the returned consumed
// offset is malformed; the messages successfully decoded before it are
// still returned and should be dispatched.
func (c *Codec) Decode(buf []byte) ([]*base.Message, int, error) {
	return base.Decode(buf, c.maxSize())
}

// Encode serializes a message to wire bytes.
func (c *Codec) Encode(msg *base.Message) ([]byte, error) {
	return msg.Marshal()
}
