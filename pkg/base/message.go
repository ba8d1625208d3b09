// Package base contains the wire-level RTSP message types consumed by the
// session engine. It deliberately implements only the subset of RTSP/1.0
// grammar the core needs (no interleaved binary frames, no authentication
// headers): those are Non-goals of the engine this package serves.
package base

import (
	"bytes"
	"fmt"
	"strconv"
)

const protocolVersion = "RTSP/1.0"

// MessageType distinguishes a decoded Message as a request or a response.
type MessageType int

// Message types.
const (
	MessageRequest MessageType = iota
	MessageResponse
)

// Method is an RTSP request method.
type Method string

// Methods the engine correlates or reacts to.
const (
	Announce     Method = "ANNOUNCE"
	Describe     Method = "DESCRIBE"
	GetParameter Method = "GET_PARAMETER"
	Options      Method = "OPTIONS"
	Pause        Method = "PAUSE"
	Play         Method = "PLAY"
	Record       Method = "RECORD"
	Setup        Method = "SETUP"
	SetParameter Method = "SET_PARAMETER"
	Teardown     Method = "TEARDOWN"
)

// StatusCode is an RTSP response status code.
type StatusCode int

// Status codes the engine synthesizes or checks against.
const (
	StatusOK           StatusCode = 200
	StatusBadRequest   StatusCode = 400
	StatusNotFound     StatusCode = 404
	StatusInternalErr  StatusCode = 500
	StatusNotSupported StatusCode = 551
)

var statusMessages = map[StatusCode]string{
	StatusOK:           "OK",
	StatusBadRequest:   "Bad Request",
	StatusNotFound:     "Not Found",
	StatusInternalErr:  "Internal Server Error",
	StatusNotSupported: "Option Not Supported",
}

// Message is a decoded RTSP message: either a request or a response. The
// core never distinguishes request/response types beyond this struct; it
// is the "Message" entity of the data model.
type Message struct {
	Type MessageType

	// request fields
	Method Method
	URL    *URL

	// ResourceName is the path segment appended after the session's
	// resource location when the core composes URL for an outgoing
	// request (e.g. a SETUP track name). Ignored on responses and on
	// requests that target the session's aggregate URL. Cleared once
	// URL has been composed.
	ResourceName string

	// response fields
	StatusCode    StatusCode
	StatusMessage string

	// shared fields
	Header      Header
	Body        []byte
	ContentType string
}

// CSeq returns the parsed CSeq header, if present and well-formed.
func (m *Message) CSeq() (uint64, bool) {
	v, ok := m.Header.Get("CSeq")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SetCSeq stamps the CSeq header.
func (m *Message) SetCSeq(v uint64) {
	if m.Header == nil {
		m.Header = make(Header)
	}
	m.Header.Set("CSeq", strconv.FormatUint(v, 10))
}

// SessionID returns the Session header value, if present.
func (m *Message) SessionID() (string, bool) {
	v, ok := m.Header.Get("Session")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// SetSessionID stamps the Session header.
func (m *Message) SetSessionID(id string) {
	if m.Header == nil {
		m.Header = make(Header)
	}
	m.Header.Set("Session", id)
}

// readRequestLine parses "METHOD url RTSP/1.0\r\n".
func readRequestLine(sc *scanner) (Method, *URL, error) {
	byts, err := sc.readUntil(' ', 128)
	if err != nil {
		return "", nil, err
	}
	method := Method(byts)
	if method == "" {
		return "", nil, fmt.Errorf("empty method")
	}

	byts, err = sc.readUntil(' ', 1024)
	if err != nil {
		return "", nil, err
	}
	rawURL := string(byts)
	if rawURL == "" {
		return "", nil, fmt.Errorf("empty url")
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("unable to parse url (%v): %w", rawURL, err)
	}

	byts, err = sc.readUntil('\r', 128)
	if err != nil {
		return "", nil, err
	}
	if proto := string(byts); proto != protocolVersion {
		return "", nil, fmt.Errorf("expected '%s', got '%s'", protocolVersion, proto)
	}
	if err := sc.requireByte('\n'); err != nil {
		return "", nil, err
	}

	return method, u, nil
}

// readStatusLine parses "RTSP/1.0 code message\r\n".
func readStatusLine(sc *scanner) (StatusCode, string, error) {
	byts, err := sc.readUntil(' ', 255)
	if err != nil {
		return 0, "", err
	}
	if proto := string(byts); proto != protocolVersion {
		return 0, "", fmt.Errorf("expected '%s', got '%s'", protocolVersion, proto)
	}

	byts, err = sc.readUntil(' ', 4)
	if err != nil {
		return 0, "", err
	}
	code, err := strconv.ParseInt(string(byts), 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("unable to parse status code")
	}

	byts, err = sc.readUntil('\r', 255)
	if err != nil {
		return 0, "", err
	}
	msg := string(byts)

	if err := sc.requireByte('\n'); err != nil {
		return 0, "", err
	}

	return StatusCode(code), msg, nil
}

func readBody(sc *scanner, h Header) ([]byte, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid Content-Length")
	}
	if n == 0 {
		return nil, nil
	}
	return sc.readN(n)
}

// readMessage decodes exactly one message starting at sc.pos. On success
// sc.pos points just past the message; on ErrIncomplete or any other
// error sc.pos is left untouched by the caller's reset (see Decode).
func readMessage(sc *scanner) (*Message, error) {
	mark := sc.pos

	peek, err := sc.readN(len(protocolVersion))
	if err != nil {
		return nil, err
	}
	isResponse := string(peek) == protocolVersion
	sc.pos = mark

	if isResponse {
		code, statusMsg, err := readStatusLine(sc)
		if err != nil {
			return nil, err
		}
		var h Header
		if err := h.read(sc); err != nil {
			return nil, err
		}
		body, err := readBody(sc, h)
		if err != nil {
			return nil, err
		}
		return &Message{
			Type:          MessageResponse,
			StatusCode:    code,
			StatusMessage: statusMsg,
			Header:        h,
			Body:          body,
		}, nil
	}

	method, u, err := readRequestLine(sc)
	if err != nil {
		return nil, err
	}
	var h Header
	if err := h.read(sc); err != nil {
		return nil, err
	}
	body, err := readBody(sc, h)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:   MessageRequest,
		Method: method,
		URL:    u,
		Header: h,
		Body:   body,
	}, nil
}

// Decode parses as many complete messages as are present in buf, in
// order, and reports how many leading bytes of buf were consumed.
// Trailing bytes that do not yet form a complete message are left
// unconsumed so the caller can feed them back in once more data arrives.
// A malformed (but complete) message returns the messages decoded so
// far, the bytes consumed so far, and the error describing the failure;
// the caller is expected to respond with a protocol error and drop the
// remainder of the buffer (see pkg/codec).
func Decode(buf []byte, maxMessageSize int) ([]*Message, int, error) {
	sc := newScanner(buf)
	var out []*Message

	for {
		if sc.pos >= len(buf) {
			return out, sc.pos, nil
		}

		before := sc.pos
		msg, err := readMessage(sc)
		if err != nil {
			if err == ErrIncomplete {
				if len(buf)-before > maxMessageSize {
					return out, before, fmt.Errorf("message exceeds maximum size of %d bytes", maxMessageSize)
				}
				sc.pos = before
				return out, before, nil
			}
			return out, before, err
		}
		if sc.pos-before > maxMessageSize {
			return out, before, fmt.Errorf("message exceeds maximum size of %d bytes", maxMessageSize)
		}
		out = append(out, msg)
	}
}

// Marshal serializes the message into RTSP/1.0 wire bytes.
func (m *Message) Marshal() ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	h := m.Header
	if h == nil {
		h = make(Header)
	} else {
		cloned := make(Header, len(h))
		for k, v := range h {
			cloned[k] = v
		}
		h = cloned
	}

	if len(m.Body) != 0 {
		h.Set("Content-Length", strconv.Itoa(len(m.Body)))
		if m.ContentType != "" {
			h.Set("Content-Type", m.ContentType)
		}
	}

	switch m.Type {
	case MessageRequest:
		if m.URL == nil {
			return nil, fmt.Errorf("request has no URL")
		}
		buf.WriteString(string(m.Method) + " " + m.URL.String() + " " + protocolVersion + "\r\n")

	case MessageResponse:
		statusMsg := m.StatusMessage
		if statusMsg == "" {
			statusMsg = statusMessages[m.StatusCode]
		}
		buf.WriteString(protocolVersion + " " + strconv.Itoa(int(m.StatusCode)) + " " + statusMsg + "\r\n")

	default:
		return nil, fmt.Errorf("unknown message type")
	}

	h.write(buf)

	if len(m.Body) != 0 {
		buf.Write(m.Body)
	}

	return buf.Bytes(), nil
}
