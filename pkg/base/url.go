package base

import (
	"fmt"
	"net/url"
)

// URL is a RTSP URL. It wraps net/url.URL the way the wider RTSP ecosystem
// does, since the grammar is otherwise identical to an HTTP URL.
type URL url.URL

// ParseURL parses a RTSP URL.
func ParseURL(s string) (*URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	if u.Scheme != "rtsp" && u.Scheme != "rtsps" {
		return nil, fmt.Errorf("unsupported scheme '%s'", u.Scheme)
	}

	return (*URL)(u), nil
}

// String implements fmt.Stringer.
func (u *URL) String() string {
	if u == nil {
		return ""
	}
	return (*url.URL)(u).String()
}

// HostPort returns the RTSP host (including port).
func (u *URL) HostPort() string {
	return (*url.URL)(u).Host
}
