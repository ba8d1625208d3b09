package base

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

const (
	headerMaxEntryCount  = 255
	headerMaxKeyLength   = 512
	headerMaxValueLength = 2048
)

func headerKeyNormalize(in string) string {
	switch strings.ToLower(in) {
	case "cseq":
		return "CSeq"
	}
	return http.CanonicalHeaderKey(in)
}

// HeaderValue is a header value: an RTSP header may repeat a key.
type HeaderValue []string

// Header is the set of header fields carried by a Request or Response.
type Header map[string]HeaderValue

// Get returns the first value of a header field, if present.
func (h Header) Get(key string) (string, bool) {
	if v, ok := h[headerKeyNormalize(key)]; ok && len(v) >= 1 {
		return v[0], true
	}
	return "", false
}

// Set sets a single-valued header field.
func (h Header) Set(key, value string) {
	h[headerKeyNormalize(key)] = HeaderValue{value}
}

func (h *Header) read(sc *scanner) error {
	*h = make(Header)
	count := 0

	for {
		byt, err := sc.readByte()
		if err != nil {
			return err
		}

		if byt == '\r' {
			if err := sc.requireByte('\n'); err != nil {
				return err
			}
			break
		}

		if count >= headerMaxEntryCount {
			return fmt.Errorf("headers count exceeds %d", headerMaxEntryCount)
		}

		key := string([]byte{byt})
		byts, err := sc.readUntil(':', headerMaxKeyLength-1)
		if err != nil {
			return err
		}
		key += string(byts)
		key = headerKeyNormalize(key)

		for {
			b, err := sc.readByte()
			if err != nil {
				return err
			}
			if b != ' ' {
				break
			}
		}
		sc.unreadByte()

		byts, err = sc.readUntil('\r', headerMaxValueLength)
		if err != nil {
			return err
		}
		val := string(byts)

		if err := sc.requireByte('\n'); err != nil {
			return err
		}

		(*h)[key] = append((*h)[key], val)
		count++
	}

	return nil
}

func (h Header) write(buf *bytes.Buffer) {
	keys := make([]string, 0, len(h))
	for key := range h {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, val := range h[key] {
			buf.WriteString(key + ": " + val + "\r\n")
		}
	}

	buf.WriteString("\r\n")
}
