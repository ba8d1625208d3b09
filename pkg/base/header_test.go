package base

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderGetSet(t *testing.T) {
	h := make(Header)
	_, ok := h.Get("Session")
	require.False(t, ok)

	h.Set("Session", "ABC123")
	v, ok := h.Get("Session")
	require.True(t, ok)
	require.Equal(t, "ABC123", v)
}

func TestHeaderCSeqNormalization(t *testing.T) {
	h := make(Header)
	h.Set("cseq", "1")
	v, ok := h.Get("CSeq")
	require.True(t, ok)
	require.Equal(t, "1", v)
	require.Contains(t, h, "CSeq")
}

func TestHeaderReadWriteRoundTrip(t *testing.T) {
	raw := []byte("CSeq: 1\r\n" +
		"Session: ABC123\r\n" +
		"Transport: RTP/AVP;unicast\r\n" +
		"\r\n")

	sc := newScanner(raw)
	var h Header
	require.NoError(t, h.read(sc))
	require.Equal(t, len(raw), sc.pos)
	require.Equal(t, HeaderValue{"1"}, h["CSeq"])
	require.Equal(t, HeaderValue{"ABC123"}, h["Session"])

	buf := bytes.NewBuffer(nil)
	h.write(buf)

	sc2 := newScanner(buf.Bytes())
	var h2 Header
	require.NoError(t, h2.read(sc2))
	require.Equal(t, h, h2)
}

func TestHeaderRepeatedKey(t *testing.T) {
	raw := []byte("Require: implicit-play\r\n" +
		"Require: gzipped-messages\r\n" +
		"\r\n")

	sc := newScanner(raw)
	var h Header
	require.NoError(t, h.read(sc))
	require.Equal(t, HeaderValue{"implicit-play", "gzipped-messages"}, h["Require"])
}
