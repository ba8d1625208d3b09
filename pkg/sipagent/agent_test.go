package sipagent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAnnounceSDPCarriesResourceAndOrigin(t *testing.T) {
	body := announceSDP("10.0.0.5", "media/audio")
	require.NotEmpty(t, body)
	s := string(body)
	require.Contains(t, s, "s=media/audio")
	require.Contains(t, s, "o=- 0 0 IN IP4 10.0.0.5")
}

func TestAgentTimeoutDefault(t *testing.T) {
	a := &Agent{}
	require.Equal(t, 10*time.Second, a.timeout())

	a.Timeout = 5 * time.Second
	require.Equal(t, 5*time.Second, a.timeout())
}

func TestAgentContactURI(t *testing.T) {
	a := &Agent{AdvertiseAddr: "10.0.0.9", Port: 5060, ContactUser: "rtspsession"}
	uri := a.contactURI()
	require.Equal(t, "sip", uri.Scheme)
	require.Equal(t, "rtspsession", uri.User)
	require.Equal(t, "10.0.0.9", uri.Host)
	require.Equal(t, 5060, uri.Port)
}
