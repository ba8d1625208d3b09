// Package sipagent is a companion to the RTSP session engine: a minimal
// SIP user agent that announces an RTSP session to a SIP peer (e.g. a
// monitoring station that wants a call leg opened whenever a stream goes
// live) and tears it down again when the session ends. It is a sibling of
// the Core, not a dependency of it — wire the two together at the
// application layer via Core's Handler callbacks.
package sipagent

import (
	"context"
	"fmt"
	"time"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"
	"github.com/google/uuid"
	psdp "github.com/pion/sdp/v3"
)

// Agent sends one INVITE per announced session and one BYE per
// termination; it keeps no dialog state of its own beyond what's needed
// to build the BYE; Terminate's caller supplies the Call-ID and Contact
// learned from Announce's result.
type Agent struct {
	Client        *sipgo.Client
	AdvertiseAddr string
	Port          int
	ContactUser   string

	// Timeout bounds how long Announce waits for a final response.
	// Defaults to 10 seconds.
	Timeout time.Duration
}

// NewAgent builds an Agent around a freshly created sipgo user agent and
// client, the way a SIP-speaking component in this ecosystem typically
// wires itself up.
func NewAgent(advertiseAddr string, port int) (*Agent, func(), error) {
	ua, err := sipgo.NewUA()
	if err != nil {
		return nil, nil, fmt.Errorf("create sip user agent: %w", err)
	}
	client, err := sipgo.NewClient(ua)
	if err != nil {
		ua.Close()
		return nil, nil, fmt.Errorf("create sip client: %w", err)
	}

	return &Agent{
			Client:        client,
			AdvertiseAddr: advertiseAddr,
			Port:          port,
			ContactUser:   "rtspsession",
			Timeout:       10 * time.Second,
		}, func() {
			ua.Close()
		}, nil
}

func (a *Agent) contactURI() sip.Uri {
	return sip.Uri{Scheme: "sip", User: a.ContactUser, Host: a.AdvertiseAddr, Port: a.Port}
}

// Announcement is the outcome of a successful Announce: the identifiers
// Terminate needs to end the dialog later.
type Announcement struct {
	CallID        string
	LocalTag      string
	RemoteTag     string
	RemoteContact string
}

// Announce sends an INVITE carrying an SDP description of resourceURL to
// targetURI, and blocks for a final response.
func (a *Agent) Announce(ctx context.Context, targetURI, callerID, resourceURL string) (*Announcement, error) {
	var recipient sip.Uri
	if err := sip.ParseUri(targetURI, &recipient); err != nil {
		return nil, fmt.Errorf("invalid target uri: %w", err)
	}

	callID := sip.CallIDHeader(generateID())
	localTag := generateID()[:8]

	invite := sip.NewRequest(sip.INVITE, recipient)

	maxFwd := sip.MaxForwardsHeader(70)
	invite.AppendHeader(&maxFwd)

	fromParams := sip.NewParams()
	fromParams.Add("tag", localTag)
	invite.AppendHeader(&sip.FromHeader{
		Address: sip.Uri{Scheme: "sip", User: callerID, Host: a.AdvertiseAddr, Port: a.Port},
		Params:  fromParams,
	})
	invite.AppendHeader(&sip.ToHeader{Address: recipient, Params: sip.NewParams()})
	invite.AppendHeader(&callID)
	invite.AppendHeader(&sip.CSeqHeader{SeqNo: 1, MethodName: sip.INVITE})
	invite.AppendHeader(&sip.ContactHeader{Address: a.contactURI()})

	contentType := sip.ContentTypeHeader("application/sdp")
	invite.AppendHeader(&contentType)
	invite.SetBody(announceSDP(a.AdvertiseAddr, resourceURL))

	dialCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	tx, err := a.Client.TransactionRequest(dialCtx, invite)
	if err != nil {
		return nil, fmt.Errorf("send invite: %w", err)
	}

	for {
		select {
		case <-dialCtx.Done():
			return nil, dialCtx.Err()

		case resp := <-tx.Responses():
			if resp == nil {
				return nil, fmt.Errorf("transaction ended without a response")
			}
			if resp.StatusCode < 200 {
				continue
			}
			if resp.StatusCode >= 300 {
				return nil, fmt.Errorf("invite rejected: %d %s", resp.StatusCode, resp.Reason)
			}

			ann := &Announcement{CallID: string(callID)}
			if to := resp.To(); to != nil {
				if tag, ok := to.Params.Get("tag"); ok {
					ann.RemoteTag = tag
				}
			}
			if contact := resp.Contact(); contact != nil {
				ann.RemoteContact = contact.Address.String()
			}
			ann.LocalTag = localTag
			return ann, nil

		case <-tx.Done():
			return nil, fmt.Errorf("transaction terminated without a final response")
		}
	}
}

// Terminate sends a BYE ending a dialog Announce opened.
func (a *Agent) Terminate(ctx context.Context, ann *Announcement) error {
	if ann == nil || ann.RemoteContact == "" {
		return nil
	}

	var requestURI sip.Uri
	if err := sip.ParseUri(ann.RemoteContact, &requestURI); err != nil {
		return fmt.Errorf("parse remote contact: %w", err)
	}

	bye := sip.NewRequest(sip.BYE, requestURI)
	maxFwd := sip.MaxForwardsHeader(70)
	bye.AppendHeader(&maxFwd)

	fromParams := sip.NewParams()
	fromParams.Add("tag", ann.LocalTag)
	bye.AppendHeader(&sip.FromHeader{Address: a.contactURI(), Params: fromParams})

	toParams := sip.NewParams()
	toParams.Add("tag", ann.RemoteTag)
	bye.AppendHeader(&sip.ToHeader{Address: requestURI, Params: toParams})

	callID := sip.CallIDHeader(ann.CallID)
	bye.AppendHeader(&callID)
	bye.AppendHeader(&sip.CSeqHeader{SeqNo: 2, MethodName: sip.BYE})

	byeCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	tx, err := a.Client.TransactionRequest(byeCtx, bye)
	if err != nil {
		return fmt.Errorf("send bye: %w", err)
	}

	select {
	case <-tx.Responses():
	case <-tx.Done():
	case <-byeCtx.Done():
		return byeCtx.Err()
	}
	return nil
}

func (a *Agent) timeout() time.Duration {
	if a.Timeout <= 0 {
		return 10 * time.Second
	}
	return a.Timeout
}

// announceSDP builds a minimal SDP body whose session name carries the
// RTSP resource being announced; there is no media to negotiate, this is
// a notification, not a call.
func announceSDP(originAddr, resourceURL string) []byte {
	sd := &psdp.SessionDescription{
		Version: 0,
		Origin: psdp.Origin{
			Username:       "-",
			SessionID:      0,
			SessionVersion: 0,
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: originAddr,
		},
		SessionName: psdp.SessionName(resourceURL),
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
	}
	out, err := sd.Marshal()
	if err != nil {
		return nil
	}
	return out
}

func generateID() string {
	return uuid.New().String()
}
