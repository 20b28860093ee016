package tracker

import "github.com/cpdlc-go/cpdlcd/internal/cpdlcmsg"

// Token is an opaque handle a Transport hands back for a sent message, used
// later to query that message's delivery status. The transport-level client
// itself is an external collaborator (§1); only this interface is in scope.
type Token interface{}

// TokenStatus is the delivery status of a previously sent message.
type TokenStatus uint8

const (
	TokenStatusUnknown TokenStatus = iota
	TokenStatusSending
	TokenStatusSent
	TokenStatusSendFailed
)

// Transport is the client-side collaborator the tracker drives: it sends
// messages, reports their delivery status, and reports logon state so the
// tracker can detect a dropped connection (CONN_ENDED).
type Transport interface {
	SendMsg(msg *cpdlcmsg.Message) Token
	MsgStatus(tok Token) TokenStatus
	LogonComplete() bool
}
