package relay

import "github.com/cpdlc-go/cpdlcd/errors"

const (
	ErrorDuplicateATC errors.CodeError = iota + errors.MinPkgRelay
	ErrorDuplicateListener
	ErrorInvalidListenAddr
	ErrorQueueFull
	ErrorDuplicatePeer
	ErrorLogonRequired
	ErrorLogonMissingFrom
	ErrorMissingDestination
	ErrorInvalidByte
	ErrorBufferOverflow
	ErrorDecodeFailed
	ErrorWriteBackpressure
)

func init() {
	errors.RegisterIdFctMessage(ErrorDuplicateATC, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorDuplicateATC:
		return "duplicate ATC registry entry"
	case ErrorDuplicateListener:
		return "address already used on another listener"
	case ErrorInvalidListenAddr:
		return "invalid listen directive"
	case ErrorQueueFull:
		return "TOO MANY QUEUED MESSAGES"
	case ErrorDuplicatePeer:
		return "duplicate connection from the same peer address"
	case ErrorLogonRequired:
		return "LOGON REQUIRED"
	case ErrorLogonMissingFrom:
		return "LOGON REQUIRES FROM= HEADER"
	case ErrorMissingDestination:
		return "MESSAGE MISSING TO= HEADER"
	case ErrorInvalidByte:
		return "invalid input character: data MUST be plain text"
	case ErrorBufferOverflow:
		return "input buffer overflow"
	case ErrorDecodeFailed:
		return "error decoding message from client"
	case ErrorWriteBackpressure:
		return "write queue full: peer not draining fast enough"
	}
	return ""
}
