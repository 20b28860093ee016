package tracker

import "github.com/cpdlc-go/cpdlcd/errors"

const (
	ErrorUnknownThread errors.CodeError = iota + errors.MinPkgTracker
	ErrorFinalThread
	ErrorNoBuckets
)

func init() {
	errors.RegisterIdFctMessage(ErrorUnknownThread, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorUnknownThread:
		return "no such thread id"
	case ErrorFinalThread:
		return "thread is already in a final status"
	case ErrorNoBuckets:
		return "thread has no buckets"
	}
	return ""
}
