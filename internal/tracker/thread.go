package tracker

import (
	"time"

	"github.com/cpdlc-go/cpdlcd/internal/cpdlcmsg"
)

// ThreadID identifies a thread within one Tracker instance.
type ThreadID uint32

// NoThreadID is the sentinel passed to Send to request a brand new thread.
const NoThreadID ThreadID = 0

// Bucket is a single message inside a thread, sent or received.
type Bucket struct {
	Msg   *cpdlcmsg.Message
	Token Token
	Sent  bool
	Hours int
	Mins  int
	Time  time.Time
}

// Thread is an ordered run of buckets sharing one conversation.
type Thread struct {
	ID      ThreadID
	Status  Status
	Buckets []Bucket
	Dirty   bool
}

func (t *Thread) first() (*Bucket, bool) {
	if len(t.Buckets) == 0 {
		return nil, false
	}
	return &t.Buckets[0], true
}

func (t *Thread) last() (*Bucket, bool) {
	if len(t.Buckets) == 0 {
		return nil, false
	}
	return &t.Buckets[len(t.Buckets)-1], true
}

// minSegTimeout returns the smallest nonzero per-segment timeout across
// every bucket in the thread, mirroring thr_get_timeout.
func (t *Thread) minSegTimeout() uint32 {
	var best uint32
	for _, b := range t.Buckets {
		if b.Msg == nil {
			continue
		}
		if mt := b.Msg.MinSegTimeout(); mt != 0 && (best == 0 || mt < best) {
			best = mt
		}
	}
	return best
}
