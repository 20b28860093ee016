package relay

import (
	"time"
)

// queuedEntrySize is the original's sizeof(queued_msg_t) bookkeeping
// overhead charged against the byte budget alongside the encoded payload
// and its trailing NUL — kept as a constant rather than computed from a Go
// struct (there is no equivalent fixed C layout to mirror exactly, but the
// original's intent — every entry costs more than just its payload bytes —
// is preserved).
const queuedEntrySize = 64

// QueuedMessage is one undeliverable message waiting for its recipient.
type QueuedMessage struct {
	From    Callsign
	To      Callsign
	Created time.Time
	Encoded []byte
}

func (q QueuedMessage) byteCost() uint64 {
	return uint64(queuedEntrySize + len(q.Encoded) + 1)
}

// Queue is the FIFO of undeliverable messages described in §3: bounded
// total byte size, per-entry TTL, grounded on store_msg/dequeue_msg/
// handle_queued_msgs in cpdlcd.c.
type Queue struct {
	maxBytes uint64
	ttl      time.Duration
	bytes    uint64
	entries  []QueuedMessage
}

const (
	DefaultQueueMaxBytes = 128 << 20 // 128 MiB
	DefaultQueueTTL      = 3600 * time.Second
)

func NewQueue(maxBytes uint64, ttl time.Duration) *Queue {
	if maxBytes == 0 {
		maxBytes = DefaultQueueMaxBytes
	}
	if ttl == 0 {
		ttl = DefaultQueueTTL
	}
	return &Queue{maxBytes: maxBytes, ttl: ttl}
}

// Bytes reports the queue's current accounted byte size.
func (q *Queue) Bytes() uint64 { return q.bytes }

// Len reports the number of queued entries.
func (q *Queue) Len() int { return len(q.entries) }

// Enqueue appends msg to the tail of the queue, failing with
// ErrorQueueFull if doing so would exceed the byte budget.
func (q *Queue) Enqueue(msg QueuedMessage) error {
	cost := msg.byteCost()
	if q.bytes+cost > q.maxBytes {
		return ErrorQueueFull.Error(nil)
	}
	q.entries = append(q.entries, msg)
	q.bytes += cost
	return nil
}

// Drain scans the queue head-to-tail, handing every entry whose
// destination deliver reports true to deliver, and dropping every entry
// older than the configured TTL via onDrop (metrics only; the original
// drops these silently from the peer's perspective — no error is ever
// sent back for an age-out). Matches handle_queued_msgs' single-pass
// semantics: an entry is either delivered or aged out in the same scan,
// never both.
func (q *Queue) Drain(now time.Time, deliver func(QueuedMessage) bool, onDrop func(QueuedMessage)) {
	kept := q.entries[:0]
	var keptBytes uint64

	for _, e := range q.entries {
		if deliver(e) {
			continue
		}
		if now.Sub(e.Created) > q.ttl {
			if onDrop != nil {
				onDrop(e)
			}
			continue
		}
		kept = append(kept, e)
		keptBytes += e.byteCost()
	}

	q.entries = kept
	q.bytes = keptBytes
}
