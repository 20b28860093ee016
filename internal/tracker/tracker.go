// Package tracker implements the CPDLC message-thread tracker: it groups
// individual messages into threads, correlates replies via MIN/MRN, and
// recomputes each thread's lifecycle status as new buckets arrive.
package tracker

import (
	"sync"
	"time"

	"github.com/cpdlc-go/cpdlcd/errors"
	"github.com/cpdlc-go/cpdlcd/internal/cpdlcmsg"
)

// UpdateFunc is invoked after one or more threads changed, with the lock
// already released (§4.11: "the lock is never held across a subscriber
// callback invocation").
type UpdateFunc func(tr *Tracker, updated []ThreadID)

// TimeFunc returns the local hour/minute pair used to stamp a bucket for
// display purposes, distinct from the epoch clock used for timeouts.
type TimeFunc func() (hours, mins int)

// StatusReporter receives a +1 when a thread enters a status and a -1 when
// it leaves one, so an embedding program can keep a "threads by status"
// gauge in sync with recompute's transitions without the tracker knowing
// anything about Prometheus. internal/metrics.Collectors satisfies this.
type StatusReporter interface {
	ThreadStatus(status string, delta int)
}

type noopStatusReporter struct{}

func (noopStatusReporter) ThreadStatus(string, int) {}

func defaultTimeFunc() (int, int) {
	now := time.Now()
	return now.Hour(), now.Minute()
}

// Tracker owns a set of threads and the monotonic MIN counter used to stamp
// outbound messages. One Tracker corresponds to one transport client.
type Tracker struct {
	mu sync.Mutex

	transport Transport
	threads   []*Thread
	nextID    ThreadID
	min       uint32

	updateCB UpdateFunc
	userData interface{}
	timeFunc TimeFunc
	clock    func() time.Time
	reporter StatusReporter
}

// New creates a tracker driven by transport. The default clock is
// time.Now; tests should override it via SetClock for determinism (§9).
func New(transport Transport) *Tracker {
	return &Tracker{
		transport: transport,
		nextID:    1,
		timeFunc:  defaultTimeFunc,
		clock:     time.Now,
		reporter:  noopStatusReporter{},
	}
}

// SetStatusReporter wires r to receive a delta every time recompute changes
// a thread's status. Passing nil restores the no-op reporter.
func (tr *Tracker) SetStatusReporter(r StatusReporter) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if r == nil {
		r = noopStatusReporter{}
	}
	tr.reporter = r
}

func (tr *Tracker) SetUpdateCB(cb UpdateFunc) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.updateCB = cb
}

func (tr *Tracker) SetUserData(v interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.userData = v
}

// UserData reads a pointer-sized value; per §5 this does not need the lock,
// but taking it anyway costs nothing and avoids a data race under -race.
func (tr *Tracker) UserData() interface{} {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.userData
}

func (tr *Tracker) SetTimeFunc(f TimeFunc) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.timeFunc = f
}

func (tr *Tracker) SetClock(f func() time.Time) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.clock = f
}

func (tr *Tracker) findThread(id ThreadID) *Thread {
	for _, t := range tr.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (tr *Tracker) newThread() *Thread {
	t := &Thread{ID: tr.nextID, Status: StatusNone}
	tr.nextID++
	tr.threads = append(tr.threads, t)
	return t
}

// findByMRN implements msg_thr_find_by_mrn: newest thread first, tail bucket
// first within a thread, skipping CLOSED threads.
func (tr *Tracker) findByMRN(msg *cpdlcmsg.Message) *Thread {
	if msg.Mrn == cpdlcmsg.InvalidSeqNr {
		return nil
	}
	for i := len(tr.threads) - 1; i >= 0; i-- {
		t := tr.threads[i]
		if t.Status == StatusClosed {
			continue
		}
		for j := len(t.Buckets) - 1; j >= 0; j-- {
			b := &t.Buckets[j]
			if b.Msg == nil || b.Msg.Min != msg.Mrn {
				continue
			}
			if msg.IsDisregard() {
				if !b.Sent {
					return t
				}
			} else if b.Sent {
				return t
			}
		}
	}
	return nil
}

// recompute applies the status table of §4.10. It must be called with the
// lock held, and may itself enqueue an auto-reply via sendLocked.
func (tr *Tracker) recompute(t *Thread) {
	if t.Status.IsFinal() {
		return
	}

	first, ok := t.first()
	if !ok {
		return
	}
	last, _ := t.last()
	timeout := t.minSegTimeout()
	now := tr.clock()
	before := t.Status

	defer func() {
		if t.Status != before {
			tr.reporter.ThreadStatus(before.String(), -1)
			tr.reporter.ThreadStatus(t.Status.String(), 1)
		}
	}()

	switch {
	case first == last && last.Sent && !last.Msg.RequiresResponse():
		t.Status = StatusClosed

	case last.Sent && last.Msg.IsDownlinkRequest():
		switch tr.transport.MsgStatus(last.Token) {
		case TokenStatusSending:
			t.Status = StatusPending
		case TokenStatusSendFailed:
			t.Status = StatusFailed
		default:
			t.Status = StatusOpen
		}

	case last.Msg.IsStandby():
		t.Status = StatusStandby

	case last.Msg.IsAccepted():
		t.Status = StatusAccepted

	case last.Msg.IsRejected():
		t.Status = StatusRejected

	case last.Msg.IsRogerOrLinkMgmt():
		t.Status = StatusClosed

	case last.Msg.RequiresWilcoUnableOrSimilar() && t.Status != StatusStandby &&
		timeout != 0 && uint32(now.Sub(last.Time).Seconds()) > timeout:
		reply := cpdlcmsg.NewSingleSeg("", "", cpdlcmsg.Segment{
			Info: cpdlcmsg.SegInfo{IsDL: true, Type: cpdlcmsg.MsgDM62Error},
			Text: "TIMEDOUT",
		})
		reply.Mrn = last.Msg.Min
		tr.sendLocked(reply, t.ID)
		t.Status = StatusTimedOut

	case last.Msg.IsDisregard():
		t.Status = StatusDisregard

	case last.Msg.IsStandaloneError():
		t.Status = StatusError

	case !tr.transport.LogonComplete():
		t.Dirty = false
		t.Status = StatusConnEnded
	}
}

// sendLocked implements msglist_send_impl: assign MRN/MIN, hand the message
// to the transport, append a sent bucket. Must run with the lock held.
func (tr *Tracker) sendLocked(msg *cpdlcmsg.Message, id ThreadID) (*Thread, errors.Error) {
	var t *Thread
	if id == NoThreadID {
		t = tr.newThread()
		t.Status = StatusOpen
		tr.reporter.ThreadStatus(StatusOpen.String(), 1)
	} else {
		t = tr.findThread(id)
		if t == nil {
			return nil, errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
		}
		if t.Status.IsFinal() {
			return nil, errors.New(ErrorFinalThread.Uint16(), ErrorFinalThread.Message())
		}
	}

	for i := len(t.Buckets) - 1; i >= 0; i-- {
		b := t.Buckets[i]
		if b.Msg != nil && len(b.Msg.Segs) > 0 && len(msg.Segs) > 0 &&
			b.Msg.Segs[0].Info.IsDL != msg.Segs[0].Info.IsDL {
			msg.Mrn = b.Msg.Min
			break
		}
	}

	msg.Min = tr.min
	tr.min++

	hours, mins := tr.timeFunc()
	bucket := Bucket{
		Msg:   msg,
		Token: tr.transport.SendMsg(msg),
		Sent:  true,
		Hours: hours,
		Mins:  mins,
		Time:  tr.clock(),
	}
	t.Buckets = append(t.Buckets, bucket)

	return t, nil
}

// Send implements cpdlc_msglist_send: id == NoThreadID creates a new
// thread; otherwise id must name a non-final thread.
func (tr *Tracker) Send(msg *cpdlcmsg.Message, id ThreadID) (ThreadID, errors.Error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, err := tr.sendLocked(msg, id)
	if err != nil {
		return NoThreadID, err
	}
	tr.recompute(t)
	return t.ID, nil
}

// Receive implements the receive callback's body for a single inbound
// message: correlate, append, recompute, then report which thread changed.
// Receive itself invokes the update callback, if one is set, with that
// thread's ID after releasing the tracker's lock, and returns the same ID.
func (tr *Tracker) Receive(msg *cpdlcmsg.Message) ThreadID {
	tr.mu.Lock()

	t := tr.findByMRN(msg)
	if t == nil {
		t = tr.newThread()
	}

	hours, mins := tr.timeFunc()
	t.Buckets = append(t.Buckets, Bucket{
		Msg:   msg,
		Sent:  false,
		Hours: hours,
		Mins:  mins,
		Time:  tr.clock(),
	})
	t.Dirty = true
	tr.recompute(t)

	id := t.ID
	cb := tr.updateCB
	tr.mu.Unlock()

	if cb != nil {
		cb(tr, []ThreadID{id})
	}
	return id
}

// ThreadIDs lists every thread ID, optionally skipping threads that are
// both final and not dirty (the UI's "ignore closed" filter).
func (tr *Tracker) ThreadIDs(ignoreFinalNotDirty bool) []ThreadID {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	ids := make([]ThreadID, 0, len(tr.threads))
	for _, t := range tr.threads {
		if ignoreFinalNotDirty && !t.Dirty && t.Status.IsFinal() {
			continue
		}
		ids = append(ids, t.ID)
	}
	return ids
}

func (tr *Tracker) Status(id ThreadID) (status Status, dirty bool, err errors.Error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.findThread(id)
	if t == nil {
		return StatusNone, false, errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
	}
	return t.Status, t.Dirty, nil
}

func (tr *Tracker) IsDone(id ThreadID) (bool, errors.Error) {
	status, _, err := tr.Status(id)
	if err != nil {
		return false, err
	}
	return status.IsFinal(), nil
}

func (tr *Tracker) MsgCount(id ThreadID) (int, errors.Error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.findThread(id)
	if t == nil {
		return 0, errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
	}
	return len(t.Buckets), nil
}

func (tr *Tracker) Msg(id ThreadID, n int) (Bucket, errors.Error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.findThread(id)
	if t == nil {
		return Bucket{}, errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
	}
	if n < 0 || n >= len(t.Buckets) {
		return Bucket{}, errors.New(ErrorNoBuckets.Uint16(), ErrorNoBuckets.Message())
	}
	return t.Buckets[n], nil
}

func (tr *Tracker) MarkSeen(id ThreadID) errors.Error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.findThread(id)
	if t == nil {
		return errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
	}
	t.Dirty = false
	return nil
}

func (tr *Tracker) RemoveThread(id ThreadID) errors.Error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for i, t := range tr.threads {
		if t.ID == id {
			tr.threads = append(tr.threads[:i], tr.threads[i+1:]...)
			return nil
		}
	}
	return errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
}

func (tr *Tracker) CloseThread(id ThreadID) errors.Error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t := tr.findThread(id)
	if t == nil {
		return errors.New(ErrorUnknownThread.Uint16(), ErrorUnknownThread.Message())
	}
	if !t.Status.IsFinal() {
		t.Status = StatusClosed
	}
	return nil
}

// Tick re-runs status recomputation over every thread, so that
// uplink-request timeouts fire even without new inbound traffic. Nothing
// in this module calls it; the embedding program calls it periodically.
func (tr *Tracker) Tick() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	for _, t := range tr.threads {
		tr.recompute(t)
	}
}
