package relay

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cpdlc-go/cpdlcd/internal/cpdlcmsg"
)

// maintenanceInterval replaces the original's POLL_TIMEOUT: both the queue
// age-out scan and the blocklist reload check run on this cadence (§4.1
// step 4).
const maintenanceInterval = 1 * time.Second

// Engine is the single coordinating goroutine that owns the router, the
// queue, the connection set, and the blocklist cache — the direct Go
// analogue of cpdlcd.c's single-threaded poll_sockets/handle_queued_msgs/
// close_blocked_conns loop (§4.1, §5). Every field below is mutated only
// from the goroutine running Run; per-connection I/O happens on separate
// goroutines that report back over events.
type Engine struct {
	atc       *ATCRegistry
	router    *Router
	queue     *Queue
	blocklist *Blocklist
	log       *logrus.Entry
	metrics   Metrics

	listeners []*Listener
	acceptCh  chan net.Conn
	events    chan connEvent

	conns map[PeerKey]*Connection

	mu sync.Mutex // guards listeners slice during AddListener before Run starts
}

func NewEngine(atc *ATCRegistry, queue *Queue, blocklist *Blocklist, log *logrus.Entry, metrics Metrics) *Engine {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Engine{
		atc:       atc,
		router:    NewRouter(),
		queue:     queue,
		blocklist: blocklist,
		log:       log,
		metrics:   metrics,
		acceptCh:  make(chan net.Conn, 16),
		events:    make(chan connEvent, 256),
		conns:     make(map[PeerKey]*Connection),
	}
}

// AddListener binds addr, failing with ErrorDuplicateListener if another
// listener already claims it (listen_sock_compar's uniqueness rule).
func (e *Engine) AddListener(l *Listener) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.listeners {
		if existing.Addr == l.Addr {
			return ErrorDuplicateListener.Error(nil)
		}
	}
	e.listeners = append(e.listeners, l)
	return nil
}

// Run drives the engine until ctx is canceled. It starts one accept
// goroutine per listener, then loops over incoming accepts, per-connection
// events, and the maintenance ticker — the select-based replacement for
// the original's poll(2) call (§4.1).
func (e *Engine) Run(ctx context.Context) {
	for _, l := range e.listeners {
		go e.acceptLoop(ctx, l)
	}

	e.logStartupBanner()

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case conn := <-e.acceptCh:
			e.handleAccept(ctx, conn)
		case ev := <-e.events:
			e.handleEvent(ev)
		case <-ticker.C:
			e.maintenance()
		}
	}
}

func (e *Engine) logStartupBanner() {
	if e.log == nil {
		return
	}
	addrs := make([]string, 0, len(e.listeners))
	for _, l := range e.listeners {
		addrs = append(addrs, l.Addr)
	}
	e.log.WithField("listeners", addrs).
		WithField("atc_count", e.atc.Len()).
		Info("cpdlcd relay starting")
}

func (e *Engine) acceptLoop(ctx context.Context, l *Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if e.log != nil {
				e.log.WithError(err).WithField("listener", l.Addr).Warn("accept error")
			}
			return
		}
		select {
		case e.acceptCh <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (e *Engine) handleAccept(ctx context.Context, netConn net.Conn) {
	e.metrics.ConnAccepted()

	if ip := ipFromAddr(netConn.RemoteAddr()); ip != nil && e.blocklist != nil && e.blocklist.Check(ip) {
		e.metrics.ConnBlocked()
		if e.log != nil {
			e.log.WithField("peer", netConn.RemoteAddr()).Info("incoming connection blocked: address on blocklist")
		}
		netConn.Close()
		return
	}

	c := NewConnection(netConn)
	key := c.PeerKey()
	if _, dup := e.conns[key]; dup {
		if e.log != nil {
			e.log.WithField("peer", key).Warn("duplicate connection encountered")
		}
		netConn.Close()
		return
	}

	e.conns[key] = c
	e.metrics.ConnOpened()
	c.Start(ctx, e.events)
}

func (e *Engine) handleEvent(ev connEvent) {
	switch ev.kind {
	case eventData:
		e.processInput(ev.conn, ev.data)
	case eventClosed, eventWriteFailed:
		e.closeConnection(ev.conn)
	case eventWriteDone:
		// no-op; reserved for future backpressure metrics
	}
}

// processInput implements §4.2's per-read validation followed by §4.3's
// framing loop.
func (e *Engine) processInput(c *Connection, data []byte) {
	for _, b := range data {
		if !cpdlcmsg.ValidateByte(b) {
			if e.log != nil {
				e.log.WithField("peer", c.PeerKey()).Warn("invalid input character: data MUST be plain text")
			}
			e.closeConnection(c)
			return
		}
	}

	if len(c.inbuf)+len(data) > c.MaxInbufSize() {
		if e.log != nil {
			e.log.WithField("peer", c.PeerKey()).Warn("input buffer overflow")
		}
		e.closeConnection(c)
		return
	}
	c.inbuf = append(c.inbuf, data...)

	e.frameAndDispatch(c)
}

func (e *Engine) frameAndDispatch(c *Connection) {
	consumedTotal := 0
	for {
		msg, consumed, ok := cpdlcmsg.Decode(c.inbuf[consumedTotal:])
		if !ok {
			break
		}
		e.dispatch(c, msg)
		consumedTotal += consumed
	}
	if consumedTotal == 0 {
		return
	}
	copy(c.inbuf, c.inbuf[consumedTotal:])
	c.inbuf = c.inbuf[:len(c.inbuf)-consumedTotal]
}

// dispatch implements message dispatch (§4.4).
func (e *Engine) dispatch(c *Connection, m *cpdlcmsg.Message) {
	if !c.LogonComplete && !m.IsLogon {
		e.sendError(c, m, ErrorLogonRequired.Message())
		return
	}

	if m.IsLogon {
		if c.LogonComplete {
			e.router.Unregister(c.From, c)
		}
		c.To = Callsign(m.To)
		c.From = Callsign(m.From)
		c.LogonComplete = true

		if c.From == "" {
			e.sendError(c, m, ErrorLogonMissingFrom.Message())
			return
		}
		e.router.Register(c.From, c)
		return
	}

	to := Callsign(m.To)
	if to == "" {
		to = c.To
	}
	if to == "" {
		e.sendError(c, m, ErrorMissingDestination.Message())
		return
	}
	m.From = string(c.From)

	targets := e.router.Lookup(to)
	if len(targets) == 0 {
		qmsg := QueuedMessage{From: c.From, To: to, Created: time.Now(), Encoded: cpdlcmsg.Encode(m)}
		if err := e.queue.Enqueue(qmsg); err != nil {
			e.sendError(c, m, ErrorQueueFull.Message())
			return
		}
		e.metrics.MessageRouted(true)
		return
	}

	encoded := cpdlcmsg.Encode(m)
	for _, tgt := range targets {
		tgt.Send(encoded)
	}
	e.metrics.MessageRouted(false)
}

// sendError implements §4.6: the reply carries a single error segment,
// directionally opposite the offending message.
func (e *Engine) sendError(c *Connection, orig *cpdlcmsg.Message, text string) {
	seg := cpdlcmsg.Segment{Text: text}
	var mrn uint32 = cpdlcmsg.InvalidSeqNr

	if orig != nil && len(orig.Segs) > 0 && orig.Segs[0].Info.IsDL {
		seg.Info = cpdlcmsg.SegInfo{IsDL: false, Type: cpdlcmsg.MsgUM159Error}
		mrn = orig.Min
	} else if orig != nil {
		seg.Info = cpdlcmsg.SegInfo{IsDL: true, Type: cpdlcmsg.MsgDM62Error}
		mrn = orig.Min
	} else {
		seg.Info = cpdlcmsg.SegInfo{IsDL: false, Type: cpdlcmsg.MsgUM159Error}
	}

	reply := cpdlcmsg.NewSingleSeg("", "", seg)
	reply.Mrn = mrn
	c.Send(cpdlcmsg.Encode(reply))
}

func (e *Engine) closeConnection(c *Connection) {
	if c.LogonComplete {
		e.router.Unregister(c.From, c)
	}
	delete(e.conns, c.PeerKey())
	c.Close()
	e.metrics.ConnClosed()
}

// maintenance implements §4.1 step 4 and §4.7: drain deliverable queue
// entries, age out stale ones, then re-check the blocklist if it reloaded.
func (e *Engine) maintenance() {
	now := time.Now()
	e.queue.Drain(now, func(q QueuedMessage) bool {
		targets := e.router.Lookup(q.To)
		if len(targets) == 0 {
			return false
		}
		for _, tgt := range targets {
			tgt.Send(q.Encoded)
		}
		e.metrics.MessageRouted(true)
		return true
	}, func(QueuedMessage) {
		e.metrics.QueueDropped()
	})
	e.metrics.QueueDepth(e.queue.Len(), e.queue.Bytes())

	if e.blocklist != nil && e.blocklist.Reloaded() {
		e.closeBlockedConns()
	}
}

func (e *Engine) closeBlockedConns() {
	for _, c := range e.conns {
		ip := ipFromAddr(c.netConn.RemoteAddr())
		if ip != nil && e.blocklist.Check(ip) {
			e.closeConnection(c)
		}
	}
}

func (e *Engine) shutdown() {
	for _, l := range e.listeners {
		l.Close()
	}
	for _, c := range e.conns {
		c.Close()
	}
	if e.blocklist != nil {
		e.blocklist.Close()
	}
}

func ipFromAddr(addr net.Addr) net.IP {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}
