package relay

import (
	"context"
	"net"
	"sync/atomic"
)

var errWriteBackpressure = ErrorWriteBackpressure.Error(nil)

const (
	// MaxInbufPreLogon and MaxInbufPostLogon bound Connection.inbuf,
	// mirroring MAX_BUF_SZ_NO_LOGON / MAX_BUF_SZ in cpdlcd.c.
	MaxInbufPreLogon  = 128
	MaxInbufPostLogon = 8192

	readChunkSize = 4096
)

// eventKind tags a connEvent so the engine's select loop can dispatch
// without type-asserting the payload.
type eventKind uint8

const (
	eventData eventKind = iota
	eventClosed
	eventWriteDone
	eventWriteFailed
)

// connEvent is what a connection's read/write pump goroutines report back
// to the engine goroutine — the channel-fed replacement for the readiness
// bits (POLLIN/POLLOUT) the original's poll() loop inspected directly
// (§4.1).
type connEvent struct {
	conn *Connection
	kind eventKind
	data []byte
	err  error
}

// Connection is per-peer state: socket, TLS session (via the net.Conn,
// which is a *tls.Conn once the engine wraps it), buffers, and logon
// identity — the Go analogue of conn_t in cpdlcd.c.
//
// inbuf is owned exclusively by the engine goroutine. outbuf does not
// exist as a byte slice here the way it does in the original: Go's
// crypto/tls Write either fully succeeds or errors, so there is no
// "partial send" state to buffer around (§4.5) — pending writes instead
// queue on writeCh, drained in order by the write pump goroutine.
type Connection struct {
	netConn net.Conn
	addr    net.Addr

	From          Callsign
	To            Callsign
	LogonComplete bool

	inbuf []byte

	writeCh chan []byte
	events  chan<- connEvent
	closed  int32
	done    chan struct{}
}

// PeerKey uniquely identifies a connection's origin for duplicate
// detection, the Go analogue of conn_compar's addr/addr_len/family
// comparison (net.Addr.String() already encodes family+address+port).
type PeerKey string

func NewConnection(netConn net.Conn) *Connection {
	return &Connection{
		netConn: netConn,
		addr:    netConn.RemoteAddr(),
		writeCh: make(chan []byte, 64),
		done:    make(chan struct{}),
	}
}

func (c *Connection) PeerKey() PeerKey {
	return PeerKey(c.addr.String())
}

func (c *Connection) MaxInbufSize() int {
	if c.LogonComplete {
		return MaxInbufPostLogon
	}
	return MaxInbufPreLogon
}

// Start launches the read and write pumps. Every event they observe is
// sent on events; the engine goroutine is the sole consumer.
func (c *Connection) Start(ctx context.Context, events chan<- connEvent) {
	c.events = events
	go c.readPump(ctx, events)
	go c.writePump(ctx, events)
}

func (c *Connection) readPump(ctx context.Context, events chan<- connEvent) {
	buf := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		n, err := c.netConn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case events <- connEvent{conn: c, kind: eventData, data: chunk}:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case events <- connEvent{conn: c, kind: eventClosed, err: err}:
			case <-ctx.Done():
			case <-c.done:
			}
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context, events chan<- connEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case chunk, ok := <-c.writeCh:
			if !ok {
				return
			}
			_, err := c.netConn.Write(chunk)
			if err != nil {
				select {
				case events <- connEvent{conn: c, kind: eventWriteFailed, err: err}:
				case <-ctx.Done():
				case <-c.done:
				}
				return
			}
			select {
			case events <- connEvent{conn: c, kind: eventWriteDone}:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
		}
	}
}

// Send enqueues data for the write pump. It never blocks the engine
// goroutine on socket I/O (§5): a full writeCh means the peer isn't
// draining fast enough, so the send is dropped and the connection is
// reported for teardown instead of stalling every other connection behind
// one slow reader.
func (c *Connection) Send(data []byte) {
	if atomic.LoadInt32(&c.closed) != 0 {
		return
	}
	select {
	case c.writeCh <- data:
	default:
		if c.events != nil {
			select {
			case c.events <- connEvent{conn: c, kind: eventWriteFailed, err: errWriteBackpressure}:
			default:
			}
		}
	}
}

// Close tears down the connection exactly once; grounded on close_conn's
// ordering (remove from router happens in the engine before Close is
// called, since only the engine knows the router).
func (c *Connection) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	close(c.done)
	c.netConn.Close()
}
