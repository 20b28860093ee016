package relay

import (
	"crypto/tls"
	"net"
)

// Listener is one bound TCP endpoint, the Go analogue of listen_sock_t.
// Uniqueness is enforced by address string, mirroring listen_sock_compar's
// addr/addr_len/family comparison.
type Listener struct {
	Addr string
	ln   net.Listener
}

// NewListener binds addr and wraps it with tlsConfig, so every accepted
// net.Conn already negotiates TLS on first Read/Write — Go's crypto/tls
// performing the handshake implicitly inside the connection in place of
// the original's explicit gnutls_init/gnutls_handshake dance (§4.2).
func NewListener(addr string, tlsConfig *tls.Config) (*Listener, error) {
	ln, err := tls.Listen("tcp", addr, tlsConfig)
	if err != nil {
		return nil, err
	}
	return &Listener{Addr: addr, ln: ln}, nil
}

func (l *Listener) Accept() (net.Conn, error) {
	return l.ln.Accept()
}

func (l *Listener) Close() error {
	return l.ln.Close()
}
