/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package certificates builds the *tls.Config a relay listener accepts
// connections with: the server's own key/certificate pair, the TLS version
// floor and ceiling, and an optional client CA bundle for operators that
// want mutual TLS on top of LOGON, the relay's normal authentication step.
package certificates

import "crypto/tls"

// TLSConfig accumulates the material one relay listener needs before it can
// accept connections.
type TLSConfig interface {
	// SetVersionMin and SetVersionMax bound the negotiated protocol
	// version, using crypto/tls's own uint16 constants.
	SetVersionMin(vers uint16)
	SetVersionMax(vers uint16)

	// AddCertificatePairFile loads the listener's PEM-encoded private key
	// and certificate from disk. A second call appends another pair for
	// SNI; most listeners only ever add one.
	AddCertificatePairFile(keyFile, crtFile string) error

	// AddRootCAFile loads a PEM-encoded CA bundle used to verify a peer's
	// certificate. Calling it at least once switches the listener from
	// tls.NoClientCert to tls.RequireAndVerifyClientCert.
	AddRootCAFile(pemFile string) error

	// TLS renders the accumulated material into a *tls.Config.
	TLS(serverName string) *tls.Config
}

// New returns a TLSConfig with MinVersion defaulted to TLS 1.2.
func New() TLSConfig {
	return &config{tlsMinVersion: tls.VersionTLS12}
}
