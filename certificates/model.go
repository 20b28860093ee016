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

package certificates

import (
	"crypto/tls"
	"crypto/x509"
	"os"
)

type config struct {
	certs         []tls.Certificate
	clientCAs     *x509.CertPool
	tlsMinVersion uint16
	tlsMaxVersion uint16
}

func (c *config) SetVersionMin(vers uint16) {
	c.tlsMinVersion = vers
}

func (c *config) SetVersionMax(vers uint16) {
	c.tlsMaxVersion = vers
}

func (c *config) AddCertificatePairFile(keyFile, crtFile string) error {
	if keyFile == "" || crtFile == "" {
		return ErrorParamsEmpty.Error()
	}

	crt, err := tls.LoadX509KeyPair(crtFile, keyFile)
	if err != nil {
		return ErrorCertKeyPairLoad.Error(err)
	}

	c.certs = append(c.certs, crt)
	return nil
}

func (c *config) AddRootCAFile(pemFile string) error {
	if pemFile == "" {
		return ErrorParamsEmpty.Error()
	}

	pem, err := os.ReadFile(pemFile)
	if err != nil {
		return ErrorFileRead.Error(err)
	} else if len(pem) == 0 {
		return ErrorFileEmpty.Error()
	}

	if c.clientCAs == nil {
		c.clientCAs = x509.NewCertPool()
	}
	if !c.clientCAs.AppendCertsFromPEM(pem) {
		return ErrorCertAppend.Error()
	}

	return nil
}

// TLS renders the accumulated certificates and version bounds into a
// *tls.Config for serverName (the SNI name a listener advertises; pass "" for
// a listener with a single certificate pair). A client CA bundle loaded
// through AddRootCAFile flips the listener from tls.NoClientCert to
// tls.RequireAndVerifyClientCert.
func (c *config) TLS(serverName string) *tls.Config {
	tc := &tls.Config{
		Certificates: c.certs,
		MinVersion:   c.tlsMinVersion,
		MaxVersion:   c.tlsMaxVersion,
		ServerName:   serverName,
	}

	if c.clientCAs != nil {
		tc.ClientCAs = c.clientCAs
		tc.ClientAuth = tls.RequireAndVerifyClientCert
	} else {
		tc.ClientAuth = tls.NoClientCert
	}

	return tc
}
