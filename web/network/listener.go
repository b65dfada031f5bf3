// Package network provides listener helpers for the admin API, including redirection of
// plain HTTP clients that hit the HTTPS port.
package network

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// tlsHandshakeRecord is the first byte of every TLS connection.
const tlsHandshakeRecord = 0x16

const sniffTimeout = 10 * time.Second

// NewTLSListener serves TLS on listener. Connections that open with plain HTTP receive a
// permanent redirect to the https:// form of the request URL and are then closed.
func NewTLSListener(listener net.Listener, cfg *tls.Config) net.Listener {
	return tls.NewListener(&redirectListener{Listener: listener}, cfg)
}

type redirectListener struct {
	net.Listener
}

func (l *redirectListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &sniffConn{Conn: conn, reader: bufio.NewReader(conn)}, nil
}

// sniffConn inspects the first byte of a connection. TLS traffic is passed through
// unchanged, anything else is answered with a redirect.
type sniffConn struct {
	net.Conn

	reader *bufio.Reader
	once   sync.Once
	err    error
}

func (c *sniffConn) sniff() {
	_ = c.Conn.SetReadDeadline(time.Now().Add(sniffTimeout))
	first, err := c.reader.Peek(1)
	_ = c.Conn.SetReadDeadline(time.Time{})
	if err != nil {
		c.err = err
		return
	}
	if first[0] == tlsHandshakeRecord {
		return
	}

	c.err = net.ErrClosed
	request, err := http.ReadRequest(c.reader)
	if err != nil {
		_ = c.Conn.Close()
		return
	}
	resp := http.Response{
		StatusCode: http.StatusPermanentRedirect,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Close:      true,
	}
	resp.Header.Set("Location", fmt.Sprintf("https://%s%s", request.Host, request.RequestURI))
	_ = resp.Write(c.Conn)
	_ = c.Conn.Close()
}

func (c *sniffConn) Read(buf []byte) (int, error) {
	c.once.Do(c.sniff)
	if c.err != nil {
		return 0, c.err
	}
	return c.reader.Read(buf)
}
