// Package tcp is the plain TCP transport for secure channels.
package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

var ErrNotTCP = errors.New("tcp: connection is not a TCP connection")

type Listener struct {
	inner *net.TCPListener
}

func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return nil, ErrNotTCP
	}
	return &Listener{inner: tl}, nil
}

// Accept waits for one inbound connection. Cancelling ctx unblocks it
// without closing the listener.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = l.inner.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() {
		_ = l.inner.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c, err := l.inner.AcceptTCP()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return &Conn{TCPConn: c}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error { return l.inner.Close() }

func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	tc, ok := c.(*net.TCPConn)
	if !ok {
		_ = c.Close()
		return nil, ErrNotTCP
	}
	return &Conn{TCPConn: tc}, nil
}

// Conn is a TCP connection usable as a session transport.
type Conn struct {
	*net.TCPConn
}

// Duplicate returns the read direction as a separate handle. Closing it
// shuts down reads so a blocked reader returns, while writes keep working.
func (c *Conn) Duplicate() (io.ReadCloser, error) {
	return &readHalf{conn: c.TCPConn}, nil
}

type readHalf struct {
	conn *net.TCPConn
	once sync.Once
	err  error
}

func (r *readHalf) Read(p []byte) (int, error) { return r.conn.Read(p) }

func (r *readHalf) Close() error {
	r.once.Do(func() { r.err = r.conn.CloseRead() })
	return r.err
}
