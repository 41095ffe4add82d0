// Package quic carries a secure channel over a single bidirectional QUIC
// stream. The dialer opens the stream; the listener accepts it once the
// first bytes arrive.
package quic

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"
)

const (
	// KeepAlivePeriod stops idle chats from hitting the QUIC idle timeout.
	KeepAlivePeriod = 10 * time.Second

	// CloseLinger bounds how long Close waits for the peer to read the
	// end of the stream before tearing the connection down.
	CloseLinger = 500 * time.Millisecond
)

func newConfig() *q.Config {
	return &q.Config{KeepAlivePeriod: KeepAlivePeriod}
}

type Listener struct {
	inner *q.Listener
}

func Listen(addr string) (*Listener, error) {
	tlsConf, err := newTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, newConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln}, nil
}

// Accept waits for a connection and its first stream.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	conn, err := l.inner.Accept(ctx)
	if err != nil {
		return nil, err
	}
	st, err := conn.AcceptStream(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "no stream")
		return nil, err
	}
	return &Conn{conn: conn, stream: st}, nil
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
	tlsConf, err := newTLSConfig()
	if err != nil {
		return nil, err
	}
	conn, err := q.DialAddr(ctx, addr, tlsConf, newConfig())
	if err != nil {
		return nil, err
	}
	st, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "open stream")
		return nil, err
	}
	return &Conn{conn: conn, stream: st}, nil
}

// Conn is one QUIC connection plus the stream the channel runs on.
type Conn struct {
	conn   q.Connection
	stream q.Stream

	closeOnce sync.Once
	closeErr  error
}

func (c *Conn) Read(p []byte) (int, error) { return c.stream.Read(p) }

func (c *Conn) Write(p []byte) (int, error) { return c.stream.Write(p) }

func (c *Conn) SetDeadline(t time.Time) error { return c.stream.SetDeadline(t) }

func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Duplicate returns the receive side of the stream. Closing it cancels
// reads without affecting writes.
func (c *Conn) Duplicate() (io.ReadCloser, error) {
	return &readHalf{stream: c.stream}, nil
}

// Close finishes the send side, gives the peer up to CloseLinger to drain
// it and hang up, then closes the connection.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.stream.Close()
		select {
		case <-c.conn.Context().Done():
		case <-time.After(CloseLinger):
		}
		if err := c.conn.CloseWithError(0, ""); c.closeErr == nil {
			c.closeErr = err
		}
	})
	return c.closeErr
}

type readHalf struct {
	stream q.Stream
	once   sync.Once
}

func (r *readHalf) Read(p []byte) (int, error) { return r.stream.Read(p) }

func (r *readHalf) Close() error {
	r.once.Do(func() { r.stream.CancelRead(0) })
	return nil
}
