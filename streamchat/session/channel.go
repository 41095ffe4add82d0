package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat/crypto"
	"github.com/TheusHen/streamchat/streamchat/fingerprint"
	"github.com/TheusHen/streamchat/streamchat/protocol"
)

// State is the lifecycle position of a channel.
type State int32

const (
	StateDisconnected State = iota
	StateHandshaking
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateHandshaking:
		return "HANDSHAKING"
	case StateEstablished:
		return "ESTABLISHED"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport is a duplex byte stream. Implementations must allow one Read and
// one Write to be in progress at the same time, as net.Conn does.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Duplicator is implemented by transports that hand out a separate read
// handle. Closing the handle stops reads without affecting writes.
type Duplicator interface {
	Duplicate() (io.ReadCloser, error)
}

// Channel is an established secure channel. Each direction has its own
// keystream, both seeded from the shared secret: outbound is owned by the
// sending goroutine and inbound by the receiving one, so neither is locked.
type Channel struct {
	conn      Transport
	reader    io.ReadCloser
	readerDup bool

	outbound *crypto.Keystream
	inbound  *crypto.Keystream

	result   Result
	observer Observer
	log      logrus.FieldLogger

	state     atomic.Int32
	running   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Establish runs the handshake over conn and returns a channel ready to Run.
// On failure conn is closed.
func Establish(ctx context.Context, conn Transport, opts Options) (*Channel, error) {
	opts = opts.withDefaults()
	c := &Channel{
		conn:     conn,
		observer: opts.Observer,
		log:      opts.Logger,
	}
	c.setState(StateDisconnected)
	c.setState(StateHandshaking)

	res, err := PerformHandshake(ctx, conn, opts)
	if err != nil {
		_ = conn.Close()
		c.setState(StateClosed)
		return nil, err
	}

	reader, dup, err := readHandle(conn)
	if err != nil {
		_ = conn.Close()
		c.setState(StateClosed)
		return nil, &HandshakeError{Op: "duplicate transport", Err: err}
	}

	seed := crypto.SeedFromSecret(res.Secret)
	c.result = res
	c.reader = reader
	c.readerDup = dup
	c.outbound = crypto.NewKeystream(seed)
	c.inbound = crypto.NewKeystream(seed)
	c.setState(StateEstablished)

	c.log.WithFields(logrus.Fields{
		"function":    "Establish",
		"fingerprint": c.Fingerprint().String(),
	}).Info("Secure channel established")
	return c, nil
}

func readHandle(conn Transport) (io.ReadCloser, bool, error) {
	if d, ok := conn.(Duplicator); ok {
		r, err := d.Duplicate()
		return r, true, err
	}
	return conn, false, nil
}

func (c *Channel) setState(s State) {
	c.state.Store(int32(s))
	notify(c.observer, Event{Kind: EventStateChanged, State: s})
}

// State reports the current lifecycle state.
func (c *Channel) State() State { return State(c.state.Load()) }

// Secret returns the DH shared secret.
func (c *Channel) Secret() uint64 { return c.result.Secret }

func (c *Channel) LocalPublic() uint64 { return c.result.LocalPublic }

func (c *Channel) PeerPublic() uint64 { return c.result.PeerPublic }

// Fingerprint is a short digest of the shared secret for out-of-band comparison.
func (c *Channel) Fingerprint() fingerprint.Fingerprint {
	return fingerprint.Of(c.result.Secret)
}

// Run drives the chat until one side stops. Lines read from in are trimmed,
// empty ones skipped, and the rest encrypted and written to the transport.
// Ciphertext read from the transport is decrypted and written to out, one
// line per read.
//
// Run returns when the peer closes the stream, in is exhausted, either
// direction fails, or ctx is done. The transport is closed and the receiving
// goroutine has stopped writing to out before it returns, so out must not
// block indefinitely. The first two cases return nil. A send or receive
// failure returns a *TransportError; failing to read in or write out returns
// an error matching ErrInput or ErrOutput.
//
// A sender blocked reading in is not interrupted; it exits on its next read
// or write once the transport is closed.
func (c *Channel) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	if c.State() != StateEstablished {
		return ErrNotEstablished
	}
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	recvDone := make(chan error, 1)
	sendDone := make(chan error, 1)
	go func() { recvDone <- c.receiveLoop(out) }()
	go func() { sendDone <- c.sendLoop(in) }()

	var (
		err      error
		received bool
	)
	select {
	case err = <-recvDone:
		received = true
	case err = <-sendDone:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if cerr := c.Close(); cerr != nil {
		c.log.WithFields(logrus.Fields{
			"function": "Run",
			"error":    cerr.Error(),
		}).Debug("Closing transport reported an error")
	}
	// closing the read handle unblocks the receiver
	if !received {
		<-recvDone
	}
	return err
}

func (c *Channel) receiveLoop(out io.Writer) error {
	log := c.log.WithField("function", "receiveLoop")
	buf := make([]byte, protocol.ReadBufferSize)
	for {
		n, err := c.reader.Read(buf)
		if n > 0 {
			pos := c.inbound.Position()
			plain := c.inbound.Process(buf[:n])
			log.WithFields(logrus.Fields{
				"bytes":    n,
				"position": pos,
			}).Debug("Received encrypted message")
			if c.observer != nil {
				notify(c.observer, Event{
					Kind:     EventMessageDecrypted,
					Position: pos,
					Input:    append([]byte(nil), buf[:n]...),
					Output:   append([]byte(nil), plain...),
				})
			}
			if _, werr := out.Write(append(plain, '\n')); werr != nil {
				return fmt.Errorf("%w: %w", ErrOutput, werr)
			}
		}
		if err == nil {
			continue
		}
		if c.State() >= StateClosing {
			return nil
		}
		if errors.Is(err, io.EOF) {
			log.Info("Peer disconnected")
			notify(c.observer, Event{Kind: EventPeerClosed})
			return nil
		}
		log.WithError(err).Error("Receive failed")
		return &TransportError{Op: "receive", Err: err}
	}
}

func (c *Channel) sendLoop(in io.Reader) error {
	log := c.log.WithField("function", "sendLoop")
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		if text := strings.TrimSpace(line); text != "" {
			if serr := c.send([]byte(text)); serr != nil {
				log.WithError(serr).Error("Send failed")
				return serr
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			log.Debug("Input exhausted")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrInput, err)
	}
}

func (c *Channel) send(plain []byte) error {
	pos := c.outbound.Position()
	ct := c.outbound.Process(plain)
	if c.observer != nil {
		notify(c.observer, Event{
			Kind:     EventMessageEncrypted,
			Position: pos,
			Input:    plain,
			Output:   append([]byte(nil), ct...),
		})
	}
	n, err := c.conn.Write(ct)
	if err == nil && n != len(ct) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	c.log.WithFields(logrus.Fields{
		"function": "send",
		"bytes":    n,
		"position": pos,
	}).Debug("Sent encrypted message")
	return nil
}

// Close tears down the transport. It is safe to call more than once and
// from any goroutine.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		if c.readerDup {
			_ = c.reader.Close()
		}
		c.closeErr = c.conn.Close()
		c.setState(StateClosed)
	})
	return c.closeErr
}
