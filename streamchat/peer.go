package streamchat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat/session"
	"github.com/TheusHen/streamchat/streamchat/transport/quic"
	"github.com/TheusHen/streamchat/streamchat/transport/tcp"
)

const (
	TransportTCP  = "tcp"
	TransportQUIC = "quic"
)

var (
	ErrNotListening     = errors.New("streamchat: peer is not listening")
	ErrAlreadyListening = errors.New("streamchat: peer is already listening")
	ErrUnknownTransport = errors.New("streamchat: unknown transport")
)

// PeerConfig selects the transport and carries the session options used for
// every channel the peer creates.
type PeerConfig struct {
	// Transport is TransportTCP (the default when empty) or TransportQUIC.
	Transport string
	// HandshakeTimeout bounds the key exchange after a connection exists.
	// Zero means no limit beyond the caller's context.
	HandshakeTimeout time.Duration
	Options          session.Options
}

// Peer combines a transport with the session handshake.
type Peer struct {
	cfg      PeerConfig
	log      logrus.FieldLogger
	listener listener
}

type listener interface {
	accept(ctx context.Context) (session.Transport, string, error)
	AddrString() string
	Close() error
}

type tcpListener struct{ *tcp.Listener }

func (l tcpListener) accept(ctx context.Context) (session.Transport, string, error) {
	c, err := l.Accept(ctx)
	if err != nil {
		return nil, "", err
	}
	return c, c.RemoteAddr().String(), nil
}

type quicListener struct{ *quic.Listener }

func (l quicListener) accept(ctx context.Context) (session.Transport, string, error) {
	c, err := l.Accept(ctx)
	if err != nil {
		return nil, "", err
	}
	return c, c.RemoteAddr().String(), nil
}

func NewPeer(cfg PeerConfig) (*Peer, error) {
	switch cfg.Transport {
	case "":
		cfg.Transport = TransportTCP
	case TransportTCP, TransportQUIC:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
	log := cfg.Options.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Peer{cfg: cfg, log: log.WithField("transport", cfg.Transport)}, nil
}

func (p *Peer) Transport() string { return p.cfg.Transport }

func (p *Peer) Listen(addr string) error {
	if p.listener != nil {
		return ErrAlreadyListening
	}
	switch p.cfg.Transport {
	case TransportQUIC:
		ln, err := quic.Listen(addr)
		if err != nil {
			return err
		}
		p.listener = quicListener{ln}
	default:
		ln, err := tcp.Listen(addr)
		if err != nil {
			return err
		}
		p.listener = tcpListener{ln}
	}
	p.log.WithFields(logrus.Fields{
		"function": "Listen",
		"addr":     p.listener.AddrString(),
	}).Info("Listening for a peer")
	return nil
}

func (p *Peer) Close() error {
	if p.listener == nil {
		return nil
	}
	return p.listener.Close()
}

func (p *Peer) ListenAddr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.AddrString()
}

// Accept waits for one inbound peer and performs the handshake with it.
func (p *Peer) Accept(ctx context.Context) (*session.Channel, error) {
	if p.listener == nil {
		return nil, ErrNotListening
	}
	conn, remote, err := p.listener.accept(ctx)
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"function": "Accept",
		"remote":   remote,
	}).Info("Peer connected")
	return p.establish(ctx, conn)
}

// Dial connects to addr and performs the handshake.
func (p *Peer) Dial(ctx context.Context, addr string) (*session.Channel, error) {
	var (
		conn session.Transport
		err  error
	)
	switch p.cfg.Transport {
	case TransportQUIC:
		var c *quic.Conn
		c, err = quic.Dial(ctx, addr)
		conn = c
	default:
		var c *tcp.Conn
		c, err = tcp.Dial(ctx, addr)
		conn = c
	}
	if err != nil {
		return nil, err
	}
	p.log.WithFields(logrus.Fields{
		"function": "Dial",
		"remote":   addr,
	}).Info("Connected to peer")
	return p.establish(ctx, conn)
}

func (p *Peer) establish(ctx context.Context, conn session.Transport) (*session.Channel, error) {
	if p.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.HandshakeTimeout)
		defer cancel()
	}
	return session.Establish(ctx, conn, p.cfg.Options)
}
