package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat/crypto"
	"github.com/TheusHen/streamchat/streamchat/protocol"
)

// Options configures a handshake and the channel built on top of it.
// The zero value is usable.
type Options struct {
	// Rand is the source for the private key. Defaults to crypto/rand.
	Rand io.Reader
	// Observer is notified at handshake and message boundaries. Optional.
	Observer Observer
	// Logger defaults to the logrus standard logger.
	Logger logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Result is the outcome of a successful key exchange.
// The private key is discarded when the handshake returns.
type Result struct {
	LocalPublic uint64
	PeerPublic  uint64
	Secret      uint64
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// PerformHandshake runs the symmetric DH exchange: send our public key, then
// read exactly 8 bytes as the peer's. Both sides send before reading, which
// relies on the transport buffering 8 bytes.
//
// A deadline on ctx is applied to the transport when it supports
// SetDeadline. Failures are *HandshakeError and are never retried.
func PerformHandshake(ctx context.Context, rw io.ReadWriter, opts Options) (Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger.WithField("function", "PerformHandshake")

	if err := ctx.Err(); err != nil {
		return Result{}, &HandshakeError{Op: "start", Err: err}
	}
	if d, ok := ctx.Deadline(); ok {
		if dl, ok := rw.(deadliner); ok {
			if err := dl.SetDeadline(d); err == nil {
				defer dl.SetDeadline(time.Time{})
			}
		}
	}

	kp, err := crypto.GenerateKeyPair(opts.Rand)
	if err != nil {
		return Result{}, &HandshakeError{Op: "generate key", Err: err}
	}
	log.WithFields(logrus.Fields{
		"prime":      fmt.Sprintf("%X", crypto.Prime),
		"generator":  crypto.Generator,
		"public_key": fmt.Sprintf("%X", kp.Public),
	}).Debug("Starting key exchange")
	notify(opts.Observer, Event{Kind: EventHandshakeStarted, LocalPublic: kp.Public})

	if err := protocol.WritePublicKey(rw, kp.Public); err != nil {
		log.WithError(err).Error("Sending public key failed")
		return Result{}, &HandshakeError{Op: "send public key", Err: err}
	}
	peer, err := protocol.ReadPublicKey(rw)
	if err != nil {
		log.WithError(err).Error("Receiving peer public key failed")
		return Result{}, &HandshakeError{Op: "receive public key", Err: err}
	}

	res := Result{
		LocalPublic: kp.Public,
		PeerPublic:  peer,
		Secret:      kp.Shared(peer),
	}
	log.WithField("peer_public_key", fmt.Sprintf("%X", peer)).Debug("Key exchange completed")
	notify(opts.Observer, Event{
		Kind:        EventHandshakeCompleted,
		LocalPublic: res.LocalPublic,
		PeerPublic:  res.PeerPublic,
		Secret:      res.Secret,
	})
	return res, nil
}
