package session

import (
	"errors"
	"fmt"
)

var (
	// ErrHandshake matches every *HandshakeError via errors.Is.
	ErrHandshake = errors.New("session: handshake failed")
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("session: transport failed")

	// ErrInput and ErrOutput wrap failures of the caller's reader and writer.
	ErrInput  = errors.New("session: read input")
	ErrOutput = errors.New("session: write output")

	ErrNotEstablished = errors.New("session: channel not established")
	ErrAlreadyRunning = errors.New("session: channel already running")
)

// HandshakeError reports a failed key exchange. The connection is unusable
// afterwards; a new connection needs a fresh handshake.
type HandshakeError struct {
	Op  string
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("session: handshake %s: %v", e.Op, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func (e *HandshakeError) Is(target error) bool { return target == ErrHandshake }

// TransportError reports a send or receive failure after the handshake.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
