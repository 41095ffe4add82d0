// Package protocol defines the streamchat wire format.
//
// Per connection:
//
//	8 bytes: sender's DH public key (big endian), once in each direction
//	N bytes: ciphertext, one unframed chunk per line of input
//
// Ciphertext carries no header or length prefix. Receivers see whatever the
// stream hands them, so two lines may arrive as one read or one line as two.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// PublicKeySize is the encoded size of a DH public key.
	PublicKeySize = 8
	// ReadBufferSize bounds a single ciphertext read.
	ReadBufferSize = 1024
)

var (
	ErrShortPublicKey = errors.New("protocol: short public key")
)

// WritePublicKey writes key as 8 big-endian bytes.
func WritePublicKey(w io.Writer, key uint64) error {
	var buf [PublicKeySize]byte
	binary.BigEndian.PutUint64(buf[:], key)
	n, err := w.Write(buf[:])
	if err != nil {
		return err
	}
	if n != PublicKeySize {
		return fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, PublicKeySize)
	}
	return nil
}

// ReadPublicKey reads exactly 8 bytes and decodes them as a big-endian key.
func ReadPublicKey(r io.Reader) (uint64, error) {
	var buf [PublicKeySize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: got %d of %d bytes", ErrShortPublicKey, n, PublicKeySize)
		}
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
