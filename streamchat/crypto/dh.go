package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// Prime is the public DH modulus shared by every peer.
	Prime uint64 = 0xD87FA3E291B4C7F3
	// Generator is the public DH base.
	Generator uint64 = 2
)

// KeyPair is a per-connection DH keypair.
type KeyPair struct {
	Private uint64
	Public  uint64
}

// GenerateKeyPair draws a private key uniformly from the full 64-bit range
// and derives its public key. A nil reader means crypto/rand.
func GenerateKeyPair(r io.Reader) (KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return KeyPair{}, fmt.Errorf("crypto: read private key: %w", err)
	}
	return NewKeyPair(binary.BigEndian.Uint64(buf[:])), nil
}

// NewKeyPair derives the public key for a known private key.
func NewKeyPair(private uint64) KeyPair {
	return KeyPair{
		Private: private,
		Public:  ModPow(Generator, private, Prime),
	}
}

// Shared computes the DH shared secret with the peer's public key.
func (kp KeyPair) Shared(peerPublic uint64) uint64 {
	return ModPow(peerPublic, kp.Private, Prime)
}
