// Package fingerprint derives a short, human comparable digest of a shared
// secret. Both ends of a channel print it so users can compare it out of band.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2s"
)

// Size is the number of digest bytes kept.
const Size = 8

var ErrInvalidFingerprint = errors.New("fingerprint: invalid encoding")

// Fingerprint is the first Size bytes of BLAKE2s-256 over the big-endian
// shared secret.
type Fingerprint [Size]byte

// Of computes the fingerprint of a shared secret.
func Of(secret uint64) Fingerprint {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], secret)
	sum := blake2s.Sum256(buf[:])
	var fp Fingerprint
	copy(fp[:], sum[:Size])
	return fp
}

// String renders the fingerprint as dash separated groups of 4 hex digits.
func (fp Fingerprint) String() string {
	h := hex.EncodeToString(fp[:])
	groups := make([]string, 0, len(h)/4)
	for i := 0; i < len(h); i += 4 {
		groups = append(groups, h[i:i+4])
	}
	return strings.Join(groups, "-")
}

// Parse accepts the String form, with or without dashes.
func Parse(s string) (Fingerprint, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return Fingerprint{}, err
	}
	if len(b) != Size {
		return Fingerprint{}, ErrInvalidFingerprint
	}
	var fp Fingerprint
	copy(fp[:], b)
	return fp, nil
}
