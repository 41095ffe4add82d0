package crypto

import "crypto/cipher"

// LCG parameters (mod 2^32 through uint32 wraparound).
const (
	LCGMultiplier uint32 = 1103515245
	LCGIncrement  uint32 = 12345
)

var _ cipher.Stream = (*Keystream)(nil)

// Keystream is an LCG stream cipher. Encryption and decryption are the same
// operation; two instances built from the same seed that have consumed the
// same number of bytes produce the same keystream.
//
// A Keystream is not safe for concurrent use.
type Keystream struct {
	state uint32
	pos   uint64
}

// NewKeystream returns a keystream at position 0.
func NewKeystream(seed uint32) *Keystream {
	return &Keystream{state: seed}
}

// SeedFromSecret returns the low 32 bits of a shared secret.
func SeedFromSecret(secret uint64) uint32 {
	return uint32(secret)
}

func step(state uint32) uint32 {
	return state*LCGMultiplier + LCGIncrement
}

// NextByte advances the generator one step and returns the high byte of the
// new state.
func (k *Keystream) NextByte() byte {
	k.state = step(k.state)
	k.pos++
	return byte(k.state >> 24)
}

// XORKeyStream XORs each byte of src with the next keystream byte.
// dst and src may overlap entirely.
func (k *Keystream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("crypto: output smaller than input")
	}
	for i, b := range src {
		dst[i] = b ^ k.NextByte()
	}
}

// Process returns data XORed with the keystream and advances the position by
// len(data).
func (k *Keystream) Process(data []byte) []byte {
	out := make([]byte, len(data))
	k.XORKeyStream(out, data)
	return out
}

// Position is the number of keystream bytes consumed so far.
func (k *Keystream) Position() uint64 {
	return k.pos
}

// Peek returns the next n keystream bytes without consuming them.
func (k *Keystream) Peek(n int) []byte {
	out := make([]byte, n)
	s := k.state
	for i := range out {
		s = step(s)
		out[i] = byte(s >> 24)
	}
	return out
}
