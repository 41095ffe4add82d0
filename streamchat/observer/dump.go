// Package observer contains session.Observer implementations for watching a
// channel at work: a verbose hex dump for terminals and a structured logger.
package observer

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/TheusHen/streamchat/streamchat/crypto"
	"github.com/TheusHen/streamchat/streamchat/session"
)

// PreviewLen is the number of keystream bytes shown once the channel is up.
const PreviewLen = 10

// Dump writes a human readable trace of the key exchange and of every
// encrypted or decrypted message, including the keystream bytes used.
type Dump struct {
	mu sync.Mutex
	w  io.Writer
}

func NewDump(w io.Writer) *Dump {
	return &Dump{w: w}
}

func (d *Dump) Observe(e session.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	switch e.Kind {
	case session.EventHandshakeStarted:
		fmt.Fprintf(&b, "[DH] key exchange\n")
		fmt.Fprintf(&b, "p = %X (public prime)\n", crypto.Prime)
		fmt.Fprintf(&b, "g = %d (public generator)\n", crypto.Generator)
		fmt.Fprintf(&b, "-> our public key: %X\n", e.LocalPublic)
	case session.EventHandshakeCompleted:
		seed := crypto.SeedFromSecret(e.Secret)
		fmt.Fprintf(&b, "<- peer public key: %X\n", e.PeerPublic)
		fmt.Fprintf(&b, "secret = peer^private mod p = %X\n\n", e.Secret)
		fmt.Fprintf(&b, "[STREAM] LCG (a=%d, c=%d, m=2^32), seed %08X\n",
			crypto.LCGMultiplier, crypto.LCGIncrement, seed)
		fmt.Fprintf(&b, "Keystream: %s ...\n\n", hexBytes(crypto.NewKeystream(seed).Peek(PreviewLen)))
	case session.EventMessageEncrypted:
		fmt.Fprintf(&b, "[ENCRYPT]\n")
		fmt.Fprintf(&b, "Plain:  %s%s\n", hexBytes(e.Input), quoted(e.Input))
		fmt.Fprintf(&b, "Key:    %s (keystream position: %d)\n", hexBytes(keyBytes(e)), e.Position)
		fmt.Fprintf(&b, "Cipher: %s\n\n", hexBytes(e.Output))
	case session.EventMessageDecrypted:
		fmt.Fprintf(&b, "[DECRYPT] %d bytes\n", len(e.Input))
		fmt.Fprintf(&b, "Cipher: %s\n", hexBytes(e.Input))
		fmt.Fprintf(&b, "Key:    %s (keystream position: %d)\n", hexBytes(keyBytes(e)), e.Position)
		fmt.Fprintf(&b, "Plain:  %s%s\n\n", hexBytes(e.Output), quoted(e.Output))
	case session.EventStateChanged:
		if e.State == session.StateEstablished {
			fmt.Fprintf(&b, "secure channel established\n\n")
		}
	case session.EventPeerClosed:
		fmt.Fprintf(&b, "peer disconnected\n")
	}
	if b.Len() > 0 {
		_, _ = io.WriteString(d.w, b.String())
	}
}

// keyBytes recovers the keystream from the two sides of the XOR.
func keyBytes(e session.Event) []byte {
	n := len(e.Input)
	if len(e.Output) < n {
		n = len(e.Output)
	}
	key := make([]byte, n)
	for i := 0; i < n; i++ {
		key[i] = e.Input[i] ^ e.Output[i]
	}
	return key
}

func hexBytes(b []byte) string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}

func quoted(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	return fmt.Sprintf(" (%q)", b)
}
