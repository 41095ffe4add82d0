// Package streamchat is a small peer-to-peer chat channel: a Diffie-Hellman
// key exchange over a 64-bit prime followed by an LCG keystream XOR-ed with
// every byte.
//
// The construction is intentionally weak and exists for study. The modulus
// is tiny, the keystream generator is predictable, and nothing is
// authenticated. Do not use it to protect anything.
//
// Layout:
//   - crypto: modular exponentiation, key pairs and the keystream cipher
//   - protocol: the 8-byte public key wire encoding
//   - session: handshake, channel state machine and the duplex loop
//   - transport/tcp, transport/quic: byte stream transports
//   - observer, transcript: ways to watch a channel at work
//   - fingerprint: a short digest of the shared secret for out-of-band checks
//
// Peer ties a transport to the session layer:
//
//	p, _ := streamchat.NewPeer(streamchat.PeerConfig{})
//	ch, _ := p.Dial(ctx, "127.0.0.1:8080")
//	defer ch.Close()
//	_ = ch.Run(ctx, os.Stdin, os.Stdout)
package streamchat
