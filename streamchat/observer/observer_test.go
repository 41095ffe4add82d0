package observer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/streamchat/streamchat/crypto"
	"github.com/TheusHen/streamchat/streamchat/fingerprint"
	"github.com/TheusHen/streamchat/streamchat/session"
)

func TestDumpHandshake(t *testing.T) {
	var buf bytes.Buffer
	d := NewDump(&buf)

	d.Observe(session.Event{Kind: session.EventHandshakeStarted, LocalPublic: 32})
	d.Observe(session.Event{Kind: session.EventHandshakeCompleted, LocalPublic: 32, PeerPublic: 128, Secret: 0x1234ABCD})
	d.Observe(session.Event{Kind: session.EventStateChanged, State: session.StateEstablished})

	out := buf.String()
	assert.Contains(t, out, "p = D87FA3E291B4C7F3")
	assert.Contains(t, out, "our public key: 20")
	assert.Contains(t, out, "peer public key: 80")
	assert.Contains(t, out, "seed 1234ABCD")
	assert.Contains(t, out, "Keystream: ba 0c 97 ")
	assert.Contains(t, out, "secure channel established")
}

func TestDumpMessages(t *testing.T) {
	var buf bytes.Buffer
	d := NewDump(&buf)

	plain := []byte("Hi")
	ct := crypto.NewKeystream(1).Process(plain)
	d.Observe(session.Event{Kind: session.EventMessageEncrypted, Input: plain, Output: ct})
	d.Observe(session.Event{Kind: session.EventMessageDecrypted, Position: 7, Input: ct, Output: plain})

	out := buf.String()
	assert.Contains(t, out, "[ENCRYPT]")
	assert.Contains(t, out, "Plain:  48 69 (\"Hi\")")
	assert.Contains(t, out, "Key:    41 96 (keystream position: 0)")
	assert.Contains(t, out, "[DECRYPT] 2 bytes")
	assert.Contains(t, out, "(keystream position: 7)")
	assert.Equal(t, 2, strings.Count(out, "Cipher: 09 ff"))
}

func TestDumpNonUTF8(t *testing.T) {
	var buf bytes.Buffer
	NewDump(&buf).Observe(session.Event{
		Kind:   session.EventMessageDecrypted,
		Input:  []byte{0x00, 0x01},
		Output: []byte{0xff, 0xfe},
	})
	assert.Contains(t, buf.String(), "Plain:  ff fe\n")
}

func TestLogObserver(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	l := NewLog(logger)

	l.Observe(session.Event{Kind: session.EventHandshakeCompleted, PeerPublic: 128, Secret: 1 << 35})
	require.Len(t, hook.Entries, 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "80", entry.Data["peer_public_key"])
	assert.Equal(t, fingerprint.Of(1<<35).String(), entry.Data["fingerprint"])
	assert.NotContains(t, entry.Data, "secret")

	l.Observe(session.Event{Kind: session.EventMessageDecrypted, Position: 3, Input: []byte("abc")})
	entry = hook.LastEntry()
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, 3, entry.Data["bytes"])
	assert.Equal(t, uint64(3), entry.Data["position"])

	l.Observe(session.Event{Kind: session.EventPeerClosed})
	assert.Equal(t, "PEER_CLOSED", hook.LastEntry().Data["event"])
}
