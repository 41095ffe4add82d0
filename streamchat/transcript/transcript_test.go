package transcript

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/streamchat/streamchat/fingerprint"
	"github.com/TheusHen/streamchat/streamchat/session"
)

func sampleEvents() []session.Event {
	now := time.Unix(1700000000, 0).UTC()
	return []session.Event{
		{Kind: session.EventStateChanged, Time: now, State: session.StateHandshaking},
		{Kind: session.EventHandshakeCompleted, Time: now, LocalPublic: 32, PeerPublic: 128, Secret: 1 << 35},
		{Kind: session.EventMessageEncrypted, Time: now, Position: 0, Input: []byte("Hi"), Output: []byte{0x09, 0xff}},
		{Kind: session.EventPeerClosed, Time: now},
	}
}

func TestRecorderRoundTrip(t *testing.T) {
	for _, level := range []CompressionLevel{CompressionFast, CompressionDefault, CompressionBest} {
		var buf bytes.Buffer
		r := NewRecorder(&buf, level)
		for _, e := range sampleEvents() {
			r.Observe(e)
		}
		require.NoError(t, r.Close())

		entries, err := ReadAll(&buf)
		require.NoError(t, err)
		require.Len(t, entries, 4)

		assert.Equal(t, "STATE", entries[0].Kind)
		assert.Equal(t, "HANDSHAKING", entries[0].State)
		assert.Equal(t, uint64(128), entries[1].PeerPublic)
		assert.Equal(t, fingerprint.Of(1<<35).String(), entries[1].Fingerprint)
		assert.Equal(t, []byte("Hi"), entries[2].Input)
		assert.Equal(t, []byte{0x09, 0xff}, entries[2].Output)
		assert.Equal(t, "PEER_CLOSED", entries[3].Kind)
		assert.True(t, entries[3].Time.Equal(time.Unix(1700000000, 0)))
	}
}

func TestRecorderReadableBeforeClose(t *testing.T) {
	var buf bytes.Buffer
	r := NewRecorder(&buf, CompressionDefault)
	r.Observe(sampleEvents()[1])

	// the frame has no end mark yet; only the decoded prefix matters
	entries, _ := ReadAll(bytes.NewReader(buf.Bytes()))
	require.Len(t, entries, 1)
	assert.Equal(t, "HANDSHAKE_COMPLETED", entries[0].Kind)
	require.NoError(t, r.Close())
}

func TestRecorderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.lz4")
	r, err := Create(path, CompressionFast)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Observe(session.Event{Kind: session.EventMessageDecrypted, Input: []byte("x"), Output: []byte("y")})
		}()
	}
	wg.Wait()
	require.NoError(t, r.Err())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Close(), ErrRecorderClosed)

	// dropped silently after close
	r.Observe(session.Event{Kind: session.EventPeerClosed})

	entries, err := Open(path)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.lz4"))
	assert.Error(t, err)
}
