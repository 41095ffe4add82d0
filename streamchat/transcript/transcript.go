// Package transcript records channel events to an LZ4-compressed stream of
// JSON lines, for replaying a chat session after the fact.
//
// Entries carry public keys, the secret's fingerprint, keystream positions
// and message bytes on both sides of the cipher. The shared secret itself is
// not written.
package transcript

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/TheusHen/streamchat/streamchat/fingerprint"
	"github.com/TheusHen/streamchat/streamchat/session"
)

var (
	ErrRecorderClosed = errors.New("transcript: recorder closed")
)

// CompressionLevel controls the speed/ratio tradeoff.
type CompressionLevel int

const (
	CompressionFast    CompressionLevel = iota // Fastest, lower ratio
	CompressionDefault                         // Balanced
	CompressionBest                            // Best ratio, slower
)

// Entry is one recorded event.
type Entry struct {
	Time        time.Time `json:"time"`
	Kind        string    `json:"kind"`
	State       string    `json:"state,omitempty"`
	LocalPublic uint64    `json:"local_public,omitempty"`
	PeerPublic  uint64    `json:"peer_public,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Position    uint64    `json:"position,omitempty"`
	Input       []byte    `json:"input,omitempty"`
	Output      []byte    `json:"output,omitempty"`
}

// Recorder is a session.Observer that appends every event to a compressed
// transcript. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	zw     *lz4.Writer
	enc    *json.Encoder
	closer io.Closer
	err    error
	closed bool
}

// NewRecorder writes a transcript to w. Close flushes the compressed stream
// but does not close w.
func NewRecorder(w io.Writer, level CompressionLevel) *Recorder {
	zw := lz4.NewWriter(w)
	switch level {
	case CompressionFast:
		_ = zw.Apply(lz4.CompressionLevelOption(lz4.Fast))
	case CompressionBest:
		_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level9))
	default:
		_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level4))
	}
	return &Recorder{zw: zw, enc: json.NewEncoder(zw)}
}

// Create opens (truncating) a transcript file at path.
func Create(path string, level CompressionLevel) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(f, level)
	r.closer = f
	return r, nil
}

func (r *Recorder) Observe(e session.Event) {
	entry := Entry{
		Time:        e.Time,
		Kind:        e.Kind.String(),
		LocalPublic: e.LocalPublic,
		PeerPublic:  e.PeerPublic,
		Position:    e.Position,
		Input:       e.Input,
		Output:      e.Output,
	}
	switch e.Kind {
	case session.EventStateChanged:
		entry.State = e.State.String()
	case session.EventHandshakeCompleted:
		entry.Fingerprint = fingerprint.Of(e.Secret).String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.err != nil {
		return
	}
	if err := r.enc.Encode(entry); err != nil {
		r.err = err
		return
	}
	// flush per entry so a killed process still leaves a readable prefix
	r.err = r.zw.Flush()
}

// Err returns the first write error, if any. Events after an error are dropped.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close finishes the compressed stream and closes the file opened by Create.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	r.closed = true
	err := r.zw.Close()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err == nil {
		err = r.err
	}
	return err
}

// ReadAll decompresses and decodes a transcript. A truncated final entry
// is reported as an error along with the entries read before it.
func ReadAll(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(lz4.NewReader(r))
	var out []Entry
	for {
		var e Entry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, e)
	}
}

// Open reads a whole transcript file.
func Open(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}
