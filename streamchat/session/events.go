package session

import "time"

// EventKind identifies the point in the channel lifecycle an Event reports.
type EventKind uint8

const (
	EventStateChanged EventKind = iota + 1
	EventHandshakeStarted
	EventHandshakeCompleted
	EventMessageEncrypted
	EventMessageDecrypted
	EventPeerClosed
)

func (k EventKind) String() string {
	switch k {
	case EventStateChanged:
		return "STATE"
	case EventHandshakeStarted:
		return "HANDSHAKE_STARTED"
	case EventHandshakeCompleted:
		return "HANDSHAKE_COMPLETED"
	case EventMessageEncrypted:
		return "ENCRYPT"
	case EventMessageDecrypted:
		return "DECRYPT"
	case EventPeerClosed:
		return "PEER_CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Event describes something the channel did. Only the fields relevant to
// Kind are set. Byte slices belong to the observer.
type Event struct {
	Kind EventKind
	Time time.Time

	State State

	LocalPublic uint64
	PeerPublic  uint64
	Secret      uint64

	// Position is the keystream position of the first byte of Input.
	Position uint64
	Input    []byte
	Output   []byte
}

// Observer receives channel events. Events from the sending and receiving
// sides arrive on different goroutines, so implementations must be safe for
// concurrent use. The channel behaves the same with or without an observer.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func notify(o Observer, e Event) {
	if o == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	o.Observe(e)
}
