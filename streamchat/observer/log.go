package observer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat/fingerprint"
	"github.com/TheusHen/streamchat/streamchat/session"
)

// Log reports channel events through logrus. Key material appears only as
// a fingerprint; message contents are never logged.
type Log struct {
	logger logrus.FieldLogger
}

// NewLog returns a Log observer. A nil logger means the logrus standard logger.
func NewLog(logger logrus.FieldLogger) *Log {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Log{logger: logger}
}

func (l *Log) Observe(e session.Event) {
	entry := l.logger.WithFields(logrus.Fields{
		"event": e.Kind.String(),
	})
	switch e.Kind {
	case session.EventStateChanged:
		entry.WithField("state", e.State.String()).Debug("Channel state changed")
	case session.EventHandshakeStarted:
		entry.WithField("public_key", fmt.Sprintf("%X", e.LocalPublic)).Debug("Handshake started")
	case session.EventHandshakeCompleted:
		entry.WithFields(logrus.Fields{
			"peer_public_key": fmt.Sprintf("%X", e.PeerPublic),
			"fingerprint":     fingerprint.Of(e.Secret).String(),
		}).Info("Handshake completed")
	case session.EventMessageEncrypted, session.EventMessageDecrypted:
		entry.WithFields(logrus.Fields{
			"bytes":    len(e.Input),
			"position": e.Position,
		}).Debug("Message processed")
	case session.EventPeerClosed:
		entry.Info("Peer closed the connection")
	}
}
