// Command streamchat is a two-party terminal chat over the streamchat
// secure channel.
//
//	streamchat server 8080
//	streamchat client 127.0.0.1:8080
//
// Chat text goes to stdout; status lines and logs go to stderr.
package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat"
	"github.com/TheusHen/streamchat/streamchat/observer"
	"github.com/TheusHen/streamchat/streamchat/session"
	"github.com/TheusHen/streamchat/streamchat/transcript"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		eprintln(stderr, "Error:", err)
		return exitUsage
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(cfg.logLevel)

	observers := []session.Observer{observer.NewLog(logger)}
	if cfg.verbose {
		observers = append(observers, observer.NewDump(stdout))
	}
	if cfg.transcript != "" {
		rec, err := transcript.Create(cfg.transcript, transcript.CompressionDefault)
		if err != nil {
			eprintln(stderr, "Error opening transcript:", err)
			return exitFailed
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.WithError(err).Warn("Closing transcript failed")
			}
		}()
		observers = append(observers, rec)
	}

	peer, err := streamchat.NewPeer(streamchat.PeerConfig{
		Transport:        cfg.transport,
		HandshakeTimeout: cfg.handshakeTimeout,
		Options: session.Options{
			Observer: session.Observers(observers...),
			Logger:   logger,
		},
	})
	if err != nil {
		eprintln(stderr, "Error:", err)
		return exitUsage
	}
	defer peer.Close()

	ch, err := connect(ctx, peer, cfg, stderr)
	if err != nil {
		if ctx.Err() != nil {
			return exitOK
		}
		eprintln(stderr, "Error:", err)
		return exitFailed
	}
	defer ch.Close()

	eprintln(stderr, "Secure channel established. Fingerprint:", ch.Fingerprint().String())
	eprintln(stderr, "Compare it with your peer, then type messages and press Enter.")

	err = ch.Run(ctx, stdin, stdout)
	switch {
	case err == nil:
		eprintln(stderr, "Session closed.")
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitOK
	default:
		eprintln(stderr, "Error:", err)
		return exitFailed
	}
}

func connect(ctx context.Context, peer *streamchat.Peer, cfg Config, stderr io.Writer) (*session.Channel, error) {
	if cfg.mode == modeClient {
		eprintln(stderr, "[CLIENT] Connecting to", cfg.addr+"...")
		return peer.Dial(ctx, cfg.addr)
	}

	if err := peer.Listen(cfg.addr); err != nil {
		return nil, err
	}
	eprintln(stderr, "[SERVER] Listening on", peer.ListenAddr(), "("+peer.Transport()+")")
	eprintln(stderr, "[SERVER] Waiting for client...")
	return peer.Accept(ctx)
}
