package main

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/sirupsen/logrus"

	"github.com/TheusHen/streamchat/streamchat"
)

const (
	modeServer  = "server"
	modeClient  = "client"
	defaultPort = 8080
)

// Config stores values related to program configuration
type Config struct {
	mode string
	// addr is the listen address in server mode, the peer address otherwise
	addr string

	transport        string
	verbose          bool
	logLevel         logrus.Level
	transcript       string
	handshakeTimeout time.Duration
}

// ConfigError is a usage problem found before any connection is made.
type ConfigError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// parseConfig reads flags and positional arguments. pflag.ErrHelp is returned
// unchanged when help was requested.
func parseConfig(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{}

	fs := pflag.NewFlagSet("streamchat", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }

	transport := fs.StringP("transport", "t", streamchat.TransportTCP, "transport to use: tcp or quic")
	verbose := fs.BoolP("verbose", "v", false, "print the key exchange and every encrypt/decrypt step in hex")
	logLevel := fs.String("log-level", "info", "log level: panic, fatal, error, warn, info, debug or trace")
	transcriptPath := fs.String("transcript", "", "write an lz4-compressed transcript of the session to this file")
	timeout := fs.Duration("handshake-timeout", 10*time.Second, "time limit for the key exchange (0 disables it)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch *transport {
	case streamchat.TransportTCP, streamchat.TransportQUIC:
		cfg.transport = *transport
	default:
		return cfg, &ConfigError{Field: "transport", Value: *transport, Msg: "must be tcp or quic"}
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return cfg, &ConfigError{Field: "log level", Value: *logLevel, Msg: err.Error()}
	}
	cfg.logLevel = level

	if *timeout < 0 {
		return cfg, &ConfigError{Field: "handshake timeout", Value: timeout.String(), Msg: "must not be negative"}
	}
	cfg.handshakeTimeout = *timeout
	cfg.verbose = *verbose
	cfg.transcript = *transcriptPath

	rest := fs.Args()
	if len(rest) == 0 {
		return cfg, &ConfigError{Field: "mode", Msg: "missing server or client"}
	}
	cfg.mode = rest[0]
	rest = rest[1:]

	switch cfg.mode {
	case modeServer:
		if len(rest) > 1 {
			return cfg, &ConfigError{Field: "arguments", Value: rest[1], Msg: "server takes at most a port"}
		}
		port := uint64(defaultPort)
		if len(rest) == 1 {
			port, err = strconv.ParseUint(rest[0], 10, 16)
			if err != nil {
				return cfg, &ConfigError{Field: "port", Value: rest[0], Msg: "must be a number from 0 to 65535"}
			}
		}
		cfg.addr = net.JoinHostPort("0.0.0.0", strconv.FormatUint(port, 10))
	case modeClient:
		if len(rest) != 1 {
			return cfg, &ConfigError{Field: "arguments", Msg: "client takes exactly one HOST:PORT"}
		}
		host, port, err := net.SplitHostPort(rest[0])
		if err != nil {
			return cfg, &ConfigError{Field: "address", Value: rest[0], Msg: "expected HOST:PORT"}
		}
		if host == "" {
			return cfg, &ConfigError{Field: "address", Value: rest[0], Msg: "missing host"}
		}
		if p, err := strconv.ParseUint(port, 10, 16); err != nil || p == 0 {
			return cfg, &ConfigError{Field: "address", Value: rest[0], Msg: "port must be a number from 1 to 65535"}
		}
		cfg.addr = rest[0]
	default:
		return cfg, &ConfigError{Field: "mode", Value: cfg.mode, Msg: "must be server or client"}
	}

	return cfg, nil
}

func printUsage(fs *pflag.FlagSet, w io.Writer) {
	eprintln(w, "Usage: streamchat [OPTION]... server [PORT]")
	eprintln(w, "       streamchat [OPTION]... client HOST:PORT")
	eprintln(w, "Flags:")
	fs.PrintDefaults()
	eprintln(w, "Example:")
	eprintln(w, "    streamchat server 8080")
	eprintln(w, "    streamchat -v client 127.0.0.1:8080")
}

func eprintln(w io.Writer, a ...interface{}) {
	_, _ = fmt.Fprintln(w, a...)
}
