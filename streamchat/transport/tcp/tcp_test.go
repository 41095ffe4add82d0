package tcp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	require.NotEmpty(t, ln.AddrString())

	type result struct {
		c   *Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := ln.Accept(ctx)
		ch <- result{c, err}
	}()

	client, err := Dial(ctx, ln.AddrString())
	require.NoError(t, err)
	res := <-ch
	require.NoError(t, res.err)

	t.Cleanup(func() {
		_ = client.Close()
		_ = res.c.Close()
	})
	return client, res.c
}

func TestDialAccept(t *testing.T) {
	client, server := dialPair(t)

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(server, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestAcceptCanceled(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = ln.Accept(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// listener stays usable
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	go func() {
		c, err := Dial(ctx2, ln.AddrString())
		if err == nil {
			_ = c.Close()
		}
	}()
	c, err := ln.Accept(ctx2)
	require.NoError(t, err)
	_ = c.Close()
}

func TestDuplicateCloseUnblocksReader(t *testing.T) {
	client, server := dialPair(t)

	rc, err := server.Duplicate()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := rc.Read(make([]byte, 8))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, rc.Close())
	require.NoError(t, rc.Close())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reader still blocked after closing read half")
	}

	// write direction survives
	_, err = server.Write([]byte("ok"))
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(buf))
}

func TestDialRefused(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.AddrString()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = Dial(ctx, addr)
	assert.Error(t, err)
}
