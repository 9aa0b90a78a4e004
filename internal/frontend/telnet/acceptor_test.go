package telnet

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/roomfurni/internal/config"
)

// echoRunner replies to every line and fails on "/boom".
type echoRunner struct {
	reply   func(string)
	lastCtx *atomic.Value
}

func (r *echoRunner) Execute(ctx context.Context, line string) error {
	r.lastCtx.Store(ctx)
	if line == "/boom" {
		return errors.New("boom")
	}
	r.reply("echo: " + line)
	return nil
}

type countingFactory struct {
	sessions atomic.Int32
	lastCtx  atomic.Value
	mu       sync.Mutex
	replies  []func(string)
}

func (f *countingFactory) build(reply func(string)) CommandRunner {
	f.sessions.Add(1)
	f.mu.Lock()
	f.replies = append(f.replies, reply)
	f.mu.Unlock()
	return &echoRunner{reply: reply, lastCtx: &f.lastCtx}
}

func startAcceptor(t *testing.T, color bool) (*Acceptor, *countingFactory, <-chan error) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	factory := &countingFactory{}
	cfg := config.ConsoleConfig{
		Enabled:      true,
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	acc := NewAcceptor(cfg, NewCommandSession(factory.build, color, logger), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- acc.Serve(context.Background()) }()
	require.Eventually(t, func() bool {
		return acc.IsRunning() && acc.Addr() != ""
	}, 2*time.Second, 10*time.Millisecond)
	return acc, factory, errCh
}

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	c := &client{t: t, conn: conn, r: bufio.NewReader(conn)}
	// Negotiation bytes precede the greeting line.
	c.expect("Room furni console")
	return c
}

func (c *client) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\r\n"))
	require.NoError(c.t, err)
}

// expect reads lines until one contains want.
func (c *client) expect(want string) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		line, err := c.r.ReadString('\n')
		require.NoError(c.t, err, "waiting for %q", want)
		if strings.Contains(line, want) {
			return line
		}
	}
}

func stopAndWait(t *testing.T, acc *Acceptor, errCh <-chan error) {
	t.Helper()
	acc.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop in time")
	}
	assert.False(t, acc.IsRunning())
}

func TestAcceptor_ExecutesCommands(t *testing.T) {
	acc, factory, errCh := startAcceptor(t, false)
	c := dial(t, acc.Addr())

	c.send("/f hide *")
	assert.Contains(t, c.expect("echo:"), "echo: /f hide *")

	c.send("/boom")
	c.expect("Command failed.")

	c.send("quit")
	c.expect("Bye.")

	stopAndWait(t, acc, errCh)
	assert.Equal(t, int32(1), factory.sessions.Load())
}

func TestAcceptor_DisconnectCancelsSessionContext(t *testing.T) {
	acc, factory, errCh := startAcceptor(t, false)
	c := dial(t, acc.Addr())

	c.send("/f pickup *chair")
	c.expect("echo:")
	ctx := factory.lastCtx.Load().(context.Context)
	assert.NoError(t, ctx.Err())

	c.send("quit")
	c.expect("Bye.")
	require.Eventually(t, func() bool { return ctx.Err() != nil }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, acc.IsRunning(), "other sessions keep being served")

	stopAndWait(t, acc, errCh)
}

func TestAcceptor_BackgroundRepliesReachTheirSession(t *testing.T) {
	acc, factory, errCh := startAcceptor(t, true)
	a := dial(t, acc.Addr())
	b := dial(t, acc.Addr())
	require.Eventually(t, func() bool { return factory.sessions.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	factory.mu.Lock()
	first := factory.replies[0]
	factory.mu.Unlock()
	first("[Warning] async")

	// Only one of the two sessions gets the reply; it is highlighted.
	got := make(chan string, 2)
	for _, c := range []*client{a, b} {
		c := c
		go func() {
			_ = c.conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
			if line, err := c.r.ReadString('\n'); err == nil {
				got <- line
			}
		}()
	}
	select {
	case line := <-got:
		assert.Equal(t, Colorize(Yellow, "[Warning] async")+"\r\n", strings.TrimPrefix(line, prompt))
	case <-time.After(2 * time.Second):
		t.Fatal("no session received the reply")
	}
	select {
	case line := <-got:
		t.Fatalf("reply delivered twice: %q", line)
	case <-time.After(500 * time.Millisecond):
	}

	stopAndWait(t, acc, errCh)
}

func TestAcceptor_StopEndsIdleSessions(t *testing.T) {
	acc, _, errCh := startAcceptor(t, false)
	c := dial(t, acc.Addr())

	stopAndWait(t, acc, errCh)

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := c.r.ReadString('\n')
	for err == nil {
		_, err = c.r.ReadString('\n')
	}
	assert.Error(t, err, "connection should be closed by the server")
}

func TestAcceptor_ContextCancelStops(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.ConsoleConfig{Host: "127.0.0.1", Port: 0}
	acc := NewAcceptor(cfg, NewCommandSession((&countingFactory{}).build, false, logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Serve(ctx) }()
	require.Eventually(t, acc.IsRunning, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop on cancel")
	}
}

func TestAcceptor_ListenError(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.ConsoleConfig{Host: "127.0.0.1", Port: -1}
	acc := NewAcceptor(cfg, NewCommandSession((&countingFactory{}).build, false, logger), logger)
	assert.Error(t, acc.Serve(context.Background()))
}
