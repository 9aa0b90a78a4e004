package telnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/config"
)

// SessionHandler runs the command loop of one connected client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// Acceptor listens for Telnet connections and hands each one to a SessionHandler.
type Acceptor struct {
	cfg     config.ConsoleConfig
	handler SessionHandler
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewAcceptor creates an Acceptor for cfg.Addr().
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.ConsoleConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Serve listens and accepts connections until ctx is cancelled or Stop is
// called. Sessions are cancelled when Serve returns.
//
// Precondition: Serve must be called at most once.
// Postcondition: The listener is closed and every session has ended.
func (a *Acceptor) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.listener = listener
	a.running = true
	a.cancel = cancel
	a.mu.Unlock()

	a.logger.Info("console listening", zap.String("addr", listener.Addr().String()))

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	defer func() {
		cancel()
		a.wg.Wait()
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		a.logger.Info("console stopped")
	}()

	for {
		raw, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			a.logger.Error("accepting connection", zap.Error(err))
			continue
		}
		a.wg.Add(1)
		go a.handleConn(ctx, raw)
	}
}

// handleConn runs one session. Its context ends when the client disconnects,
// which cancels work the session started.
func (a *Acceptor) handleConn(ctx context.Context, raw net.Conn) {
	defer a.wg.Done()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	start := time.Now()
	addr := raw.RemoteAddr().String()
	a.logger.Info("console client connected", zap.String("remote_addr", addr))

	conn := NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout)
	defer conn.Close()

	// A blocked read only ends when the connection closes.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.Negotiate(); err != nil {
		a.logger.Warn("telnet negotiation failed", zap.String("remote_addr", addr), zap.Error(err))
		return
	}

	err := a.handler.HandleSession(ctx, conn)
	a.logger.Info("console session ended",
		zap.String("remote_addr", addr),
		zap.Duration("duration", time.Since(start)),
		zap.NamedError("reason", err),
	)
}

// Stop closes the listener and ends every session.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Addr returns the listening address, or "" before Serve has started listening.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return ""
}

// IsRunning reports whether the acceptor is accepting connections.
func (a *Acceptor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}
