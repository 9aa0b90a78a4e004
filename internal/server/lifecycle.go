// Package server runs the long-lived parts of furnisim (the furni dispatcher,
// the script dispatcher, the HTTP surface and the scenario driver) and shuts
// them down in reverse order on a signal, a failure or completion.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ErrNoServices is returned by Run when nothing was added.
var ErrNoServices = errors.New("server: no services registered")

// Service is a long-running component.
type Service interface {
	// Start runs the service until ctx is cancelled, Stop is called or the
	// service finishes its work. A nil return means the service completed.
	Start(ctx context.Context) error
	// Stop asks the service to return from Start.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
// StopFn may be nil for services that only watch ctx.
type FuncService struct {
	StartFn func(ctx context.Context) error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start(ctx context.Context) error { return f.StartFn(ctx) }

// Stop calls the underlying stop function, if any.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
}

// Lifecycle manages the startup and shutdown of multiple services.
// Services are started in order and stopped in reverse order.
type Lifecycle struct {
	logger      *zap.Logger
	services    []namedService
	mu          sync.Mutex
	stopTimeout time.Duration
	signals     []os.Signal
}

type namedService struct {
	name    string
	service Service
	// primary services end the run when they complete.
	primary bool
}

type exit struct {
	name string
	err  error
}

// NewLifecycle creates a new Lifecycle manager that reacts to SIGINT and SIGTERM.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger:      logger,
		stopTimeout: 5 * time.Second,
		signals:     []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// SetStopTimeout bounds how long shutdown waits for each service's Start to return.
func (l *Lifecycle) SetStopTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopTimeout = d
}

// Add registers a named background service. A background service returning
// nil does not end the run.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.add(name, svc, false)
}

// AddPrimary registers a service whose completion ends the run, such as a
// scenario replay.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) AddPrimary(name string, svc Service) {
	l.add(name, svc, true)
}

func (l *Lifecycle) add(name string, svc Service, primary bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc, primary: primary})
}

// Run starts all services and blocks until a termination signal, ctx
// cancellation, a service failure or a primary service completing. Services
// are then stopped in reverse order.
//
// Postcondition: All services are stopped when this method returns. The
// returned error is the first service failure, if any.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	stopTimeout := l.stopTimeout
	l.mu.Unlock()
	if len(services) == 0 {
		return ErrNoServices
	}

	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exits := make([]chan exit, len(services))
	anyExit := make(chan exit, len(services))
	for i, ns := range services {
		i, ns := i, ns
		exits[i] = make(chan exit, 1)
		go func() {
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			err := ns.service.Start(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				err = fmt.Errorf("service %s: %w", ns.name, err)
			} else {
				err = nil
			}
			e := exit{name: ns.name, err: err}
			exits[i] <- e
			if err != nil || ns.primary {
				anyExit <- e
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, l.signals...)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case e := <-anyExit:
		if e.err != nil {
			runErr = e.err
			l.logger.Error("service error, shutting down", zap.Error(e.err))
		} else {
			l.logger.Info("service completed, shutting down", zap.String("service", e.name))
		}
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown(services, exits, stopTimeout)
	cancel()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return runErr
}

func (l *Lifecycle) shutdown(services []namedService, exits []chan exit, timeout time.Duration) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()

		timer := time.NewTimer(timeout)
		select {
		case <-exits[i]:
		case <-timer.C:
			l.logger.Warn("service did not stop in time",
				zap.String("service", ns.name),
				zap.Duration("timeout", timeout),
			)
		}
		timer.Stop()

		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
