// Package shutdown coordinates graceful process termination: register
// named callbacks, wait for an OS signal (or trigger manually), and run
// every callback concurrently with an optional per-callback timeout.
// Adapted from the teacher's pkg/shutdown/shutdown.go, rewired onto
// zerolog directly instead of the separate pkg/log.Logger abstraction so
// this package shares the same logging story as the rest of the engine.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Shutdown coordinates graceful termination of the process.
type Shutdown struct {
	logger    zerolog.Logger
	rootCtx   context.Context
	cancel    func()
	mutex     sync.Mutex
	callbacks []callback
	sigCh     chan os.Signal
}

type callback struct {
	name    string
	f       func()
	timeout time.Duration
}

// New creates a Shutdown coordinator, registering for os.Interrupt.
func New(logger zerolog.Logger) *Shutdown {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	return &Shutdown{
		logger:  logger,
		rootCtx: ctx,
		cancel:  cancel,
		sigCh:   sigCh,
	}
}

// HookShutdownCallback registers f to run during shutdown under name. If
// timeout is 0, f runs without a deadline; otherwise a timeout past
// deadline is logged as an error but does not block the other callbacks.
func (s *Shutdown) HookShutdownCallback(name string, f func(), timeout time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.callbacks = append(s.callbacks, callback{name: name, f: f, timeout: timeout})
}

// Context is canceled the moment a shutdown begins, before callbacks run.
func (s *Shutdown) Context() context.Context {
	return s.rootCtx
}

// WaitForShutdown blocks until a registered OS signal (os.Interrupt, plus
// any in sigs) arrives, then runs every callback.
func (s *Shutdown) WaitForShutdown(sigs ...os.Signal) {
	if len(sigs) > 0 {
		signal.Notify(s.sigCh, sigs...)
	}
	<-s.sigCh
	s.cancel()
	s.logger.Info().Msg("shutdown signal received, beginning shutdown")
	s.shutdown()
	s.logger.Info().Msg("shutdown completed")
}

// ShutdownNow triggers shutdown programmatically, without waiting for a signal.
func (s *Shutdown) ShutdownNow() {
	s.cancel()
	s.logger.Info().Msg("manual shutdown triggered")
	s.shutdown()
	s.logger.Info().Msg("shutdown completed")
}

func (s *Shutdown) shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var wg sync.WaitGroup
	for _, cb := range s.callbacks {
		wg.Add(1)
		go func(cb callback) {
			defer wg.Done()
			s.logger.Info().Str("name", cb.name).Msg("running shutdown callback")

			var ctx context.Context
			var cancel context.CancelFunc
			if cb.timeout > 0 {
				ctx, cancel = context.WithTimeout(context.Background(), cb.timeout)
				defer cancel()
			} else {
				ctx = context.Background()
			}

			done := make(chan struct{})
			go func() {
				defer close(done)
				cb.f()
			}()

			select {
			case <-done:
				s.logger.Info().Str("name", cb.name).Msg("shutdown callback done")
			case <-ctx.Done():
				if cb.timeout > 0 {
					s.logger.Error().Str("name", cb.name).Dur("timeout", cb.timeout).
						Msg("shutdown callback timed out")
				}
			}
		}(cb)
	}
	wg.Wait()
}
