package wsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/BullionBear/obsync/pkg/model"
)

// State is one node of the session state machine.
type State int

const (
	StateConnecting State = iota
	StateSubscribing
	StateRunning
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateRunning:
		return "running"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	// pongPollInterval is how often the outbound peer checks pongPending.
	// The server's native Ping/Pong is the only keep-alive mechanism; this
	// session never pings on its own initiative, it only answers.
	pongPollInterval = 1 * time.Second
	maxBackoffTries  = 5
)

// backoffDuration implements the reconnect schedule: (attempt*5 + 1)
// seconds, for attempt in [1, maxBackoffTries].
func backoffDuration(attempt int) time.Duration {
	return time.Duration(attempt*5+1) * time.Second
}

// Dispatcher receives decoded inbound frames.
type Dispatcher interface {
	HandleDepth(model.DepthDelta)
	HandleTrade(model.Trade)
}

// Session owns a single logical connection to the exchange, reconnecting
// across an ordered list of candidate URLs on failure.
type Session struct {
	URLs              []string
	SubscribeMessage  []byte // opaque, built externally by the caller
	Dispatcher        Dispatcher
	Logger            zerolog.Logger

	mu          sync.Mutex
	conn        *websocket.Conn
	state       State
	closed      atomic.Bool
	pongPending atomic.Bool
}

// ErrReconnectExhausted is returned by Run when a sixth consecutive
// connect cycle fails after five backoffs, handing control back to the
// supervisor.
var ErrReconnectExhausted = errors.New("wsclient: reconnect attempts exhausted")

// Run drives the session state machine until ctx is canceled or
// reconnection is exhausted.
func (s *Session) Run(ctx context.Context) error {
	urlIdx := 0
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return ctx.Err()
		default:
		}

		s.setState(StateConnecting)
		url := s.URLs[urlIdx%len(s.URLs)]
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			s.Logger.Warn().Err(err).Str("url", url).Int("attempt", attempt+1).Msg("wsclient: dial failed")
			urlIdx++
			attempt++
			if waitErr := s.backoffOrExhaust(ctx, &attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.closed.Store(false)

		s.setState(StateSubscribing)
		if err := s.subscribe(); err != nil {
			s.Logger.Warn().Err(err).Int("attempt", attempt+1).Msg("wsclient: subscribe failed")
			s.teardown()
			attempt++
			if waitErr := s.backoffOrExhaust(ctx, &attempt); waitErr != nil {
				return waitErr
			}
			continue
		}

		attempt = 0
		s.setState(StateRunning)
		s.runPeers(ctx)

		select {
		case <-ctx.Done():
			s.setState(StateStopped)
			return ctx.Err()
		default:
		}
		s.setState(StateBackoff)
	}
}

func (s *Session) backoffOrExhaust(ctx context.Context, attempt *int) error {
	if *attempt > maxBackoffTries {
		s.setState(StateStopped)
		return ErrReconnectExhausted
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(backoffDuration(*attempt)):
		return nil
	}
}

func (s *Session) subscribe() error {
	if len(s.SubscribeMessage) == 0 {
		return nil
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("wsclient: not connected")
	}
	requestID := uuid.New().String()
	s.Logger.Debug().Str("requestId", requestID).Msg("wsclient: sending subscribe request")
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteMessage(websocket.TextMessage, s.SubscribeMessage)
}

// runPeers runs the inbound reader and outbound pong writer as peer tasks
// that must both remain live; if either exits, both are torn down.
func (s *Session) runPeers(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.outboundLoop(ctx)
	}()

	wg.Wait()
}

func (s *Session) readLoop(ctx context.Context) {
	defer s.teardown()

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	// The server pings us; we never ping it. Receiving a Ping just marks a
	// Pong owed, which the outbound peer sends on its next poll.
	conn.SetPingHandler(func(string) error {
		s.pongPending.Store(true)
		return nil
	})

	for {
		if s.closed.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.Logger.Warn().Err(err).Msg("wsclient: read error")
			return
		}

		frame, err := decodeFrame(message)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("wsclient: dropping malformed frame")
			continue
		}
		s.dispatch(frame)
	}
}

func (s *Session) dispatch(frame decoded) {
	switch frame.kind {
	case kindDepthUpdate:
		s.Dispatcher.HandleDepth(frame.depth)
	case kindTrade:
		s.Dispatcher.HandleTrade(frame.trade)
	case kindBookTicker:
		// accepted, no-op
	case kindSubscriptionAck:
		s.Logger.Debug().Msg("wsclient: subscription acknowledged")
	default:
		s.Logger.Warn().Msg("wsclient: unknown frame shape dropped")
	}
}

// outboundLoop is the session's outbound writer: each poll, if the
// inbound reader has marked a Pong owed, it sends one and clears the
// flag. This is the session's only outbound traffic besides the initial
// subscribe message.
func (s *Session) outboundLoop(ctx context.Context) {
	defer s.teardown()

	ticker := time.NewTicker(pongPollInterval)
	defer ticker.Stop()

	for {
		if s.closed.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.pongPending.CompareAndSwap(true, false) {
				continue
			}
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PongMessage, nil); err != nil {
				s.Logger.Warn().Err(err).Msg("wsclient: pong failed")
				return
			}
		}
	}
}

func (s *Session) teardown() {
	if s.closed.Swap(true) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
