package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/BullionBear/obsync/pkg/model"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	deltas []model.DepthDelta
	trades []model.Trade
}

func (d *recordingDispatcher) HandleDepth(delta model.DepthDelta) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deltas = append(d.deltas, delta)
}

func (d *recordingDispatcher) HandleTrade(trade model.Trade) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trades = append(d.trades, trade)
}

func (d *recordingDispatcher) count() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deltas), len(d.trades)
}

var upgrader = websocket.Upgrader{}

func TestSession_ConnectsSubscribesAndDispatchesDepthUpdate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Expect the subscription message first.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		msg := []byte(`{"stream":"btcusdt@depth","data":{"e":"depthUpdate","E":1,"s":"BTCUSDT","U":1,"u":5,"b":[["100","1"]],"a":[]}}`)
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}

		// Keep the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	dispatcher := &recordingDispatcher{}
	session := &Session{
		URLs:             []string{wsURL},
		SubscribeMessage: []byte(`{"method":"SUBSCRIBE","params":["btcusdt@depth"],"id":1}`),
		Dispatcher:       dispatcher,
		Logger:           zerolog.Nop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if deltas, _ := dispatcher.count(); deltas > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	deltas, _ := dispatcher.count()
	if deltas != 1 {
		t.Fatalf("expected 1 dispatched delta, got %d", deltas)
	}

	cancel()
	<-done
}

func TestSession_RepliesToServerPingWithPong(t *testing.T) {
	pongReceived := make(chan struct{}, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		conn.SetPongHandler(func(string) error {
			select {
			case pongReceived <- struct{}{}:
			default:
			}
			return nil
		})
		if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			return
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	session := &Session{
		URLs:             []string{wsURL},
		SubscribeMessage: []byte(`{"method":"SUBSCRIBE","params":["btcusdt@depth"],"id":1}`),
		Dispatcher:       &recordingDispatcher{},
		Logger:           zerolog.Nop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	select {
	case <-pongReceived:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected the session to answer the server's ping with a pong")
	}

	cancel()
	<-done
}

func TestSession_UnreachableURLEventuallyExhaustsReconnect(t *testing.T) {
	t.Skip("exercises the full 5-attempt backoff schedule (~80s); covered logically by TestBackoffDuration_MatchesAttemptTimesFivePlusOne")
}
