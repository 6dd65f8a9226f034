// Package wsclient maintains the single logical WebSocket session to the
// exchange's combined-stream endpoint: connect, subscribe, demultiplex,
// heartbeat, and reconnect. It generalizes the teacher's WSConnection in
// pkg/exchange/binance/ws.go from a single-purpose user-data/trading
// socket into a market-data session whose inbound frames are dispatched
// by their `data.e` discriminator instead of a fixed message type.
package wsclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BullionBear/obsync/pkg/model"
)

// envelope is the combined-stream wrapper: {"stream": "...", "data": {...}}.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// eventTag peeks at the discriminator field common to every data payload.
type eventTag struct {
	Event string `json:"e"`
}

// isSubscriptionAck reports whether raw is exactly {id, result} with
// result null. A Binance-style error reply also carries a top-level id
// but replaces result with an error object, so this checks the full
// shape rather than just id's presence.
func isSubscriptionAck(raw []byte) bool {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	if len(fields) != 2 {
		return false
	}
	idRaw, hasID := fields["id"]
	resultRaw, hasResult := fields["result"]
	if !hasID || !hasResult {
		return false
	}
	var id *int
	if err := json.Unmarshal(idRaw, &id); err != nil || id == nil {
		return false
	}
	return string(resultRaw) == "null"
}

type rawDepthUpdate struct {
	Event            string     `json:"e"`
	EventTimeMs      int64      `json:"E"`
	Symbol           string     `json:"s"`
	FirstUpdateID    int64      `json:"U"`
	LastUpdateID     int64      `json:"u"`
	PrevLastUpdateID *int64     `json:"pu"`
	Bids             [][2]string `json:"b"`
	Asks             [][2]string `json:"a"`
}

type rawTrade struct {
	Event        string `json:"e"`
	EventTimeMs  int64  `json:"E"`
	TradeTimeMs  int64  `json:"T"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	BuyerIsMaker bool   `json:"m"`
}

// kind classifies a decoded inbound frame for dispatch.
type kind int

const (
	kindDepthUpdate kind = iota
	kindTrade
	kindBookTicker
	kindSubscriptionAck
	kindUnknown
)

// decoded is the parsed form of one inbound frame, ready for dispatch.
type decoded struct {
	kind  kind
	depth model.DepthDelta
	trade model.Trade
}

// decodeFrame parses a raw inbound text frame into a dispatchable decoded
// value. Parse errors are returned so the caller can log and drop the
// frame without tearing down the connection.
func decodeFrame(raw []byte) (decoded, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return decoded{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	if env.Data == nil {
		if isSubscriptionAck(raw) {
			return decoded{kind: kindSubscriptionAck}, nil
		}
		return decoded{}, fmt.Errorf("frame has no data payload and is not a subscription ack")
	}

	var tag eventTag
	if err := json.Unmarshal(env.Data, &tag); err != nil {
		return decoded{}, fmt.Errorf("unmarshal event tag: %w", err)
	}

	switch tag.Event {
	case "depthUpdate":
		delta, err := parseDepthUpdate(env.Data)
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kindDepthUpdate, depth: delta}, nil
	case "trade":
		trade, err := parseTrade(env.Data)
		if err != nil {
			return decoded{}, err
		}
		return decoded{kind: kindTrade, trade: trade}, nil
	case "bookTicker":
		return decoded{kind: kindBookTicker}, nil
	default:
		return decoded{kind: kindUnknown}, nil
	}
}

func parseDepthUpdate(raw json.RawMessage) (model.DepthDelta, error) {
	var d rawDepthUpdate
	if err := json.Unmarshal(raw, &d); err != nil {
		return model.DepthDelta{}, fmt.Errorf("unmarshal depthUpdate: %w", err)
	}

	bidChanges, err := toPriceChanges(d.Bids)
	if err != nil {
		return model.DepthDelta{}, err
	}
	askChanges, err := toPriceChanges(d.Asks)
	if err != nil {
		return model.DepthDelta{}, err
	}

	return model.DepthDelta{
		Symbol:           model.NewSymbol(d.Symbol),
		EventTime:        time.UnixMilli(d.EventTimeMs),
		FirstUpdateID:    d.FirstUpdateID,
		LastUpdateID:     d.LastUpdateID,
		PrevLastUpdateID: d.PrevLastUpdateID,
		BidChanges:       bidChanges,
		AskChanges:       askChanges,
	}, nil
}

func parseTrade(raw json.RawMessage) (model.Trade, error) {
	var t rawTrade
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Trade{}, fmt.Errorf("unmarshal trade: %w", err)
	}
	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return model.Trade{}, fmt.Errorf("parse trade price: %w", err)
	}
	qty, err := decimal.NewFromString(t.Quantity)
	if err != nil {
		return model.Trade{}, fmt.Errorf("parse trade quantity: %w", err)
	}
	return model.Trade{
		Symbol:       model.NewSymbol(t.Symbol),
		EventTime:    time.UnixMilli(t.EventTimeMs),
		TradeTime:    time.UnixMilli(t.TradeTimeMs),
		TradeID:      t.TradeID,
		Price:        price,
		Quantity:     qty,
		BuyerIsMaker: t.BuyerIsMaker,
	}, nil
}

func toPriceChanges(levels [][2]string) ([]model.PriceChange, error) {
	out := make([]model.PriceChange, 0, len(levels))
	for _, lvl := range levels {
		price, err := decimal.NewFromString(lvl[0])
		if err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		size, err := decimal.NewFromString(lvl[1])
		if err != nil {
			return nil, fmt.Errorf("parse size: %w", err)
		}
		out = append(out, model.PriceChange{Price: price, Size: size})
	}
	return out, nil
}
