// Package model defines the data shapes shared by every component of the
// order-book synchronization engine: symbols, decimal prices/sizes, ladder
// levels, book revisions, inbound deltas/trades, and REST snapshots.
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is a case-normalized instrument identifier, always uppercase ASCII.
type Symbol string

// NewSymbol normalizes raw into a Symbol.
func NewSymbol(raw string) Symbol {
	return Symbol(strings.ToUpper(strings.TrimSpace(raw)))
}

func (s Symbol) String() string {
	return string(s)
}

// Side discriminates which ladder a price level or change belongs to.
type Side int

const (
	SideBid Side = iota
	SideAsk
)

func (s Side) String() string {
	if s == SideBid {
		return "bid"
	}
	return "ask"
}

// TradeSide is the derived buy/sell side of a Trade.
type TradeSide int

const (
	TradeSideBuy TradeSide = iota
	TradeSideSell
)

func (s TradeSide) String() string {
	if s == TradeSideBuy {
		return "BUY"
	}
	return "SELL"
}

// PriceLevel is a single rung of a ladder. Size must be > 0; a size of zero
// is the delta-encoded removal signal and must never be stored.
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// PriceChange is an incoming (price, size) pair from a delta or snapshot.
// Size of zero means "remove this price level".
type PriceChange struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// DepthDelta is one incremental depth-update message. PrevLastUpdateID is
// present for the linear-futures variant and nil for spot.
type DepthDelta struct {
	Symbol           Symbol
	EventTime        time.Time
	FirstUpdateID    int64
	LastUpdateID     int64
	PrevLastUpdateID *int64
	BidChanges       []PriceChange
	AskChanges       []PriceChange
}

// IsFutures reports whether this delta carries the linear-futures
// contiguity marker.
func (d DepthDelta) IsFutures() bool {
	return d.PrevLastUpdateID != nil
}

// Trade is a single executed trade reported over the stream.
type Trade struct {
	Symbol       Symbol
	EventTime    time.Time
	TradeTime    time.Time
	TradeID      int64
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	BuyerIsMaker bool
}

// TradeSide derives the Trade's side: SELL if the buyer was the maker,
// BUY otherwise.
func (t Trade) TradeSide() TradeSide {
	if t.BuyerIsMaker {
		return TradeSideSell
	}
	return TradeSideBuy
}

// RestSnapshot is an independently fetched REST order-book snapshot.
type RestSnapshot struct {
	Symbol       Symbol
	LastUpdateID int64
	Bids         []PriceLevel
	Asks         []PriceLevel
	ReceivedAt   time.Time
}

// BookRevision is an immutable snapshot of a book between two consecutive
// deltas, tagged by the id range it spans.
type BookRevision struct {
	Symbol        Symbol
	Bids          []PriceLevel
	Asks          []PriceLevel
	FirstUpdateID int64
	LastUpdateID  int64
	EventTime     time.Time
	Valid         bool
}

// Clone returns a deep copy of the revision so callers holding the result
// never observe mutation of store-internal ladders.
func (r BookRevision) Clone() BookRevision {
	out := r
	out.Bids = append([]PriceLevel(nil), r.Bids...)
	out.Asks = append([]PriceLevel(nil), r.Asks...)
	return out
}

// Covers reports whether updateID falls within [FirstUpdateID, LastUpdateID].
func (r BookRevision) Covers(updateID int64) bool {
	return r.FirstUpdateID <= updateID && updateID <= r.LastUpdateID
}
