// Package bookstore holds the latest and recent historical revisions for
// every tracked symbol and publishes best-level changes to subscribers. It
// does not append the raw delta/trade logs; those live in pkg/archiver and
// are fed by the caller. It generalizes the teacher's
// per-symbol map-plus-mutex layout in internal/orderbook/orderbookmanager.go
// and its EventBus-based SubscribeBestDepth hook.
package bookstore

import (
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
	"github.com/rs/zerolog"

	"github.com/BullionBear/obsync/pkg/book"
	"github.com/BullionBear/obsync/pkg/model"
)

// historyCapacity bounds how many past revisions are retained per symbol.
const historyCapacity = 100

// BestLevelListener is notified whenever a symbol's top-of-book bid or ask
// changes as a result of an ingested delta.
type BestLevelListener func(symbol model.Symbol, bestBid, bestAsk model.PriceLevel)

// Stats are the per-symbol operational counters the operator surfaces
// alongside a book (mirroring the teacher's numUpdateCall/numSnapshotCall).
type Stats struct {
	Deltas    int64
	Invalid   int64
	Snapshots int64
}

type symbolState struct {
	mu      sync.RWMutex
	history []model.BookRevision // newest-first, capped at historyCapacity
	bestBid model.PriceLevel
	bestAsk model.PriceLevel

	deltas    int64
	invalid   int64
	snapshots int64
}

// Store is the concurrency-safe holder of all tracked symbols' book state.
type Store struct {
	mu      sync.RWMutex
	symbols map[model.Symbol]*symbolState
	bus     evbus.Bus
	logger  zerolog.Logger
}

// New creates an empty Store that logs sequence gaps through logger.
func New(logger zerolog.Logger) *Store {
	return &Store{
		symbols: make(map[model.Symbol]*symbolState),
		bus:     evbus.New(),
		logger:  logger,
	}
}

func (s *Store) stateFor(symbol model.Symbol) *symbolState {
	s.mu.RLock()
	st, ok := s.symbols[symbol]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.symbols[symbol]; ok {
		return st
	}
	st = &symbolState{}
	s.symbols[symbol] = st
	return st
}

// Ingest promotes delta on top of the symbol's latest revision (seeding if
// none exists yet), pushes the result onto the bounded history, and
// publishes a best-level change notification if the top of book moved.
func (s *Store) Ingest(delta model.DepthDelta) model.BookRevision {
	st := s.stateFor(delta.Symbol)

	st.mu.Lock()
	var current *model.BookRevision
	var currentVal model.BookRevision
	if len(st.history) > 0 {
		// Copy out rather than alias st.history[0]: prependCapped below can
		// grow the slice in place and overwrite this backing array before
		// the gap-error log line below reads it.
		currentVal = st.history[0]
		current = &currentVal
	}
	next := book.Promote(current, delta)

	st.history = prependCapped(st.history, next, historyCapacity)
	atomic.AddInt64(&st.deltas, 1)
	if !next.Valid {
		atomic.AddInt64(&st.invalid, 1)
		if current != nil {
			s.logger.Warn().Err(book.GapError(*current, delta)).Str("symbol", delta.Symbol.String()).
				Msg("bookstore: sequence gap detected, marking revision invalid")
		}
	}

	var bestBid, bestAsk model.PriceLevel
	changed := false
	if len(next.Bids) > 0 && next.Bids[0] != st.bestBid {
		st.bestBid = next.Bids[0]
		changed = true
	}
	if len(next.Asks) > 0 && next.Asks[0] != st.bestAsk {
		st.bestAsk = next.Asks[0]
		changed = true
	}
	bestBid, bestAsk = st.bestBid, st.bestAsk
	st.mu.Unlock()

	if changed {
		s.bus.Publish(channelName(delta.Symbol), delta.Symbol, bestBid, bestAsk)
	}
	return next
}

func prependCapped(history []model.BookRevision, next model.BookRevision, cap int) []model.BookRevision {
	history = append(history, model.BookRevision{})
	copy(history[1:], history[:len(history)-1])
	history[0] = next
	if len(history) > cap {
		history = history[:cap]
	}
	return history
}

// Latest returns the most recent revision for symbol, if any.
func (s *Store) Latest(symbol model.Symbol) (model.BookRevision, bool) {
	st := s.stateFor(symbol)
	st.mu.RLock()
	defer st.mu.RUnlock()
	if len(st.history) == 0 {
		return model.BookRevision{}, false
	}
	return st.history[0].Clone(), true
}

// FindCovering returns the newest-to-oldest first revision in history whose
// [FirstUpdateID, LastUpdateID] range covers updateID.
func (s *Store) FindCovering(symbol model.Symbol, updateID int64) (model.BookRevision, bool) {
	st := s.stateFor(symbol)
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, rev := range st.history {
		if rev.Covers(updateID) {
			return rev.Clone(), true
		}
	}
	return model.BookRevision{}, false
}

// SnapshotAll returns the latest revision for every tracked symbol.
func (s *Store) SnapshotAll() map[model.Symbol]model.BookRevision {
	s.mu.RLock()
	symbols := make([]model.Symbol, 0, len(s.symbols))
	for sym := range s.symbols {
		symbols = append(symbols, sym)
	}
	s.mu.RUnlock()

	out := make(map[model.Symbol]model.BookRevision, len(symbols))
	for _, sym := range symbols {
		if rev, ok := s.Latest(sym); ok {
			out[sym] = rev
		}
	}
	return out
}

// RecordSnapshotFetch increments the per-symbol REST snapshot counter,
// used by the reconciler to report how often it has fetched a snapshot.
// It does not change the stored book.
func (s *Store) RecordSnapshotFetch(symbol model.Symbol) {
	st := s.stateFor(symbol)
	atomic.AddInt64(&st.snapshots, 1)
}

// StatsFor returns the operational counters for symbol.
func (s *Store) StatsFor(symbol model.Symbol) Stats {
	st := s.stateFor(symbol)
	return Stats{
		Deltas:    atomic.LoadInt64(&st.deltas),
		Invalid:   atomic.LoadInt64(&st.invalid),
		Snapshots: atomic.LoadInt64(&st.snapshots),
	}
}

// Subscribe registers listener for best-level changes on symbol.
func (s *Store) Subscribe(symbol model.Symbol, listener BestLevelListener) error {
	return s.bus.SubscribeAsync(channelName(symbol), func(sym model.Symbol, bid, ask model.PriceLevel) {
		listener(sym, bid, ask)
	}, false)
}

func channelName(symbol model.Symbol) string {
	return symbol.String() + ":best"
}
