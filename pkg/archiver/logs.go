// Package archiver drains the accumulated delta, trade, and snapshot logs
// on an hourly cycle, writing them out through the CSV/compress/upload
// pipeline. The logs themselves use the same channel-free,
// mutex-guarded-slice accumulation as the teacher's Chronicler in
// domain/chronicler/chronicler.go, generalized from a single Mongo batch
// to three independently drained containers.
package archiver

import (
	"sync"

	"github.com/BullionBear/obsync/pkg/model"
)

// DeltaLog accumulates every ingested delta, grouped by symbol, until
// drained by the archiver.
type DeltaLog struct {
	mu   sync.Mutex
	bySy map[model.Symbol][]model.DepthDelta
}

// NewDeltaLog creates an empty DeltaLog.
func NewDeltaLog() *DeltaLog {
	return &DeltaLog{bySy: make(map[model.Symbol][]model.DepthDelta)}
}

// Append records delta under its symbol.
func (l *DeltaLog) Append(delta model.DepthDelta) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bySy[delta.Symbol] = append(l.bySy[delta.Symbol], delta)
}

// Drain returns everything accumulated since the last drain and clears the log.
func (l *DeltaLog) Drain() map[model.Symbol][]model.DepthDelta {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.bySy
	l.bySy = make(map[model.Symbol][]model.DepthDelta)
	return out
}

// TradeLog accumulates every observed trade across all symbols.
type TradeLog struct {
	mu     sync.Mutex
	trades []model.Trade
}

// NewTradeLog creates an empty TradeLog.
func NewTradeLog() *TradeLog {
	return &TradeLog{}
}

// Append records trade.
func (l *TradeLog) Append(trade model.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trades = append(l.trades, trade)
}

// Drain returns everything accumulated since the last drain and clears the log.
func (l *TradeLog) Drain() []model.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.trades
	l.trades = nil
	return out
}

// SnapshotLog accumulates REST snapshots observed by the reconciler,
// grouped by symbol.
type SnapshotLog struct {
	mu   sync.Mutex
	bySy map[model.Symbol][]model.RestSnapshot
}

// NewSnapshotLog creates an empty SnapshotLog.
func NewSnapshotLog() *SnapshotLog {
	return &SnapshotLog{bySy: make(map[model.Symbol][]model.RestSnapshot)}
}

// Append records snap under its symbol.
func (l *SnapshotLog) Append(snap model.RestSnapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bySy[snap.Symbol] = append(l.bySy[snap.Symbol], snap)
}

// Drain copies the whole map out under the lock, then clears it — the
// copy-out-before-draining discipline that keeps the exclusive section
// short.
func (l *SnapshotLog) Drain() map[model.Symbol][]model.RestSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.bySy
	l.bySy = make(map[model.Symbol][]model.RestSnapshot)
	return out
}
