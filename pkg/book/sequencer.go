// Package book implements the per-symbol book sequencer: a pure function
// (revision, delta) -> revision that promotes an incoming depth delta into
// the next book revision, enforcing the ordering invariant and flagging
// sequence gaps. It performs no I/O and holds no state, mirroring the
// teacher's handleDepthEvent in internal/orderbook/orderbook.go but
// generalized to both the spot and linear-futures contiguity rules instead
// of two copy-pasted types.
package book

import (
	"github.com/BullionBear/obsync/pkg/ladder"
	"github.com/BullionBear/obsync/pkg/model"
)

// Seed creates the first revision for a symbol directly from a delta, with
// Valid = true.
func Seed(delta model.DepthDelta) model.BookRevision {
	return model.BookRevision{
		Symbol:        delta.Symbol,
		Bids:          ladder.Apply(nil, delta.BidChanges, model.SideBid),
		Asks:          ladder.Apply(nil, delta.AskChanges, model.SideAsk),
		FirstUpdateID: delta.FirstUpdateID,
		LastUpdateID:  delta.LastUpdateID,
		EventTime:     delta.EventTime,
		Valid:         true,
	}
}

// IsOrderly reports whether delta is the orderly successor to current,
// per the variant-specific contiguity check: linear-futures deltas carry
// their own previous-last-update-id marker, spot deltas must start exactly
// one past current's last update id.
func IsOrderly(current model.BookRevision, delta model.DepthDelta) bool {
	if delta.IsFutures() {
		return *delta.PrevLastUpdateID == current.LastUpdateID
	}
	return current.LastUpdateID == delta.FirstUpdateID-1
}

// Promote applies delta on top of current, producing the next revision.
// If current is nil, the delta seeds a fresh, valid revision. Otherwise
// Valid on the returned revision is the orderliness predicate against
// current alone: a gap marks only the revision it produces, and a later
// delta contiguous with that revision yields a valid revision again. The
// delta is applied regardless of orderliness, since the degraded mirror is
// still the best available view; nothing in this package reseeds it from a
// REST snapshot.
func Promote(current *model.BookRevision, delta model.DepthDelta) model.BookRevision {
	if current == nil {
		return Seed(delta)
	}

	valid := IsOrderly(*current, delta)

	return model.BookRevision{
		Symbol:        delta.Symbol,
		Bids:          ladder.Apply(current.Bids, delta.BidChanges, model.SideBid),
		Asks:          ladder.Apply(current.Asks, delta.AskChanges, model.SideAsk),
		FirstUpdateID: delta.FirstUpdateID,
		LastUpdateID:  delta.LastUpdateID,
		EventTime:     delta.EventTime,
		Valid:         valid,
	}
}

// GapError builds the SequenceGapError for a non-orderly delta, useful for
// callers that want to log/propagate the specific expected-vs-got ids.
func GapError(current model.BookRevision, delta model.DepthDelta) *model.SequenceGapError {
	expected := current.LastUpdateID
	got := delta.FirstUpdateID - 1
	if delta.IsFutures() {
		got = *delta.PrevLastUpdateID
	}
	return &model.SequenceGapError{Symbol: delta.Symbol, Expected: expected, Got: got}
}
