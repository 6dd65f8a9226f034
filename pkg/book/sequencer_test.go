package book

import (
	"testing"
	"time"

	"github.com/BullionBear/obsync/pkg/model"
	"github.com/shopspring/decimal"
)

func chg(price, size string) model.PriceChange {
	return model.PriceChange{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func spotDelta(first, last int64) model.DepthDelta {
	return model.DepthDelta{
		Symbol:        model.NewSymbol("BTCUSDT"),
		EventTime:     time.Unix(0, 0),
		FirstUpdateID: first,
		LastUpdateID:  last,
		BidChanges:    []model.PriceChange{chg("100", "1")},
		AskChanges:    []model.PriceChange{chg("101", "1")},
	}
}

func futuresDelta(prevLast, last int64) model.DepthDelta {
	p := prevLast
	return model.DepthDelta{
		Symbol:           model.NewSymbol("BTCUSDT"),
		EventTime:        time.Unix(0, 0),
		FirstUpdateID:    last - 1,
		LastUpdateID:     last,
		PrevLastUpdateID: &p,
		BidChanges:       []model.PriceChange{chg("100", "1")},
		AskChanges:       []model.PriceChange{chg("101", "1")},
	}
}

// Scenario A: spot deltas arrive contiguously, each revision stays valid.
func TestPromote_SpotContiguous(t *testing.T) {
	rev := Seed(spotDelta(101, 105))
	if !rev.Valid {
		t.Fatalf("seed revision should be valid")
	}
	next := Promote(&rev, spotDelta(106, 110))
	if !next.Valid {
		t.Fatalf("expected contiguous spot delta to stay valid")
	}
	if next.LastUpdateID != 110 {
		t.Fatalf("expected last update id 110, got %d", next.LastUpdateID)
	}
}

// Scenario B: a spot delta skips ids, the resulting revision is marked invalid.
func TestPromote_SpotGap(t *testing.T) {
	rev := Seed(spotDelta(101, 105))
	next := Promote(&rev, spotDelta(107, 110))
	if next.Valid {
		t.Fatalf("expected gapped spot delta to be invalid")
	}
	if next.LastUpdateID != 110 {
		t.Fatalf("gapped delta must still be applied, got last update id %d", next.LastUpdateID)
	}
}

// Scenario C: linear-futures deltas are contiguous via prevLastUpdateId,
// then a gap appears and the revision is marked invalid.
func TestPromote_FuturesContiguousThenGap(t *testing.T) {
	rev := Seed(futuresDelta(0, 100))
	next := Promote(&rev, futuresDelta(100, 105))
	if !next.Valid {
		t.Fatalf("expected contiguous futures delta to stay valid")
	}

	gapped := Promote(&next, futuresDelta(999, 1005))
	if gapped.Valid {
		t.Fatalf("expected futures delta with stale prevLastUpdateId to be invalid")
	}
}

func TestIsOrderly_SpotBoundary(t *testing.T) {
	rev := Seed(spotDelta(101, 105))
	if !IsOrderly(rev, spotDelta(106, 110)) {
		t.Fatalf("expected first=last+1 to be orderly")
	}
	if IsOrderly(rev, spotDelta(107, 110)) {
		t.Fatalf("expected first=last+2 to be a gap")
	}
}

func TestGapError_ReportsExpectedAndGot(t *testing.T) {
	rev := Seed(spotDelta(101, 105))
	delta := spotDelta(107, 110)
	err := GapError(rev, delta)
	if err.Expected != 105 || err.Got != 106 {
		t.Fatalf("unexpected gap error fields: %+v", err)
	}
}
