package reconciler

import (
	"math"
	"testing"
	"time"

	"github.com/BullionBear/obsync/pkg/model"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	rev   model.BookRevision
	found bool
}

func (f *fakeStore) FindCovering(symbol model.Symbol, updateID int64) (model.BookRevision, bool) {
	return f.rev, f.found
}
func (f *fakeStore) RecordSnapshotFetch(symbol model.Symbol) {}

func lvl(price, size string) model.PriceLevel {
	return model.PriceLevel{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

// Scenario E: the snapshot matches the covering revision exactly on every
// checked level, so the report is 100% accurate with zero errors.
func TestCorrelate_FullyAccurateSnapshot(t *testing.T) {
	sym := model.NewSymbol("BTCUSDT")
	store := &fakeStore{
		found: true,
		rev: model.BookRevision{
			Bids: []model.PriceLevel{lvl("100", "1"), lvl("99", "2")},
			Asks: []model.PriceLevel{lvl("101", "3")},
		},
	}
	snap := model.RestSnapshot{
		Symbol: sym,
		Bids:   []model.PriceLevel{lvl("100", "1"), lvl("99", "2")},
		Asks:   []model.PriceLevel{lvl("101", "3")},
	}

	report := Correlate(sym, snap, store)
	if report.Checked != 3 || report.Errors != 0 {
		t.Fatalf("expected 3 checked, 0 errors, got %+v", report)
	}
	if math.Abs(report.Accuracy-100) > 1e-9 {
		t.Fatalf("expected 100%% accuracy, got %f", report.Accuracy)
	}
}

// Scenario F: one of three checked levels disagrees, yielding 66.67%
// accuracy with exactly one error.
func TestCorrelate_OneMismatchYields66Point67Percent(t *testing.T) {
	sym := model.NewSymbol("BTCUSDT")
	store := &fakeStore{
		found: true,
		rev: model.BookRevision{
			Bids: []model.PriceLevel{lvl("100", "1"), lvl("99", "2")},
			Asks: []model.PriceLevel{lvl("101", "3")},
		},
	}
	snap := model.RestSnapshot{
		Symbol: sym,
		Bids:   []model.PriceLevel{lvl("100", "1"), lvl("99", "999")}, // mismatched size
		Asks:   []model.PriceLevel{lvl("101", "3")},
	}

	report := Correlate(sym, snap, store)
	if report.Checked != 2 || report.Errors != 1 {
		t.Fatalf("expected 2 checked, 1 error, got %+v", report)
	}
	rounded := math.Round(report.Accuracy*100) / 100
	if rounded != 66.67 {
		t.Fatalf("expected 66.67%% accuracy, got %f", rounded)
	}
}

// A stored level whose snapshot counterpart now reads size zero is a
// concurrent removal, not a mismatch.
func TestCorrelate_ZeroSizeSnapshotLevelIsNotAnError(t *testing.T) {
	sym := model.NewSymbol("BTCUSDT")
	store := &fakeStore{
		found: true,
		rev:   model.BookRevision{Bids: []model.PriceLevel{lvl("100", "1"), lvl("98", "5")}},
	}
	snap := model.RestSnapshot{
		Symbol: sym,
		Bids:   []model.PriceLevel{lvl("100", "1"), lvl("98", "0")},
	}

	report := Correlate(sym, snap, store)
	if report.Errors != 0 || report.Checked != 2 {
		t.Fatalf("expected zero-size snapshot level to count as checked, not an error, got %+v", report)
	}
}

// The REST fetch (limit=1000) routinely returns far more depth than the
// store has accumulated since Seed. Those snapshot-only levels must be
// silently skipped rather than treated as store/snapshot disagreements,
// which pins the comparison direction: iterate the stored revision, look
// up in the snapshot, never the reverse.
func TestCorrelate_ExtraDeepSnapshotLevelsAreIgnored(t *testing.T) {
	sym := model.NewSymbol("BTCUSDT")
	store := &fakeStore{
		found: true,
		rev:   model.BookRevision{Bids: []model.PriceLevel{lvl("100", "1")}},
	}
	snap := model.RestSnapshot{
		Symbol: sym,
		Bids: []model.PriceLevel{
			lvl("100", "1"),
			lvl("50", "3"),
			lvl("40", "2"),
			lvl("30", "7"),
		},
	}

	report := Correlate(sym, snap, store)
	if report.Checked != 1 || report.Errors != 0 {
		t.Fatalf("expected only the one shared level to be checked, got %+v", report)
	}
	if math.Abs(report.Accuracy-100) > 1e-9 {
		t.Fatalf("expected 100%% accuracy, got %f", report.Accuracy)
	}
}

func TestCorrelate_NoCoveringRevisionSetsNoMatch(t *testing.T) {
	sym := model.NewSymbol("BTCUSDT")
	store := &fakeStore{found: false}
	snap := model.RestSnapshot{Symbol: sym, ReceivedAt: time.Now()}

	report := Correlate(sym, snap, store)
	if !report.NoMatch {
		t.Fatalf("expected NoMatch to be set when no covering revision exists")
	}
}
