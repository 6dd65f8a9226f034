// Package reconciler periodically cross-checks the in-memory book against
// an independently fetched REST snapshot, in the same ticker-driven
// goroutine shape as the teacher's ping loop in
// pkg/exchange/binance/ws.go, generalized from "send a ping" to "fetch a
// snapshot and compare".
package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/BullionBear/obsync/pkg/logger"
	"github.com/BullionBear/obsync/pkg/model"
)

const (
	// tickInterval is how often a reconciliation pass is attempted per symbol.
	tickInterval = 10 * time.Second
	// settleDelay is how long to wait after a snapshot is fetched before
	// comparing it, giving in-flight deltas covering its update id a chance
	// to land in the store.
	settleDelay = 5 * time.Second
)

// SnapshotFetcher fetches an independent REST snapshot for a symbol.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, symbol model.Symbol, limit int) (model.RestSnapshot, error)
}

// Store is the subset of bookstore.Store the reconciler depends on.
type Store interface {
	FindCovering(symbol model.Symbol, updateID int64) (model.BookRevision, bool)
	RecordSnapshotFetch(symbol model.Symbol)
}

// Report is the outcome of one reconciliation pass, unconditionally
// appended to the snapshot log regardless of whether it found errors.
type Report struct {
	Symbol   model.Symbol
	At       time.Time
	Checked  int // levels found in the snapshot with a matching size
	Errors   int // levels found in the snapshot with a mismatched nonzero size
	Reseeded bool
	NoMatch  bool
	Accuracy float64 // 100 * Checked / (Checked + Errors), 0 if both are 0
}

// SnapshotLog receives every completed reconciliation report.
type SnapshotLog interface {
	Append(Report)
}

// RawSnapshotArchive receives every REST snapshot fetched during
// reconciliation, independent of the Report built from it, so the
// archiver can persist the raw levels alongside the reports.
type RawSnapshotArchive interface {
	Append(model.RestSnapshot)
}

// Reconciler runs one periodic reconciliation loop per symbol.
type Reconciler struct {
	fetcher SnapshotFetcher
	store   Store
	log     SnapshotLog
	archive RawSnapshotArchive
	logger  zerolog.Logger
}

// New creates a Reconciler. archive may be nil if raw snapshots do not
// need to be persisted separately from reports.
func New(fetcher SnapshotFetcher, store Store, log SnapshotLog, archive RawSnapshotArchive, logger zerolog.Logger) *Reconciler {
	return &Reconciler{fetcher: fetcher, store: store, log: log, archive: archive, logger: logger}
}

// Run drives the reconciliation loop for symbol until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context, symbol model.Symbol) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcileOnce(ctx, symbol)
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context, symbol model.Symbol) {
	symLogger := logger.ForSymbol(r.logger, symbol.String())

	snap, err := r.fetcher.FetchSnapshot(ctx, symbol, 1000)
	if err != nil {
		symLogger.Warn().Err(err).Msg("reconciler: snapshot fetch failed")
		return
	}
	r.store.RecordSnapshotFetch(symbol)
	if r.archive != nil {
		r.archive.Append(snap)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	report := Correlate(symbol, snap, r.store)
	r.log.Append(report)

	if report.NoMatch {
		symLogger.Warn().Int64("lastUpdateId", snap.LastUpdateID).
			Msg("reconciler: no covering revision found for snapshot")
		return
	}
	if report.Errors > 0 {
		symLogger.Warn().Int("errors", report.Errors).
			Int("checked", report.Checked).Float64("accuracy", report.Accuracy).
			Msg("reconciler: mismatch between snapshot and book")
		return
	}
	symLogger.Info().Int("checked", report.Checked).
		Msg("reconciler: book accurate against snapshot")
}

// Correlate compares snap against the store's revision covering its
// lastUpdateId and produces a Report. For every level held in the stored
// revision, a matching snapshot level at the same price is looked up: a
// size match (or a snapshot size of zero, treated as a concurrent
// removal) increments checked; a nonzero size mismatch increments
// errors. A stored level with no snapshot entry at all — for example a
// deep level the REST fetch's limit didn't reach, or vice versa a deep
// snapshot level the store hasn't accumulated yet — changes neither
// counter, so the comparison is confined to levels both sides actually
// observed.
func Correlate(symbol model.Symbol, snap model.RestSnapshot, store Store) Report {
	report := Report{Symbol: symbol, At: snap.ReceivedAt}

	rev, ok := store.FindCovering(symbol, snap.LastUpdateID)
	if !ok {
		report.NoMatch = true
		return report
	}

	checkSide := func(storeSide, snapSide []model.PriceLevel) (checked, errs int) {
		snapByPrice := make(map[string]model.PriceLevel, len(snapSide))
		for _, lvl := range snapSide {
			snapByPrice[lvl.Price.String()] = lvl
		}
		for _, storeLvl := range storeSide {
			snapLvl, present := snapByPrice[storeLvl.Price.String()]
			if !present {
				continue // not observed by the snapshot; neither counter changes
			}
			if snapLvl.Size.Sign() == 0 || storeLvl.Size.Equal(snapLvl.Size) {
				checked++
				continue
			}
			errs++
		}
		return
	}

	bidsChecked, bidsErrs := checkSide(rev.Bids, snap.Bids)
	asksChecked, asksErrs := checkSide(rev.Asks, snap.Asks)

	report.Checked = bidsChecked + asksChecked
	report.Errors = bidsErrs + asksErrs
	if total := report.Checked + report.Errors; total > 0 {
		report.Accuracy = 100 * float64(report.Checked) / float64(total)
	}
	return report
}
