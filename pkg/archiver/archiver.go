package archiver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/BullionBear/obsync/internal/compressor"
	"github.com/BullionBear/obsync/internal/csvarchive"
	"github.com/BullionBear/obsync/internal/objectstore"
	"github.com/BullionBear/obsync/pkg/logger"
	"github.com/BullionBear/obsync/pkg/model"
)

const (
	warmUp      = time.Hour
	cyclePeriod = time.Hour
)

// Uploader is the subset of objectstore.Uploader the bridge depends on.
type Uploader interface {
	Upload(localPath string) error
}

// Bridge drains DeltaLog, SnapshotLog, and TradeLog on a fixed interval and
// hands each grouped batch through the CSV writer, the compressor, and the
// object-storage uploader, mirroring the teacher's Chronicler batch-flush
// loop but fanned out across three independent sources instead of one.
type Bridge struct {
	Deltas    *DeltaLog
	Snapshots *SnapshotLog
	Trades    *TradeLog
	Uploader  Uploader
	OutputDir string
	AssetType string // e.g. "SPOT" or "LINEAR_FUTURES"
	Logger    zerolog.Logger
}

// Run blocks, draining on an hourly cycle after an hour-long warm-up, until
// stop is closed.
func (b *Bridge) Run(stop <-chan struct{}) {
	select {
	case <-time.After(warmUp):
	case <-stop:
		return
	}

	ticker := time.NewTicker(cyclePeriod)
	defer ticker.Stop()

	for {
		b.drainOnce()
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (b *Bridge) drainOnce() {
	runLogger, _ := logger.ForRun(b.Logger)
	run := *b
	run.Logger = runLogger

	if err := os.MkdirAll(b.OutputDir, 0o755); err != nil {
		runLogger.Error().Err(err).Msg("archiver: failed to create output directory")
		return
	}

	runLogger.Info().Msg("archiver: drain cycle starting")
	run.drainDeltas()
	run.drainSnapshots()
	run.drainTrades()
	runLogger.Info().Msg("archiver: drain cycle complete")
}

func (b *Bridge) drainDeltas() {
	bySy := b.Deltas.Drain()
	for symbol, deltas := range bySy {
		if len(deltas) == 0 {
			continue
		}
		name := b.fileBaseName(symbol, "BOOK_HISTORY")
		rows := func(w *csvarchive.Writer) error {
			for _, d := range deltas {
				if err := writeChangeRows(w, d.EventTime, d.BidChanges, d.AskChanges); err != nil {
					return err
				}
			}
			return nil
		}
		b.writeCompressAndUpload(name, rows)
	}
}

func (b *Bridge) drainSnapshots() {
	bySy := b.Snapshots.Drain()
	for symbol, snaps := range bySy {
		if len(snaps) == 0 {
			continue
		}
		name := b.fileBaseName(symbol, "BOOK_SNAPSHOT")
		rows := func(w *csvarchive.Writer) error {
			for _, s := range snaps {
				bidChanges := toChanges(s.Bids)
				askChanges := toChanges(s.Asks)
				if err := writeChangeRows(w, s.ReceivedAt, bidChanges, askChanges); err != nil {
					return err
				}
			}
			return nil
		}
		b.writeCompressAndUpload(name, rows)
	}
}

func (b *Bridge) drainTrades() {
	trades := b.Trades.Drain()
	if len(trades) == 0 {
		return
	}
	rows := func(w *csvarchive.Writer) error {
		for _, t := range trades {
			row := []string{
				t.Symbol.String(),
				strconv.FormatInt(t.EventTime.UnixMilli(), 10),
				strconv.FormatInt(t.TradeTime.UnixMilli(), 10),
				strconv.FormatInt(t.TradeID, 10),
				t.Price.String(),
				t.Quantity.String(),
				t.TradeSide().String(),
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}
		return nil
	}
	b.writeCompressAndUpload("TRADES", rows)
}

func toChanges(levels []model.PriceLevel) []model.PriceChange {
	out := make([]model.PriceChange, 0, len(levels))
	for _, l := range levels {
		out = append(out, model.PriceChange{Price: l.Price, Size: l.Size})
	}
	return out
}

// writeChangeRows emits one (timestamp, price, signed_quantity) row per
// changed level, negating ask quantities.
func writeChangeRows(w *csvarchive.Writer, ts time.Time, bidChanges, askChanges []model.PriceChange) error {
	timestamp := strconv.FormatInt(ts.UnixMilli(), 10)
	for _, c := range bidChanges {
		if err := w.WriteRow([]string{timestamp, c.Price.String(), c.Size.String()}); err != nil {
			return err
		}
	}
	for _, c := range askChanges {
		negated := c.Size.Neg()
		if err := w.WriteRow([]string{timestamp, c.Price.String(), negated.String()}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) fileBaseName(symbol model.Symbol, kind string) string {
	return fmt.Sprintf("%s_%s_%s", b.AssetType, symbol.String(), kind)
}

// tradeHeader/deltaHeader are the CSV header rows per output kind.
var deltaHeader = []string{"timestamp", "price", "signed_quantity"}
var tradeHeader = []string{"symbol", "event_time", "trade_time", "trade_id", "price", "quantity", "side"}

// writeCompressAndUpload writes rows to a local CSV file named base+".csv",
// compresses it to base+".csv.gz", deletes the uncompressed original on
// success, and hands the compressed file to the uploader. If the upload
// fails, the compressed file is deliberately left on disk — the bridge
// does not retry, so the next cycle's operator can observe the residue.
func (b *Bridge) writeCompressAndUpload(base string, writeRows func(*csvarchive.Writer) error) {
	header := deltaHeader
	if base == "TRADES" {
		header = tradeHeader
	}

	csvPath := filepath.Join(b.OutputDir, base+".csv")
	if err := b.writeCSV(csvPath, header, writeRows); err != nil {
		b.Logger.Error().Err(err).Str("file", csvPath).Msg("archiver: failed to write archive file")
		return
	}

	gzPath := csvPath + ".gz"
	if err := b.compressFile(csvPath, gzPath); err != nil {
		b.Logger.Error().Err(err).Str("file", csvPath).Msg("archiver: failed to compress archive file")
		return
	}
	if err := os.Remove(csvPath); err != nil {
		b.Logger.Warn().Err(err).Str("file", csvPath).Msg("archiver: failed to remove uncompressed original")
	}

	if err := b.Uploader.Upload(gzPath); err != nil {
		b.Logger.Error().Err(err).Str("file", gzPath).
			Msg("archiver: upload failed, keeping compressed file on disk for the next cycle to observe")
		return
	}
	if err := os.Remove(gzPath); err != nil {
		b.Logger.Warn().Err(err).Str("file", gzPath).Msg("archiver: failed to remove uploaded compressed file")
	}
}

func (b *Bridge) writeCSV(path string, header []string, writeRows func(*csvarchive.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w, err := csvarchive.NewWriter(f, header)
	if err != nil {
		return fmt.Errorf("init csv writer for %s: %w", path, err)
	}
	return writeRows(w)
}

func (b *Bridge) compressFile(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer dest.Close()

	gz := compressor.NewWriter(dest)
	if _, err := io.Copy(gz, src); err != nil {
		return fmt.Errorf("compress %s: %w", srcPath, err)
	}
	return gz.Close()
}

var _ objectstore.Uploader = (*objectstore.LocalUploader)(nil)
