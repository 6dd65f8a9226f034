package archiver

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/BullionBear/obsync/internal/objectstore"
	"github.com/BullionBear/obsync/pkg/model"
)

func lvl(price, size string) model.PriceLevel {
	return model.PriceLevel{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func chg(price, size string) model.PriceChange {
	return model.PriceChange{Price: decimal.RequireFromString(price), Size: decimal.RequireFromString(size)}
}

func newTestBridge(t *testing.T) (*Bridge, string) {
	t.Helper()
	outDir := t.TempDir()
	uploadDir := filepath.Join(t.TempDir(), "uploaded")
	return &Bridge{
		Deltas:    NewDeltaLog(),
		Snapshots: NewSnapshotLog(),
		Trades:    NewTradeLog(),
		Uploader:  objectstore.NewLocalUploader(uploadDir),
		OutputDir: outDir,
		AssetType: "SPOT",
		Logger:    zerolog.Nop(),
	}, uploadDir
}

func TestDrainOnce_DeltasProduceNegatedAskRows(t *testing.T) {
	b, uploadDir := newTestBridge(t)
	sym := model.NewSymbol("BTCUSDT")

	b.Deltas.Append(model.DepthDelta{
		Symbol:     sym,
		EventTime:  time.UnixMilli(1000),
		BidChanges: []model.PriceChange{chg("100", "1")},
		AskChanges: []model.PriceChange{chg("101", "2")},
	})

	b.drainOnce()

	uploaded, err := os.ReadFile(filepath.Join(uploadDir, "SPOT_BTCUSDT_BOOK_HISTORY.csv.gz"))
	if err != nil {
		t.Fatalf("expected uploaded delta archive, got error: %v", err)
	}
	if len(uploaded) == 0 {
		t.Fatalf("expected non-empty compressed archive")
	}
	zr, err := gzip.NewReader(bytes.NewReader(uploaded))
	if err != nil {
		t.Fatalf("expected a gzip archive: %v", err)
	}
	content, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("failed to decompress archive: %v", err)
	}
	if !strings.Contains(string(content), "1000,100,1\n") || !strings.Contains(string(content), "1000,101,-2\n") {
		t.Fatalf("expected a positive bid row and a negated ask row, got %q", content)
	}

	if _, err := os.Stat(filepath.Join(b.OutputDir, "SPOT_BTCUSDT_BOOK_HISTORY.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected uncompressed original to be removed after compression")
	}
}

func TestDrainOnce_SnapshotsAndTradesProduceSeparateFiles(t *testing.T) {
	b, uploadDir := newTestBridge(t)
	sym := model.NewSymbol("ETHUSDT")

	b.Snapshots.Append(model.RestSnapshot{
		Symbol:     sym,
		Bids:       []model.PriceLevel{lvl("100", "1")},
		Asks:       []model.PriceLevel{lvl("101", "2")},
		ReceivedAt: time.UnixMilli(5000),
	})
	b.Trades.Append(model.Trade{
		Symbol:       sym,
		EventTime:    time.UnixMilli(6000),
		TradeTime:    time.UnixMilli(6000),
		TradeID:      42,
		Price:        decimal.RequireFromString("100"),
		Quantity:     decimal.RequireFromString("1"),
		BuyerIsMaker: true,
	})

	b.drainOnce()

	if _, err := os.Stat(filepath.Join(uploadDir, "SPOT_ETHUSDT_BOOK_SNAPSHOT.csv.gz")); err != nil {
		t.Fatalf("expected snapshot archive to be uploaded: %v", err)
	}
	if _, err := os.Stat(filepath.Join(uploadDir, "TRADES.csv.gz")); err != nil {
		t.Fatalf("expected trades archive to be uploaded: %v", err)
	}
}

func TestDrainOnce_EmptyLogsProduceNoFiles(t *testing.T) {
	b, uploadDir := newTestBridge(t)
	b.drainOnce()

	entries, err := os.ReadDir(uploadDir)
	if err == nil && len(entries) != 0 {
		t.Fatalf("expected no uploaded files for empty logs, got %v", entries)
	}
}

func TestDrainOnce_UploadFailureKeepsCompressedResidue(t *testing.T) {
	b, _ := newTestBridge(t)
	sym := model.NewSymbol("BTCUSDT")
	b.Deltas.Append(model.DepthDelta{
		Symbol:     sym,
		EventTime:  time.UnixMilli(1000),
		BidChanges: []model.PriceChange{chg("100", "1")},
	})
	b.Uploader = failingUploader{}

	b.drainOnce()

	gzPath := filepath.Join(b.OutputDir, "SPOT_BTCUSDT_BOOK_HISTORY.csv.gz")
	if _, err := os.Stat(gzPath); err != nil {
		t.Fatalf("expected compressed file to remain on disk after failed upload: %v", err)
	}
}

type failingUploader struct{}

func (failingUploader) Upload(localPath string) error {
	return errors.New("simulated upload failure")
}

func TestDeltaLog_DrainClearsAndGroupsBySymbol(t *testing.T) {
	log := NewDeltaLog()
	sym := model.NewSymbol("BTCUSDT")
	log.Append(model.DepthDelta{Symbol: sym})
	log.Append(model.DepthDelta{Symbol: sym})

	drained := log.Drain()
	if len(drained[sym]) != 2 {
		t.Fatalf("expected 2 deltas drained, got %d", len(drained[sym]))
	}
	if len(log.Drain()) != 0 {
		t.Fatalf("expected log to be empty after drain")
	}
}

func TestHeader_DeltaRowsAreTimestampPriceSignedQuantity(t *testing.T) {
	if strings.Join(deltaHeader, ",") != "timestamp,price,signed_quantity" {
		t.Fatalf("unexpected delta header: %v", deltaHeader)
	}
}
