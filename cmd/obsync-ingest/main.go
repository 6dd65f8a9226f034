// Command obsync-ingest wires together the order-book synchronization
// engine: it subscribes to combined depth/trade streams, maintains the
// in-memory book, periodically reconciles against REST snapshots, and
// archives everything to disk on an hourly cycle. Structured the way the
// teacher's cmd/feed/main.go wires adapters, pub managers, and shutdown
// hooks around a single runFeed entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/BullionBear/obsync/internal/config"
	"github.com/BullionBear/obsync/internal/objectstore"
	"github.com/BullionBear/obsync/pkg/archiver"
	"github.com/BullionBear/obsync/pkg/bookstore"
	"github.com/BullionBear/obsync/pkg/logger"
	"github.com/BullionBear/obsync/pkg/model"
	"github.com/BullionBear/obsync/pkg/reconciler"
	"github.com/BullionBear/obsync/pkg/restclient"
	"github.com/BullionBear/obsync/pkg/shutdown"
	"github.com/BullionBear/obsync/pkg/streamurl"
	"github.com/BullionBear/obsync/pkg/wsclient"
)

// ingestDispatcher routes decoded frames from a wsclient.Session into the
// book store and the archiver's raw logs, the glue the spec describes
// between the WebSocket session and the rest of the engine.
type ingestDispatcher struct {
	store  *bookstore.Store
	deltas *archiver.DeltaLog
	trades *archiver.TradeLog
}

func (d *ingestDispatcher) HandleDepth(delta model.DepthDelta) {
	d.store.Ingest(delta)
	d.deltas.Append(delta)
}

func (d *ingestDispatcher) HandleTrade(trade model.Trade) {
	d.trades.Append(trade)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the ingest engine's YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "obsync-ingest: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(cfg.Development)
	logger.Log.Info().Str("config", *configPath).Msg("obsync-ingest starting")

	sd := shutdown.New(logger.Log)

	store := bookstore.New(logger.Log)
	deltaLog := archiver.NewDeltaLog()
	tradeLog := archiver.NewTradeLog()
	snapshotLog := archiver.NewSnapshotLog()

	restClient := restclient.New(cfg.RestBaseURLs, config.RestRequestTimeout)

	assetType := "SPOT"
	market := streamurl.Spot
	if cfg.Market == "linear_futures" {
		assetType = "LINEAR_FUTURES"
		market = streamurl.LinearFutures
	}

	uploader := objectstore.NewLocalUploader(cfg.Archive.ObjectStorePath)
	bridge := &archiver.Bridge{
		Deltas:    deltaLog,
		Snapshots: snapshotLog,
		Trades:    tradeLog,
		Uploader:  uploader,
		OutputDir: cfg.Archive.Directory,
		AssetType: assetType,
		Logger:    logger.Log,
	}

	stopArchiver := make(chan struct{})
	go bridge.Run(stopArchiver)
	sd.HookShutdownCallback("archiver", func() { close(stopArchiver) }, 30*time.Second)

	feeds := make([]streamurl.Feed, 0, len(cfg.Symbols))
	for _, sc := range cfg.Symbols {
		feeds = append(feeds, streamurl.Depth(sc.Symbol, sc.DepthMs))
	}
	dataRequest := streamurl.NewDataRequest(market, feeds...)
	wsURLs := dataRequest.WSURLs()
	if len(wsURLs) == 0 {
		logger.Log.Error().Msg("obsync-ingest: no symbols configured, nothing to subscribe to")
		os.Exit(1)
	}

	dispatcher := &ingestDispatcher{store: store, deltas: deltaLog, trades: tradeLog}
	session := &wsclient.Session{
		URLs:       wsURLs,
		Dispatcher: dispatcher,
		Logger:     logger.Log,
	}

	runCtx := sd.Context()
	go func() {
		if err := session.Run(runCtx); err != nil && err != context.Canceled {
			logger.Log.Error().Err(err).Msg("obsync-ingest: websocket session terminated")
		}
	}()

	for _, sc := range cfg.Symbols {
		symbol := model.NewSymbol(sc.Symbol)
		rc := reconciler.New(restClient, store, reportLog{}, snapshotLog, logger.Log)
		go rc.Run(runCtx, symbol)

		if err := store.Subscribe(symbol, logBestLevelChange); err != nil {
			logger.Log.Warn().Err(err).Str("symbol", symbol.String()).
				Msg("obsync-ingest: best-level subscribe failed")
		}
	}

	logger.Log.Info().Strs("urls", wsURLs).Msg("obsync-ingest: subscriptions active")
	sd.WaitForShutdown(syscall.SIGINT, syscall.SIGTERM)
	logger.Log.Info().Msg("obsync-ingest: shutdown complete")
}

// reportLog discards reconciliation reports; operators read accuracy and
// error counts from the structured log lines the Reconciler itself emits.
type reportLog struct{}

func (reportLog) Append(reconciler.Report) {}

// logBestLevelChange is the best-level listener wired into the Book
// Store at startup, one per configured symbol. It is pure observability:
// the Reconciler and Archiver read the store directly and never go
// through this hook.
func logBestLevelChange(symbol model.Symbol, bestBid, bestAsk model.PriceLevel) {
	logger.Log.Debug().Str("symbol", symbol.String()).
		Str("bestBid", bestBid.Price.String()).Str("bestBidSize", bestBid.Size.String()).
		Str("bestAsk", bestAsk.Price.String()).Str("bestAskSize", bestAsk.Size.String()).
		Msg("bookstore: best level changed")
}
