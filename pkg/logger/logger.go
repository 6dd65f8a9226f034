package logger

import (
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Package-level variable that holds our configured logger instance.
// It starts with a disabled logger to be safe until it's initialized.
var Log zerolog.Logger = zerolog.New(nil).Level(zerolog.Disabled)

// InitLogger initializes the global logger with the desired configuration.
// This function should be called once, from main(). Development gets a
// human-readable console writer at debug level; production gets plain
// JSON lines at info level, cheap enough for the WebSocket session to log
// on every reconnect attempt without console-formatting overhead.
func InitLogger(isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro

	if !isDevelopment {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		Log = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	outputWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000000",
	}
	Log = zerolog.New(outputWriter).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Get returns the global logger instance.
// This is useful if you need to pass the logger to other libraries that don't use this package directly.
func Get() *zerolog.Logger {
	return &Log
}

// ForSymbol returns a child of base carrying a "symbol" field, used by
// the reconciler to tag every log line touching one symbol's book.
func ForSymbol(base zerolog.Logger, symbol string) zerolog.Logger {
	return base.With().Str("symbol", symbol).Logger()
}

// ForRun returns a child of base tagged with a fresh "runId", plus the id
// itself, so a caller can correlate every line emitted during one
// drain/reconcile cycle without threading the id through by hand.
func ForRun(base zerolog.Logger) (zerolog.Logger, string) {
	runID := uuid.New().String()
	return base.With().Str("runId", runID).Logger(), runID
}
