// Package streamurl builds combined-stream WebSocket URLs from a market
// type and a set of requested feeds, the same way the teacher hard-codes
// WSBaseURL in pkg/exchange/binance/const.go but generalized into a small
// request/builder pair instead of a single constant.
package streamurl

import (
	"strconv"
	"strings"
)

// Market selects which base host a DataRequest resolves against.
type Market int

const (
	Spot Market = iota
	LinearFutures
)

func (m Market) baseURL() string {
	if m == LinearFutures {
		return "wss://fstream.binance.com"
	}
	return "wss://stream.binance.com:9443"
}

// Feed is a single subscribed depth stream: a symbol paired with the
// stream's update interval in milliseconds.
type Feed struct {
	Symbol string
	Depth  int
}

func (f Feed) streamName() string {
	return strings.ToLower(f.Symbol) + "@depth@" + strconv.Itoa(f.Depth) + "ms"
}

// DataRequest describes everything needed to build one combined-stream
// connection URL for a market and a list of feeds.
type DataRequest struct {
	Market Market
	Feeds  []Feed
}

// NewDataRequest constructs a DataRequest for market over feeds.
func NewDataRequest(market Market, feeds ...Feed) DataRequest {
	return DataRequest{Market: market, Feeds: feeds}
}

// Depth is a convenience constructor for a depth-stream Feed.
func Depth(symbol string, depthMs int) Feed {
	return Feed{Symbol: symbol, Depth: depthMs}
}

// WSURLs returns the list of combined-stream URLs this request resolves
// to. Today every request collapses into a single combined-stream URL,
// but the method returns a slice so callers never need to special-case a
// future request shape that spans multiple connections.
func (r DataRequest) WSURLs() []string {
	if len(r.Feeds) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Feeds))
	for _, f := range r.Feeds {
		names = append(names, f.streamName())
	}
	return []string{r.Market.baseURL() + "/stream?streams=" + strings.Join(names, "/")}
}
