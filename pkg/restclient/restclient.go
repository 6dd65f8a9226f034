// Package restclient fetches REST order-book snapshots from one or more
// candidate hosts, in the shape of the teacher's Client.GetOrderBook in
// pkg/exchange/binance/client.go: a plain net/http.Client, context-scoped
// requests, and a typed JSON response.
package restclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/BullionBear/obsync/pkg/model"
)

// rawLevel mirrors the wire shape of a single [price, size] pair in a
// Binance depth snapshot.
type rawLevel [2]string

func (l rawLevel) toChange() (model.PriceChange, error) {
	price, err := decimal.NewFromString(l[0])
	if err != nil {
		return model.PriceChange{}, fmt.Errorf("parse price: %w", err)
	}
	size, err := decimal.NewFromString(l[1])
	if err != nil {
		return model.PriceChange{}, fmt.Errorf("parse size: %w", err)
	}
	return model.PriceChange{Price: price, Size: size}, nil
}

type rawSnapshot struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         []rawLevel `json:"bids"`
	Asks         []rawLevel `json:"asks"`
}

// Client fetches snapshots over HTTP from one of several candidate base
// URLs, trying each in order until one succeeds.
type Client struct {
	httpClient *http.Client
	baseURLs   []string
}

// New creates a Client that will try each of baseURLs in order on every
// fetch, with requestTimeout applied per attempt.
func New(baseURLs []string, requestTimeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURLs:   baseURLs,
	}
}

// FetchSnapshot requests a depth snapshot for symbol with up to limit
// levels per side. It tries every configured base URL in turn and returns
// the first successful response; if all candidates fail, it returns the
// last error encountered.
func (c *Client) FetchSnapshot(ctx context.Context, symbol model.Symbol, limit int) (model.RestSnapshot, error) {
	if len(c.baseURLs) == 0 {
		return model.RestSnapshot{}, fmt.Errorf("restclient: no base URLs configured")
	}

	var lastErr error
	for _, base := range c.baseURLs {
		snap, err := c.fetchFrom(ctx, base, symbol, limit)
		if err == nil {
			return snap, nil
		}
		lastErr = err
	}
	return model.RestSnapshot{}, fmt.Errorf("restclient: all candidates failed for %s: %w", symbol, lastErr)
}

func (c *Client) fetchFrom(ctx context.Context, base string, symbol model.Symbol, limit int) (model.RestSnapshot, error) {
	params := url.Values{}
	params.Set("symbol", symbol.String())
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v3/depth?"+params.Encode(), nil)
	if err != nil {
		return model.RestSnapshot{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.RestSnapshot{}, fmt.Errorf("perform request against %s: %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.RestSnapshot{}, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.RestSnapshot{}, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, base, body)
	}

	var raw rawSnapshot
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.RestSnapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	bids, err := toLevels(raw.Bids)
	if err != nil {
		return model.RestSnapshot{}, err
	}
	asks, err := toLevels(raw.Asks)
	if err != nil {
		return model.RestSnapshot{}, err
	}

	return model.RestSnapshot{
		Symbol:       symbol,
		LastUpdateID: raw.LastUpdateID,
		Bids:         bids,
		Asks:         asks,
		ReceivedAt:   time.Now(),
	}, nil
}

func toLevels(raw []rawLevel) ([]model.PriceLevel, error) {
	out := make([]model.PriceLevel, 0, len(raw))
	for _, l := range raw {
		ch, err := l.toChange()
		if err != nil {
			return nil, err
		}
		out = append(out, model.PriceLevel{Price: ch.Price, Size: ch.Size})
	}
	return out, nil
}
