// Package finnhub is a REST client for the Finnhub quote endpoint.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"CryptoPredict/internal/domain/models"
	xhttp "CryptoPredict/pkg/http"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

var (
	// ErrMalformed marks a 2xx response without a usable current price.
	ErrMalformed = errors.New("finnhub: malformed response")
	ErrNoAPIKey  = errors.New("finnhub: api key not configured")
)

type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
}

// New creates a REST client. An empty baseURL uses the public endpoint.
func New(apiKey, baseURL string, opts ...xhttp.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(opts...),
	}
}

// NormalizeSymbol maps BTCUSDT, BTC or BINANCE:BTCUSDT to Finnhub's BINANCE:BTCUSDT.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, "USDT")
	return "BINANCE:" + s + "USDT"
}

type quoteResponse struct {
	C  *float64 `json:"c"`
	D  float64  `json:"d"`
	DP float64  `json:"dp"`
	H  float64  `json:"h"`
	L  float64  `json:"l"`
	O  float64  `json:"o"`
	PC float64  `json:"pc"`
	T  int64    `json:"t"`
}

// Quote fetches the current quote for a Finnhub symbol (already normalized).
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	if c.apiKey == "" {
		return models.Quote{}, ErrNoAPIKey
	}

	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.apiKey},
		},
	}, &raw)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	var r quoteResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Quote{}, fmt.Errorf("%w: quote %s: %v", ErrMalformed, symbol, err)
	}
	// unknown symbols come back as all zeros rather than an error
	if r.C == nil || *r.C <= 0 {
		return models.Quote{}, fmt.Errorf("%w: quote %s has no current price", ErrMalformed, symbol)
	}

	ts := time.Now()
	if r.T > 0 {
		ts = time.Unix(r.T, 0)
	}
	return models.Quote{
		Symbol:        symbol,
		Price:         *r.C,
		Change:        r.D,
		ChangePercent: r.DP,
		High:          r.H,
		Low:           r.L,
		Timestamp:     ts,
	}, nil
}
