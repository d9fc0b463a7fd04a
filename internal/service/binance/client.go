// Package binance is a thin REST client for the public Binance spot market endpoints.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"CryptoPredict/internal/domain/models"
	xhttp "CryptoPredict/pkg/http"
)

// ErrMalformed marks a 2xx response whose body does not have the expected shape.
var ErrMalformed = errors.New("binance: malformed response")

const DefaultBaseURL = "https://api.binance.com/api/v3"

type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New builds a client. opts configure the underlying HTTP client (timeout, rate limit).
func New(baseURL string, opts ...xhttp.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(opts...),
	}
}

type ticker24h struct {
	Symbol             string `json:"symbol"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	CloseTime          int64  `json:"closeTime"`
}

// Ticker24h returns the rolling 24h ticker for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (models.Quote, error) {
	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/ticker/24hr",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &raw)
	if err != nil {
		return models.Quote{}, fmt.Errorf("ticker %s: %w", symbol, err)
	}

	var t ticker24h
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.Quote{}, fmt.Errorf("%w: ticker %s: %v", ErrMalformed, symbol, err)
	}

	q := models.Quote{Symbol: t.Symbol, Timestamp: time.Now()}
	if q.Symbol == "" {
		q.Symbol = symbol
	}
	fields := []struct {
		name string
		in   string
		out  *float64
	}{
		{"lastPrice", t.LastPrice, &q.Price},
		{"priceChange", t.PriceChange, &q.Change},
		{"priceChangePercent", t.PriceChangePercent, &q.ChangePercent},
		{"volume", t.Volume, &q.Volume},
		{"highPrice", t.HighPrice, &q.High},
		{"lowPrice", t.LowPrice, &q.Low},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.in, 64)
		if err != nil {
			return models.Quote{}, fmt.Errorf("%w: ticker %s field %s=%q", ErrMalformed, symbol, f.name, f.in)
		}
		*f.out = v
	}
	if q.Price <= 0 {
		return models.Quote{}, fmt.Errorf("%w: ticker %s non-positive lastPrice %v", ErrMalformed, symbol, q.Price)
	}
	if t.CloseTime > 0 {
		q.Timestamp = time.UnixMilli(t.CloseTime)
	}
	return q, nil
}

// Klines returns up to limit candles for symbol at interval, oldest first.
// An empty result is models.ErrNoData.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error) {
	var raw []byte
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {interval},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", symbol, err)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: klines %s: %v", ErrMalformed, symbol, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("klines %s: %w", symbol, models.ErrNoData)
	}

	out := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		cd, err := parseKline(row)
		if err != nil {
			return nil, fmt.Errorf("%w: klines %s row %d: %v", ErrMalformed, symbol, i, err)
		}
		out = append(out, cd)
	}
	return out, nil
}

// parseKline reads [openTime, open, high, low, close, volume, ...].
func parseKline(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("expected at least 6 columns, got %d", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	vals := make([]float64, 5)
	for i := range vals {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("column %d: %w", i+1, err)
		}
		vals[i] = v
	}
	return models.Candle{
		OpenTime: time.UnixMilli(openTime),
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}
