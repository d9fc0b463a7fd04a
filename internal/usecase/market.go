package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"CryptoPredict/internal/domain/models"
	domsvc "CryptoPredict/internal/domain/service"
	"CryptoPredict/internal/refdata"
	"CryptoPredict/pkg/logger"
	"CryptoPredict/pkg/metrics"
)

// MarketService serves spot prices and the ranked popular batch from a live quote source.
type MarketService struct {
	quotes  domsvc.QuoteSource
	ref     *refdata.Table
	symbols []string
	timeout time.Duration
	metrics *metrics.Recorder
	log     *logger.Logger
}

type MarketOption func(*MarketService)

// WithQuoteTimeout bounds each upstream quote lookup.
func WithQuoteTimeout(d time.Duration) MarketOption {
	return func(m *MarketService) {
		if d > 0 {
			m.timeout = d
		}
	}
}

func WithMarketMetrics(r *metrics.Recorder) MarketOption {
	return func(m *MarketService) { m.metrics = r }
}

func WithMarketLogger(l *logger.Logger) MarketOption {
	return func(m *MarketService) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMarketService serves spot prices from quotes and the popular board over symbols, in rank order.
func NewMarketService(quotes domsvc.QuoteSource, ref *refdata.Table, symbols []string, opts ...MarketOption) *MarketService {
	if ref == nil {
		ref = refdata.Default()
	}
	m := &MarketService{
		quotes:  quotes,
		ref:     ref,
		symbols: symbols,
		timeout: DefaultAttemptTimeout,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SpotPrice returns the live quote for symbol. It has no fallback.
func (m *MarketService) SpotPrice(ctx context.Context, symbol string) (models.SpotPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return models.SpotPrice{}, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	q, err := m.quotes.FetchLiveQuote(ctx, symbol)
	if err != nil {
		return models.SpotPrice{}, fmt.Errorf("%w: %s: %w", ErrSpotUnavailable, symbol, err)
	}
	return spotPrice(symbol, q), nil
}

// Popular quotes the first limit configured symbols concurrently. A symbol whose lookup fails is
// served from reference data with zeroed change fields and Degraded set; the batch itself never fails.
func (m *MarketService) Popular(ctx context.Context, limit int) []models.PopularTicker {
	symbols := m.symbols
	if limit > 0 && limit < len(symbols) {
		symbols = symbols[:limit]
	}

	out := make([]models.PopularTicker, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out[i] = m.popularEntry(ctx, i, symbol)
		}()
	}
	wg.Wait()
	return out
}

func (m *MarketService) popularEntry(ctx context.Context, i int, symbol string) (t models.PopularTicker) {
	t = models.PopularTicker{Name: m.ref.Name(symbol), Rank: i + 1}

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("popular quote panicked", logger.String("symbol", symbol), logger.Any("panic", r))
			t.SpotPrice = m.degraded(symbol)
			t.Degraded = true
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	q, err := m.quotes.FetchLiveQuote(ctx, symbol)
	if err != nil {
		m.log.Warn("popular quote degraded", logger.String("symbol", symbol), logger.Error(err))
		t.SpotPrice = m.degraded(symbol)
		t.Degraded = true
		return t
	}
	t.SpotPrice = spotPrice(symbol, q)
	return t
}

func (m *MarketService) degraded(symbol string) models.SpotPrice {
	if m.metrics != nil {
		m.metrics.RecordDegraded(symbol)
	}
	return models.SpotPrice{
		Symbol:    symbol,
		Price:     m.ref.BasePrice(symbol),
		Timestamp: time.Now().UnixMilli(),
	}
}

func spotPrice(symbol string, q models.Quote) models.SpotPrice {
	ts := q.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return models.SpotPrice{
		Symbol:        symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Volume:        q.Volume,
		High24h:       q.High,
		Low24h:        q.Low,
		Timestamp:     ts.UnixMilli(),
	}
}
