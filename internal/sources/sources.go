// Package sources holds the forecast producers the cascade tries in order. Each one wraps
// a different upstream but answers through the same service.Adapter contract.
package sources

import (
	"time"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/refdata"
	"CryptoPredict/internal/services/simulator"
	"CryptoPredict/pkg/logger"
)

// Labels reported in Forecast.DataSource.
const (
	BinanceLabel         = "Binance API"
	FinnhubLabel         = "Finnhub + AI Analysis"
	FinnhubFallbackLabel = "Mock Data (Finnhub unavailable)"
	KronosLabel          = "Kronos AI Model"
	SyntheticLabel       = "Mock Data"
)

// Option configures the shared parts of an adapter.
type Option func(*base)

type base struct {
	ref     *refdata.Table
	newRand func() simulator.Rand
	log     *logger.Logger
	now     func() time.Time
}

func newBase(opts []Option) base {
	b := base{
		ref:     refdata.Default(),
		newRand: func() simulator.Rand { return simulator.NewRand() },
		log:     logger.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// WithRefData shares one reference table across adapters.
func WithRefData(t *refdata.Table) Option {
	return func(b *base) {
		if t != nil {
			b.ref = t
		}
	}
}

// WithRand replaces the per-call random source factory. Tests pass deterministic sources.
func WithRand(f func() simulator.Rand) Option {
	return func(b *base) {
		if f != nil {
			b.newRand = f
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.log = l
		}
	}
}

// refQuote builds a stand-in quote from the reference table.
func (b *base) refQuote(symbol string) models.Quote {
	e, _ := b.ref.Lookup(symbol)
	return models.Quote{
		Symbol:        symbol,
		Price:         e.Price,
		Change:        e.Change,
		ChangePercent: e.ChangePercent,
		Volume:        e.Volume,
		High:          e.Price * 1.02,
		Low:           e.Price * 0.98,
		Timestamp:     b.now(),
	}
}
