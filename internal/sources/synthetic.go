package sources

import (
	"context"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/services/series"
	"CryptoPredict/internal/services/simulator"
)

const (
	syntheticVolatility     = 0.02
	syntheticTrendThreshold = 0.05
)

// Synthetic is the terminal source: it reads only the reference table and never fails.
type Synthetic struct {
	base
}

// NewSynthetic builds the terminal source.
func NewSynthetic(opts ...Option) *Synthetic {
	return &Synthetic{base: newBase(opts)}
}

// Name returns the mock label.
func (s *Synthetic) Name() string { return SyntheticLabel }

// FetchLiveQuote returns the reference quote.
func (s *Synthetic) FetchLiveQuote(_ context.Context, symbol string) (models.Quote, error) {
	return s.refQuote(symbol), nil
}

// FetchPrediction generates a path from the reference base price.
func (s *Synthetic) FetchPrediction(_ context.Context, symbol string, days int) (models.Forecast, error) {
	p0 := s.ref.BasePrice(symbol)
	r := s.newRand()

	prices := simulator.AbsoluteStep(r, p0, days, syntheticVolatility, simulator.PriceFloor)
	v0 := r.Float64()*5_000_000 + 1_000_000
	return models.Forecast{
		Symbol:           symbol,
		CurrentPrice:     p0,
		PredictedPrices:  prices,
		CurrentVolume:    v0,
		PredictedVolumes: simulator.Volumes(r, v0, days, simulator.VolumeRange30(r)),
		Confidence:       r.Float64()*(series.MaxConfidence-0.70) + 0.70,
		PredictionDays:   days,
		Volatility:       syntheticVolatility,
		Trend:            series.Trend(prices, syntheticTrendThreshold),
		Timestamp:        s.now().UnixMilli(),
		DataSource:       SyntheticLabel,
	}, nil
}
