package sources

import (
	"context"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/service/finnhub"
	"CryptoPredict/internal/services/series"
	"CryptoPredict/internal/services/simulator"
	"CryptoPredict/pkg/logger"
)

// Only TrendThreshold is read here; confidence comes from the reference table.
var finnhubCalibration = series.Calibration{ConfidenceScale: 10, TrendThreshold: 0.02}

// prices never drop below this fraction of the starting quote
const finnhubFloorRatio = 0.5

type finnhubAPI interface {
	Quote(ctx context.Context, symbol string) (models.Quote, error)
}

// Finnhub forecasts from a single quote plus per-symbol reference volatility, confidence and
// volume. A failed quote degrades to the reference price; it never signals a Failure.
type Finnhub struct {
	base
	api finnhubAPI
}

// NewFinnhub builds the quote-based source.
func NewFinnhub(api finnhubAPI, opts ...Option) *Finnhub {
	return &Finnhub{base: newBase(opts), api: api}
}

// Name returns the label used when the quote is live.
func (s *Finnhub) Name() string { return FinnhubLabel }

// FetchLiveQuote returns the live quote, or the reference stand-in when it is unavailable.
func (s *Finnhub) FetchLiveQuote(ctx context.Context, symbol string) (models.Quote, error) {
	q, _ := s.quote(ctx, symbol)
	return q, nil
}

// quote reports live=false when the reference stand-in was used.
func (s *Finnhub) quote(ctx context.Context, symbol string) (models.Quote, bool) {
	fs := finnhub.NormalizeSymbol(symbol)
	q, err := s.api.Quote(ctx, fs)
	if err != nil {
		s.log.Warn("finnhub quote unavailable, using reference quote",
			logger.String("symbol", fs),
			logger.Error(err),
		)
		return s.refQuote(symbol), false
	}
	if q.Volume == 0 {
		// the quote endpoint does not report volume
		e, _ := s.ref.Lookup(symbol)
		q.Volume = e.Volume
	}
	return q, true
}

// FetchPrediction walks the price from the current quote using reference volatility.
func (s *Finnhub) FetchPrediction(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	q, live := s.quote(ctx, symbol)
	e, _ := s.ref.Lookup(symbol)

	r := s.newRand()
	prices := simulator.AbsoluteStep(r, q.Price, days, e.Volatility, q.Price*finnhubFloorRatio)
	label := FinnhubLabel
	if !live {
		label = FinnhubFallbackLabel
	}
	return models.Forecast{
		Symbol:           symbol,
		CurrentPrice:     q.Price,
		PredictedPrices:  prices,
		CurrentVolume:    e.Volume,
		PredictedVolumes: simulator.Volumes(r, e.Volume, days, simulator.VolumeRange30(r)),
		Confidence:       series.Clamp(e.Confidence, series.MinConfidence, series.MaxConfidence),
		PredictionDays:   days,
		Volatility:       e.Volatility,
		Trend:            series.Trend(prices, finnhubCalibration.TrendThreshold),
		Timestamp:        s.now().UnixMilli(),
		DataSource:       label,
	}, nil
}
