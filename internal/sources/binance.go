package sources

import (
	"context"
	"errors"
	"time"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/service/binance"
	"CryptoPredict/internal/services/series"
	"CryptoPredict/internal/services/simulator"
	"CryptoPredict/pkg/logger"
)

// Calibrated for 30 daily closes.
var binanceCalibration = series.Calibration{ConfidenceScale: 2, TrendThreshold: 0.05}

const (
	klineInterval     = "1d"
	defaultKlineLimit = 30
)

type binanceAPI interface {
	Ticker24h(ctx context.Context, symbol string) (models.Quote, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]models.Candle, error)
}

// Binance forecasts from the live 24h ticker and recent daily candles.
// A failed ticker is a Failure; failed candles are replaced with synthetic ones.
type Binance struct {
	base
	api        binanceAPI
	klineLimit int
}

// NewBinance builds the history-based source. klineLimit below 2 falls back to 30 candles.
func NewBinance(api binanceAPI, klineLimit int, opts ...Option) *Binance {
	if klineLimit < 2 {
		klineLimit = defaultKlineLimit
	}
	return &Binance{base: newBase(opts), api: api, klineLimit: klineLimit}
}

// Name returns the label used when this source serves a forecast.
func (s *Binance) Name() string { return BinanceLabel }

// FetchLiveQuote reads the 24h ticker.
func (s *Binance) FetchLiveQuote(ctx context.Context, symbol string) (models.Quote, error) {
	q, err := s.api.Ticker24h(ctx, symbol)
	if err != nil {
		return models.Quote{}, models.NewSourceError(s.Name(), binanceKind(err), err)
	}
	return q, nil
}

// FetchPrediction projects days closes from the recent daily history.
func (s *Binance) FetchPrediction(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	q, err := s.FetchLiveQuote(ctx, symbol)
	if err != nil {
		return models.Forecast{}, err
	}

	r := s.newRand()
	candles, err := s.api.Klines(ctx, symbol, klineInterval, s.klineLimit)
	if err != nil {
		s.log.Warn("binance klines unavailable, using synthetic candles",
			logger.String("symbol", symbol),
			logger.Error(err),
		)
		candles = syntheticCandles(r, s.ref.BasePrice(symbol), s.klineLimit, s.now())
	}

	stats := series.Analyze(models.Closes(candles), binanceCalibration)
	return models.Forecast{
		Symbol:           symbol,
		CurrentPrice:     q.Price,
		PredictedPrices:  simulator.ReturnChained(r, q.Price, days, stats.Volatility, stats.MeanReturn),
		CurrentVolume:    q.Volume,
		PredictedVolumes: simulator.Volumes(r, q.Volume, days, simulator.VolumeRange10to40(r)),
		Confidence:       stats.Confidence,
		PredictionDays:   days,
		Volatility:       stats.Volatility,
		Trend:            stats.Trend,
		Timestamp:        s.now().UnixMilli(),
		DataSource:       BinanceLabel,
	}, nil
}

func binanceKind(err error) models.FailureKind {
	if errors.Is(err, binance.ErrMalformed) || errors.Is(err, models.ErrNoData) {
		return models.FailureData
	}
	return models.FailureTransport
}

// syntheticCandles fabricates n daily bars ending at now, closes within ±5% of base.
func syntheticCandles(r simulator.Rand, base float64, n int, now time.Time) []models.Candle {
	const day = 24 * time.Hour
	out := make([]models.Candle, n)
	for i := range out {
		price := base + (r.Float64()-0.5)*base*0.1
		out[i] = models.Candle{
			OpenTime: now.Add(-time.Duration(n-i) * day),
			Open:     price,
			High:     price * 1.02,
			Low:      price * 0.98,
			Close:    price,
			Volume:   r.Float64() * 1_000_000,
		}
	}
	return out
}
