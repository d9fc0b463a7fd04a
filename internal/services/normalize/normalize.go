// Package normalize enforces the forecast contract on whatever a source returns.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"time"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/services/series"
	"CryptoPredict/internal/services/simulator"
)

// FallbackTrendThreshold labels trends for payloads that arrive without a usable one.
const FallbackTrendThreshold = 0.05

var (
	ErrLength        = errors.New("predicted series length mismatch")
	ErrPrice         = errors.New("non-positive or non-finite price")
	ErrVolume        = errors.New("negative or non-finite volume")
	ErrCurrentPrice  = errors.New("non-positive current price")
	ErrInvalidSymbol = errors.New("empty symbol")
)

// Forecast checks f against the contract for (symbol, days) and repairs what can be repaired
// without inventing data: confidence is clamped, volumes are lifted to the floor, a missing trend
// is derived from the price path, and identity fields are stamped. Structural violations
// (wrong lengths, bad prices) are returned as errors.
func Forecast(f models.Forecast, symbol string, days int, source string) (models.Forecast, error) {
	if symbol == "" {
		return f, ErrInvalidSymbol
	}
	if len(f.PredictedPrices) != days || len(f.PredictedVolumes) != days {
		return f, fmt.Errorf("%w: days=%d prices=%d volumes=%d", ErrLength, days, len(f.PredictedPrices), len(f.PredictedVolumes))
	}
	if !finitePositive(f.CurrentPrice) {
		return f, ErrCurrentPrice
	}
	for i, p := range f.PredictedPrices {
		if !finitePositive(p) {
			return f, fmt.Errorf("%w at index %d: %v", ErrPrice, i, p)
		}
	}
	if math.IsNaN(f.CurrentVolume) || math.IsInf(f.CurrentVolume, 0) || f.CurrentVolume < 0 {
		return f, fmt.Errorf("%w: current volume %v", ErrVolume, f.CurrentVolume)
	}

	out := f
	out.Symbol = symbol
	out.PredictionDays = days
	out.DataSource = source
	out.PredictedPrices = append([]float64(nil), f.PredictedPrices...)
	out.PredictedVolumes = make([]float64, days)
	floor := f.CurrentVolume * simulator.VolumeFloorRatio
	for i, v := range f.PredictedVolumes {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return f, fmt.Errorf("%w at index %d: %v", ErrVolume, i, v)
		}
		out.PredictedVolumes[i] = max(v, floor)
	}

	out.Confidence = series.Clamp(f.Confidence, series.MinConfidence, series.MaxConfidence)
	if math.IsNaN(f.Volatility) || math.IsInf(f.Volatility, 0) || f.Volatility < 0 {
		out.Volatility = series.Volatility(out.PredictedPrices)
	}
	if !out.Trend.Valid() {
		out.Trend = series.Trend(append([]float64{out.CurrentPrice}, out.PredictedPrices...), FallbackTrendThreshold)
	}
	if out.Timestamp <= 0 {
		out.Timestamp = time.Now().UnixMilli()
	}
	return out, nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
