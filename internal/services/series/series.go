package series

import (
	"math"

	"CryptoPredict/internal/domain/models"
)

// Fallbacks used when a series has fewer than two prices.
const (
	DefaultVolatility = 0.02
	DefaultConfidence = 0.7
	DefaultTrend      = models.TrendNeutral

	MinConfidence = 0.60
	MaxConfidence = 0.95
)

// Calibration holds the per-source constants. Sources keep their own values; they are not unified.
type Calibration struct {
	ConfidenceScale float64 // k in 1 - volatility*k
	TrendThreshold  float64 // |first->last change| needed for a directional label
}

// Stats is what the model derives from a close-price series.
type Stats struct {
	MeanReturn float64
	Volatility float64
	Confidence float64
	Trend      models.Trend
}

// Analyze derives return statistics from closes (oldest first).
// Series shorter than two prices yield the documented defaults.
func Analyze(closes []float64, cal Calibration) Stats {
	if len(closes) < 2 {
		return Stats{
			Volatility: DefaultVolatility,
			Confidence: DefaultConfidence,
			Trend:      DefaultTrend,
		}
	}
	rets := Returns(closes)
	mean, vol := MeanStd(rets)
	return Stats{
		MeanReturn: mean,
		Volatility: vol,
		Confidence: Confidence(vol, cal.ConfidenceScale),
		Trend:      Trend(closes, cal.TrendThreshold),
	}
}

// Returns computes simple period returns r_i = (p_i - p_{i-1}) / p_{i-1}.
// A non-positive previous price contributes a zero return.
func Returns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-prev)/prev)
	}
	return out
}

// MeanStd returns the mean and the population standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	n := float64(len(xs))
	for _, x := range xs {
		mean += x
	}
	mean /= n
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

// Volatility is the population standard deviation of the returns of closes.
func Volatility(closes []float64) float64 {
	if len(closes) < 2 {
		return DefaultVolatility
	}
	_, std := MeanStd(Returns(closes))
	return std
}

// Confidence maps volatility to [MinConfidence, MaxConfidence]; lower volatility is higher confidence.
func Confidence(volatility, scale float64) float64 {
	return Clamp(1-volatility*scale, MinConfidence, MaxConfidence)
}

// Trend labels the first-to-last change of prices against threshold.
func Trend(prices []float64, threshold float64) models.Trend {
	if len(prices) < 2 || prices[0] <= 0 {
		return models.TrendNeutral
	}
	first, last := prices[0], prices[len(prices)-1]
	change := (last - first) / first
	switch {
	case change > threshold:
		return models.TrendBullish
	case change < -threshold:
		return models.TrendBearish
	default:
		return models.TrendNeutral
	}
}

// Clamp bounds v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
