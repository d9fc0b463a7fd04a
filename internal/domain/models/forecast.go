package models

import "time"

// Trend is the direction label attached to a forecast.
type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNeutral Trend = "Neutral"
)

// Valid reports whether t is one of the three known labels.
func (t Trend) Valid() bool {
	switch t {
	case TrendBullish, TrendBearish, TrendNeutral:
		return true
	}
	return false
}

// Quote is an immutable spot snapshot, built fresh for every request.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	Volume        float64
	High          float64
	Low           float64
	Timestamp     time.Time
}

// Candle is one daily bar of a historical series, oldest first in a slice.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Closes extracts close prices in series order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Forecast is the normalized output returned whichever source produced it.
// Invariant: len(PredictedPrices) == len(PredictedVolumes) == PredictionDays.
type Forecast struct {
	Symbol           string    `json:"symbol"`
	CurrentPrice     float64   `json:"currentPrice"`
	PredictedPrices  []float64 `json:"predictedPrices"`
	CurrentVolume    float64   `json:"currentVolume"`
	PredictedVolumes []float64 `json:"predictedVolumes"`
	Confidence       float64   `json:"confidence"`
	PredictionDays   int       `json:"predictionDays"`
	Volatility       float64   `json:"volatility"`
	Trend            Trend     `json:"trend"`
	Timestamp        int64     `json:"timestamp"` // unix ms
	DataSource       string    `json:"dataSource"`
}
