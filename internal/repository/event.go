package repository

import (
	"time"

	"CryptoPredict/internal/domain/models"
)

// forecastMessage is the wire shape of a ForecastEvent on the forecasts topic.
type forecastMessage struct {
	ID         string   `json:"id"`
	Symbol     string   `json:"symbol"`
	Days       int      `json:"days"`
	DataSource string   `json:"dataSource"`
	Attempts   int      `json:"attempts"`
	Failures   []string `json:"failures,omitempty"`
	Confidence float64  `json:"confidence"`
	Trend      string   `json:"trend"`
	Volatility float64  `json:"volatility"`
	Price      float64  `json:"currentPrice"`
	DurationMs int64    `json:"durationMs"`
	ServedAt   int64    `json:"servedAt"` // unix ms
}

func toMessage(ev models.ForecastEvent) forecastMessage {
	return forecastMessage{
		ID:         ev.ID,
		Symbol:     ev.Symbol,
		Days:       ev.Days,
		DataSource: ev.DataSource,
		Attempts:   ev.Attempts,
		Failures:   ev.Failures,
		Confidence: ev.Confidence,
		Trend:      string(ev.Trend),
		Volatility: ev.Volatility,
		Price:      ev.Price,
		DurationMs: ev.Duration.Milliseconds(),
		ServedAt:   ev.ServedAt.UnixMilli(),
	}
}

// servedAt falls back to now for events built without a timestamp.
func servedAt(ev models.ForecastEvent) time.Time {
	if ev.ServedAt.IsZero() {
		return time.Now().UTC()
	}
	return ev.ServedAt.UTC()
}
