package models

import "time"

// ForecastEvent describes one served forecast for downstream sinks.
type ForecastEvent struct {
	ID         string
	Symbol     string
	Days       int
	DataSource string
	Attempts   int
	Failures   []string // "source:kind" of every failed attempt before the winner
	Confidence float64
	Trend      Trend
	Volatility float64
	Price      float64
	Duration   time.Duration
	ServedAt   time.Time
}
