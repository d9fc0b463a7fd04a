package service

import (
	"context"

	"CryptoPredict/internal/domain/models"
)

// Source produces a forecast for a symbol. A failed attempt returns a *models.SourceError;
// it never panics past its own boundary.
type Source interface {
	Name() string
	FetchPrediction(ctx context.Context, symbol string, days int) (models.Forecast, error)
}

// QuoteSource exposes the live spot lookup a source is built on.
type QuoteSource interface {
	FetchLiveQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Adapter is a source that also serves spot quotes.
type Adapter interface {
	Source
	QuoteSource
}

// ForecastSink receives a record of each served forecast. Implementations are best-effort.
type ForecastSink interface {
	Record(ctx context.Context, ev models.ForecastEvent) error
}
