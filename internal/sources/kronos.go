package sources

import (
	"context"
	"fmt"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/service/kronos"
	"CryptoPredict/internal/services/normalize"
)

// Kronos delegates the forecast to the external model. Any runner error or an output that
// does not decode into a forecast of the requested length is a subprocess Failure.
type Kronos struct {
	base
	runner kronos.Runner
}

// NewKronos wraps a model runner.
func NewKronos(runner kronos.Runner, opts ...Option) *Kronos {
	return &Kronos{base: newBase(opts), runner: runner}
}

// Name returns the model label.
func (s *Kronos) Name() string { return KronosLabel }

func (s *Kronos) run(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	raw, err := s.runner.Run(ctx, symbol, days)
	if err != nil {
		return models.Forecast{}, models.NewSourceError(s.Name(), models.FailureSubprocess, err)
	}
	p, err := kronos.Decode(raw)
	if err != nil {
		return models.Forecast{}, models.NewSourceError(s.Name(), models.FailureSubprocess, err)
	}
	f, err := normalize.Forecast(p.Forecast(), symbol, days, KronosLabel)
	if err != nil {
		return models.Forecast{}, models.NewSourceError(s.Name(), models.FailureSubprocess,
			fmt.Errorf("model payload: %w", err))
	}
	return f, nil
}

// FetchPrediction runs the model for days and validates its output.
func (s *Kronos) FetchPrediction(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	return s.run(ctx, symbol, days)
}

// FetchLiveQuote runs a one-day forecast and reports its starting point.
func (s *Kronos) FetchLiveQuote(ctx context.Context, symbol string) (models.Quote, error) {
	f, err := s.run(ctx, symbol, 1)
	if err != nil {
		return models.Quote{}, err
	}
	return models.Quote{
		Symbol:    symbol,
		Price:     f.CurrentPrice,
		Volume:    f.CurrentVolume,
		Timestamp: s.now(),
	}, nil
}
