package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"CryptoPredict/internal/domain/models"
	domsvc "CryptoPredict/internal/domain/service"
	"CryptoPredict/internal/sources"
	"CryptoPredict/pkg/logger"
	"CryptoPredict/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	calls *[]string
	fn    func(ctx context.Context, symbol string, days int) (models.Forecast, error)
}

func (s fakeSource) Name() string { return s.name }

func (s fakeSource) FetchPrediction(ctx context.Context, symbol string, days int) (models.Forecast, error) {
	if s.calls != nil {
		*s.calls = append(*s.calls, s.name)
	}
	return s.fn(ctx, symbol, days)
}

func failing(name string, kind models.FailureKind, calls *[]string) fakeSource {
	return fakeSource{name: name, calls: calls, fn: func(context.Context, string, int) (models.Forecast, error) {
		return models.Forecast{}, models.NewSourceError(name, kind, errors.New("boom"))
	}}
}

func succeeding(name string, calls *[]string) fakeSource {
	return fakeSource{name: name, calls: calls, fn: func(_ context.Context, symbol string, days int) (models.Forecast, error) {
		return validForecast(symbol, days), nil
	}}
}

func validForecast(symbol string, days int) models.Forecast {
	prices := make([]float64, days)
	volumes := make([]float64, days)
	for i := range prices {
		prices[i] = 100
		volumes[i] = 10
	}
	return models.Forecast{
		Symbol:           symbol,
		CurrentPrice:     100,
		PredictedPrices:  prices,
		CurrentVolume:    10,
		PredictedVolumes: volumes,
		Confidence:       0.8,
		Volatility:       0.02,
		Trend:            models.TrendNeutral,
		Timestamp:        1,
	}
}

func TestCascadeStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	c := NewCascade([]domsvc.Source{
		failing("a", models.FailureTransport, &calls),
		succeeding("b", &calls),
		succeeding("c", &calls),
	})

	f, err := c.Predict(context.Background(), " btcusdt ", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Equal(t, "b", f.DataSource)
	assert.Equal(t, "BTCUSDT", f.Symbol)
	assert.Equal(t, 3, f.PredictionDays)
}

func TestCascadeKeepsSourceLabel(t *testing.T) {
	src := fakeSource{name: "Finnhub", fn: func(_ context.Context, symbol string, days int) (models.Forecast, error) {
		f := validForecast(symbol, days)
		f.DataSource = "Mock Data (Finnhub unavailable)"
		return f, nil
	}}
	f, err := NewCascade([]domsvc.Source{src}).Predict(context.Background(), "ETHUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, "Mock Data (Finnhub unavailable)", f.DataSource)
}

func TestCascadeExhausted(t *testing.T) {
	var buf bytes.Buffer
	var calls []string
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	c := NewCascade([]domsvc.Source{
		failing("a", models.FailureTransport, &calls),
		failing("b", models.FailureData, &calls),
	}, WithMetrics(rec), WithCascadeLogger(logger.NewWriter(&buf, zerolog.DebugLevel)))

	_, err := c.Predict(context.Background(), "BTCUSDT", 1)
	require.ErrorIs(t, err, ErrCascadeExhausted)
	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Contains(t, err.Error(), "a:transport")
	assert.Contains(t, err.Error(), "b:data")
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), "forecast cascade exhausted")
	n, err := testutil.GatherAndCount(reg, "cryptopredict_cascade_exhausted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCascadeRecoversPanics(t *testing.T) {
	var calls []string
	boom := fakeSource{name: "broken", calls: &calls, fn: func(context.Context, string, int) (models.Forecast, error) {
		panic("nil map write")
	}}
	f, err := NewCascade([]domsvc.Source{boom, succeeding("ok", &calls)}).Predict(context.Background(), "BTCUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, "ok", f.DataSource)
	assert.Equal(t, []string{"broken", "ok"}, calls)
}

func TestCascadeRejectsInvalidOutput(t *testing.T) {
	short := fakeSource{name: "short", fn: func(_ context.Context, symbol string, days int) (models.Forecast, error) {
		return validForecast(symbol, days-1), nil
	}}
	plain := fakeSource{name: "plain", fn: func(context.Context, string, int) (models.Forecast, error) {
		return models.Forecast{}, errors.New("not a source error")
	}}

	c := NewCascade([]domsvc.Source{short, plain})
	_, err := c.Predict(context.Background(), "BTCUSDT", 4)
	require.ErrorIs(t, err, ErrCascadeExhausted)
	assert.Contains(t, err.Error(), "short:defect")
	assert.Contains(t, err.Error(), "plain:defect")
}

func TestCascadeAttemptTimeout(t *testing.T) {
	stuck := fakeSource{name: "stuck", fn: func(ctx context.Context, _ string, _ int) (models.Forecast, error) {
		<-ctx.Done()
		return models.Forecast{}, ctx.Err()
	}}
	ignoring := fakeSource{name: "ignoring", fn: func(_ context.Context, symbol string, days int) (models.Forecast, error) {
		time.Sleep(300 * time.Millisecond)
		return validForecast(symbol, days), nil
	}}

	c := NewCascade([]domsvc.Source{stuck, ignoring, succeeding("last", nil)}, WithAttemptTimeout(50*time.Millisecond))
	start := time.Now()
	f, err := c.Predict(context.Background(), "BTCUSDT", 1)
	require.NoError(t, err)
	assert.Equal(t, "last", f.DataSource)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestCascadeValidatesRequest(t *testing.T) {
	c := NewCascade([]domsvc.Source{succeeding("a", nil)})
	for _, tc := range []struct {
		symbol string
		days   int
	}{
		{"", 5}, {"   ", 5}, {"BTCUSDT", 0}, {"BTCUSDT", 366}, {"BTCUSDT", -1},
	} {
		_, err := c.Predict(context.Background(), tc.symbol, tc.days)
		assert.ErrorIs(t, err, ErrInvalidRequest, "symbol=%q days=%d", tc.symbol, tc.days)
	}
}

func TestCascadeStopsOnCanceledContext(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCascade([]domsvc.Source{succeeding("a", &calls)}).Predict(ctx, "BTCUSDT", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.ForecastEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev models.ForecastEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestCascadeEmitsEvent(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	c := NewCascade([]domsvc.Source{
		failing("a", models.FailureSubprocess, nil),
		succeeding("b", nil),
	}, WithSink(sink))

	_, err := c.Predict(context.Background(), "SOLUSDT", 7)
	require.NoError(t, err, "sink failures never reach the caller")
	c.Close()

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "SOLUSDT", ev.Symbol)
	assert.Equal(t, 7, ev.Days)
	assert.Equal(t, "b", ev.DataSource)
	assert.Equal(t, 2, ev.Attempts)
	assert.Equal(t, []string{"a:subprocess"}, ev.Failures)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestCascadeDropsEventsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	c := NewCascade([]domsvc.Source{succeeding("a", nil)}, WithSink(sink))

	_, err := c.Predict(context.Background(), "BTCUSDT", 2)
	require.NoError(t, err)
	c.Close()
	require.Equal(t, 1, sink.count())

	f, err := c.Predict(context.Background(), "ETHUSDT", 2)
	require.NoError(t, err, "late requests are still answered")
	assert.Equal(t, "ETHUSDT", f.Symbol)
	c.Close()
	assert.Equal(t, 1, sink.count())
}

func TestCascadeCloseWhileServing(t *testing.T) {
	sink := &recordingSink{}
	c := NewCascade([]domsvc.Source{succeeding("a", nil)}, WithSink(sink))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, err := c.Predict(context.Background(), "BTCUSDT", 1)
				assert.NoError(t, err)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	c.Close()
	recorded := sink.count()
	wg.Wait()

	assert.Equal(t, recorded, sink.count(), "nothing is recorded once Close has returned")
	assert.LessOrEqual(t, recorded, 16*20)
}

func TestCascadeFallsThroughToSynthetic(t *testing.T) {
	c := NewCascade([]domsvc.Source{
		failing(sources.BinanceLabel, models.FailureTransport, nil),
		failing(sources.KronosLabel, models.FailureSubprocess, nil),
		sources.NewSynthetic(),
	})

	f, err := c.Predict(context.Background(), "BTCUSDT", 5)
	require.NoError(t, err)
	assert.Equal(t, 110000.0, f.CurrentPrice)
	assert.Equal(t, "Mock Data", f.DataSource)
	assert.Len(t, f.PredictedPrices, 5)
	assert.Len(t, f.PredictedVolumes, 5)
	assert.GreaterOrEqual(t, f.Confidence, 0.60)
	assert.LessOrEqual(t, f.Confidence, 0.95)
	assert.True(t, f.Trend.Valid())
}

func TestCascadeIndependentRequests(t *testing.T) {
	c := NewCascade([]domsvc.Source{sources.NewSynthetic()})
	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := c.Predict(context.Background(), fmt.Sprintf("SYM%dUSDT", i), i+1)
			if err == nil && len(f.PredictedPrices) != i+1 {
				err = fmt.Errorf("got %d prices", len(f.PredictedPrices))
			}
			errs[i] = err
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestCascadeSources(t *testing.T) {
	c := NewCascade([]domsvc.Source{succeeding("a", nil), succeeding("b", nil)})
	assert.Equal(t, []string{"a", "b"}, c.Sources())
}
