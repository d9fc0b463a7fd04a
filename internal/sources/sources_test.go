package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/service/binance"
	"CryptoPredict/internal/services/simulator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedRand always draws the same value; 0.5 yields flat paths.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

var testNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func testOpts(v float64) []Option {
	return []Option{
		WithRand(func() simulator.Rand { return fixedRand(v) }),
		func(b *base) { b.now = func() time.Time { return testNow } },
	}
}

type fakeBinance struct {
	quote     models.Quote
	quoteErr  error
	candles   []models.Candle
	candleErr error
	limit     int
}

func (f *fakeBinance) Ticker24h(_ context.Context, symbol string) (models.Quote, error) {
	q := f.quote
	q.Symbol = symbol
	return q, f.quoteErr
}

func (f *fakeBinance) Klines(_ context.Context, _, _ string, limit int) ([]models.Candle, error) {
	f.limit = limit
	return f.candles, f.candleErr
}

func TestBinancePrediction(t *testing.T) {
	api := &fakeBinance{
		quote: models.Quote{Price: 100, Volume: 5000},
		candles: []models.Candle{
			{Close: 100}, {Close: 110}, {Close: 121},
		},
	}
	s := NewBinance(api, 30, testOpts(0.5)...)

	f, err := s.FetchPrediction(context.Background(), "BTCUSDT", 4)
	require.NoError(t, err)
	assert.Equal(t, 30, api.limit)
	assert.Equal(t, BinanceLabel, f.DataSource)
	assert.Equal(t, 100.0, f.CurrentPrice)
	assert.Len(t, f.PredictedPrices, 4)
	assert.Len(t, f.PredictedVolumes, 4)
	assert.InDelta(t, 0.0, f.Volatility, 1e-9, "constant 10% returns have zero spread")
	assert.Equal(t, 0.95, f.Confidence)
	assert.Equal(t, models.TrendBullish, f.Trend)
	assert.Equal(t, testNow.UnixMilli(), f.Timestamp)
	// mean return 0.1 with a centred draw compounds by 10% per step
	assert.InDelta(t, 110.0, f.PredictedPrices[1], 1e-9)
}

func TestBinanceTickerFailureIsTransport(t *testing.T) {
	s := NewBinance(&fakeBinance{quoteErr: errors.New("dial tcp: refused")}, 30)
	_, err := s.FetchPrediction(context.Background(), "BTCUSDT", 3)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.FailureTransport))
}

func TestBinanceMalformedTickerIsData(t *testing.T) {
	s := NewBinance(&fakeBinance{quoteErr: binance.ErrMalformed}, 30)
	_, err := s.FetchLiveQuote(context.Background(), "BTCUSDT")
	assert.True(t, models.IsKind(err, models.FailureData))
}

func TestBinanceKlineFailureUsesSyntheticCandles(t *testing.T) {
	api := &fakeBinance{
		quote:     models.Quote{Price: 100, Volume: 5000},
		candleErr: models.ErrNoData,
	}
	s := NewBinance(api, 0, testOpts(0.5)...)

	f, err := s.FetchPrediction(context.Background(), "ETHUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, defaultKlineLimit, api.limit)
	assert.Equal(t, BinanceLabel, f.DataSource)
	// flat synthetic closes
	assert.Equal(t, 0.0, f.Volatility)
	assert.Equal(t, models.TrendNeutral, f.Trend)
}

func TestSyntheticCandles(t *testing.T) {
	c := syntheticCandles(fixedRand(1), 100, 5, testNow)
	require.Len(t, c, 5)
	for _, bar := range c {
		assert.InDelta(t, 105.0, bar.Close, 1e-9)
		assert.InDelta(t, 107.1, bar.High, 1e-9)
		assert.InDelta(t, 102.9, bar.Low, 1e-9)
		assert.True(t, bar.OpenTime.Before(testNow))
	}
	assert.True(t, c[0].OpenTime.Before(c[4].OpenTime))
}

type fakeFinnhub struct {
	quote  models.Quote
	err    error
	symbol string
}

func (f *fakeFinnhub) Quote(_ context.Context, symbol string) (models.Quote, error) {
	f.symbol = symbol
	return f.quote, f.err
}

func TestFinnhubLiveQuote(t *testing.T) {
	api := &fakeFinnhub{quote: models.Quote{Price: 105000}}
	s := NewFinnhub(api, testOpts(0.5)...)

	f, err := s.FetchPrediction(context.Background(), "BTCUSDT", 3)
	require.NoError(t, err)
	assert.Equal(t, "BINANCE:BTCUSDT", api.symbol)
	assert.Equal(t, FinnhubLabel, f.DataSource)
	assert.Equal(t, 105000.0, f.CurrentPrice)
	assert.Equal(t, []float64{105000, 105000, 105000}, f.PredictedPrices)
	assert.Equal(t, 0.025, f.Volatility)
	assert.Equal(t, 0.85, f.Confidence)
	assert.Equal(t, 2_500_000.0, f.CurrentVolume)
	assert.Equal(t, models.TrendNeutral, f.Trend)
}

func TestFinnhubDegradesToReference(t *testing.T) {
	s := NewFinnhub(&fakeFinnhub{err: errors.New("status 401")}, testOpts(0.5)...)

	f, err := s.FetchPrediction(context.Background(), "ETHUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, FinnhubFallbackLabel, f.DataSource)
	assert.Equal(t, 3500.0, f.CurrentPrice)

	q, err := s.FetchLiveQuote(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 3500.0, q.Price)
	assert.InDelta(t, 3570.0, q.High, 1e-9)
	assert.InDelta(t, 3430.0, q.Low, 1e-9)
}

func TestFinnhubPriceFloor(t *testing.T) {
	// every step draws -0.5 * p0 * sigma
	s := NewFinnhub(&fakeFinnhub{quote: models.Quote{Price: 1}}, testOpts(0)...)
	f, err := s.FetchPrediction(context.Background(), "DOGEUSDT", 365)
	require.NoError(t, err)
	for _, p := range f.PredictedPrices {
		assert.GreaterOrEqual(t, p, 0.5)
	}
}

type fakeRunner struct {
	out  []byte
	err  error
	days int
}

func (f *fakeRunner) Run(_ context.Context, _ string, days int) ([]byte, error) {
	f.days = days
	return f.out, f.err
}

const kronosOK = `Warning: Kronos model not available
{"symbol":"BTCUSDT","currentPrice":100,"predictedPrices":[101,102],"currentVolume":10,"predictedVolumes":[11,12],"confidence":0.99,"volatility":0.01,"trend":"Bullish","timestamp":"2025-01-02T03:04:05"}`

func TestKronosPrediction(t *testing.T) {
	s := NewKronos(&fakeRunner{out: []byte(kronosOK)})

	f, err := s.FetchPrediction(context.Background(), "BTCUSDT", 2)
	require.NoError(t, err)
	assert.Equal(t, KronosLabel, f.DataSource)
	assert.Equal(t, []float64{101, 102}, f.PredictedPrices)
	assert.Equal(t, 0.95, f.Confidence, "confidence is clamped")
	assert.Equal(t, models.TrendBullish, f.Trend)
}

func TestKronosFailures(t *testing.T) {
	cases := map[string]*fakeRunner{
		"runner error":   {err: errors.New("exit status 1")},
		"no json":        {out: []byte("Traceback (most recent call last)")},
		"wrong length":   {out: []byte(kronosOK)},
		"error envelope": {out: []byte(`{"error":"model not loaded"}`)},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewKronos(r).FetchPrediction(context.Background(), "BTCUSDT", 3)
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.FailureSubprocess))
		})
	}
}

func TestKronosLiveQuoteRunsOneDay(t *testing.T) {
	r := &fakeRunner{out: []byte(`{"currentPrice":42,"predictedPrices":[43],"currentVolume":1,"predictedVolumes":[1]}`)}
	q, err := NewKronos(r).FetchLiveQuote(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, r.days)
	assert.Equal(t, 42.0, q.Price)
}

func TestSyntheticPrediction(t *testing.T) {
	s := NewSynthetic(testOpts(0.5)...)

	f, err := s.FetchPrediction(context.Background(), "BTCUSDT", 5)
	require.NoError(t, err)
	assert.Equal(t, SyntheticLabel, f.DataSource)
	assert.Equal(t, 110000.0, f.CurrentPrice)
	assert.Len(t, f.PredictedPrices, 5)
	assert.Len(t, f.PredictedVolumes, 5)
	assert.Equal(t, 3_500_000.0, f.CurrentVolume)
	assert.InDelta(t, 0.825, f.Confidence, 1e-9)
	assert.Equal(t, syntheticVolatility, f.Volatility)
	assert.Equal(t, models.TrendNeutral, f.Trend)
}

func TestSyntheticUnknownSymbol(t *testing.T) {
	f, err := NewSynthetic().FetchPrediction(context.Background(), "NOPEUSDT", 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, f.CurrentPrice)
	assert.Len(t, f.PredictedPrices, 1)
	assert.GreaterOrEqual(t, f.Confidence, 0.70)
	assert.LessOrEqual(t, f.Confidence, 0.95)
}
