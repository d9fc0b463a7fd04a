package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"CryptoPredict/internal/domain/models"
	pkgch "CryptoPredict/pkg/clickhouse"
	"CryptoPredict/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() models.ForecastEvent {
	return models.ForecastEvent{
		ID:         "0b6f1c2e-7d0e-4c1a-9a53-5b3f6e7d8c9a",
		Symbol:     "BTCUSDT",
		Days:       5,
		DataSource: "Mock Data",
		Attempts:   3,
		Failures:   []string{"Binance API:transport", "Kronos AI Model:subprocess"},
		Confidence: 0.81,
		Trend:      models.TrendBullish,
		Volatility: 0.02,
		Price:      110000,
		Duration:   1500 * time.Millisecond,
		ServedAt:   time.UnixMilli(1700000000123),
	}
}

type capturePublisher struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	c.topic, c.key, c.value = topic, key, value
	return c.err
}

func TestKafkaForecastPublisher(t *testing.T) {
	pub := &capturePublisher{}
	p := NewKafkaForecastPublisher(pub, "cryptopredict.forecasts")

	require.NoError(t, p.Record(context.Background(), sampleEvent()))
	assert.Equal(t, "cryptopredict.forecasts", pub.topic)
	assert.Equal(t, []byte("BTCUSDT"), pub.key)

	b, err := json.Marshal(pub.value)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id":"0b6f1c2e-7d0e-4c1a-9a53-5b3f6e7d8c9a","symbol":"BTCUSDT","days":5,"dataSource":"Mock Data",
		"attempts":3,"failures":["Binance API:transport","Kronos AI Model:subprocess"],"confidence":0.81,
		"trend":"Bullish","volatility":0.02,"currentPrice":110000,"durationMs":1500,"servedAt":1700000000123
	}`, string(b))

	pub.err = errors.New("leader not available")
	assert.ErrorContains(t, p.Record(context.Background(), sampleEvent()), "leader not available")
}

func TestClickHouseForecastStoreStatements(t *testing.T) {
	s, err := NewClickHouseForecastStore(pkgch.NewFromDB(nil), "analytics.forecast_events")
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO analytics.forecast_events (served_at, event_id, symbol, days, data_source, attempts, failures, confidence, trend, volatility, price, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.insertQuery())
	require.Len(t, s.Schema(), 1)
	assert.Contains(t, s.Schema()[0], "CREATE TABLE IF NOT EXISTS analytics.forecast_events")

	args := insertArgs(sampleEvent())
	require.Len(t, args, 12)
	assert.Equal(t, time.UnixMilli(1700000000123).UTC(), args[0])
	assert.Equal(t, uint16(5), args[3])
	assert.Equal(t, uint32(1500), args[11])

	ev := sampleEvent()
	ev.Failures = nil
	assert.Equal(t, []string{}, insertArgs(ev)[6])
}

func TestClickHouseForecastStoreRejectsTableName(t *testing.T) {
	for _, name := range []string{"", "events; DROP TABLE x", "1events", "a.b.c"} {
		_, err := NewClickHouseForecastStore(pkgch.NewFromDB(nil), name)
		assert.Error(t, err, name)
	}
}

type stubSink struct {
	calls int
	err   error
}

func (s *stubSink) Record(context.Context, models.ForecastEvent) error {
	s.calls++
	return s.err
}

func TestMultiSinkTriesEverySink(t *testing.T) {
	reg := prometheus.NewRegistry()
	bad := &stubSink{err: errors.New("timeout")}
	good := &stubSink{}
	m := NewMultiSink(metrics.New(reg), NamedSink{"kafka", bad}, NamedSink{"clickhouse", good})

	err := m.Record(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: timeout")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 2, m.Len())

	n, err := testutil.GatherAndCount(reg, "cryptopredict_sink_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the failing sink is counted")
}

func TestNopSink(t *testing.T) {
	assert.NoError(t, NopSink{}.Record(context.Background(), sampleEvent()))
}
