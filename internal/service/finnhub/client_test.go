package finnhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := map[string]string{
		"BTCUSDT":         "BINANCE:BTCUSDT",
		"btc":             "BINANCE:BTCUSDT",
		" ethusdt ":       "BINANCE:ETHUSDT",
		"BINANCE:SOLUSDT": "BINANCE:SOLUSDT",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeSymbol(in), in)
	}
}

func TestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		assert.Equal(t, "BINANCE:BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "key", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"c":109500.5,"d":250,"dp":0.23,"h":110000,"l":108000,"o":109250,"pc":109250,"t":1700000000}`))
	}))
	defer srv.Close()

	q, err := New("key", srv.URL).Quote(context.Background(), "BINANCE:BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 109500.5, q.Price)
	assert.Equal(t, 0.23, q.ChangePercent)
	assert.Equal(t, int64(1700000000), q.Timestamp.Unix())
}

func TestQuoteErrors(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		_, err := New("", "http://unused").Quote(context.Background(), "BINANCE:BTCUSDT")
		assert.ErrorIs(t, err, ErrNoAPIKey)
	})

	for name, body := range map[string]string{
		"missing c": `{"d":1}`,
		"zero c":    `{"c":0,"d":0,"dp":0,"h":0,"l":0,"o":0,"pc":0,"t":0}`,
		"not json":  `<html>`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := New("key", srv.URL).Quote(context.Background(), "BINANCE:BTCUSDT")
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
