package kronos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"CryptoPredict/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(`{"symbol":"BTCUSDT","currentPrice":1,"predictedPrices":[1,2],"trend":"Bearish","timestamp":"2025-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	f := p.Forecast()
	assert.Equal(t, models.TrendBearish, f.Trend)
	assert.Equal(t, int64(1735787045000), f.Timestamp)
}

func TestDecodeRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"usage error": `{"error": "Usage: python run_kronos_prediction.py <symbol> <days>"}`,
		"empty":       ``,
		"garbage":     "Traceback (most recent call last):\n  File x\n",
		"no prices":   `{"symbol":"BTCUSDT","currentPrice":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(raw))
			assert.ErrorIs(t, err, ErrPayload)
		})
	}
}

func TestHTTPRunner(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		var req predictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "SOLUSDT", req.Symbol)
		assert.Equal(t, 3, req.Days)
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","currentPrice":180,"predictedPrices":[180,181,182]}`))
	}))
	defer srv.Close()

	raw, err := NewHTTPRunner(srv.URL + "/").Run(context.Background(), "SOLUSDT", 3)
	require.NoError(t, err)
	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Len(t, p.PredictedPrices, 3)
}

func TestHTTPRunnerStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPRunner(srv.URL).Run(context.Background(), "SOLUSDT", 3)
	assert.ErrorIs(t, err, ErrExit)
}
