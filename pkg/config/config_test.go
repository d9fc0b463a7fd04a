package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 5000, c.Server.Port)
	assert.Equal(t, 10*time.Second, c.Upstream.Timeout)
	assert.Equal(t, 30, c.Binance.KlineLimit)
	assert.Equal(t, DefaultPopularSymbols, c.Popular.Symbols)
	assert.False(t, c.Kafka.Enabled)
	assert.False(t, c.ClickHouse.Enabled)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8081
upstream:
  timeout: 3s
popular:
  symbols: [BTCUSDT, ETHUSDT]
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, c.Server.Port)
	assert.Equal(t, 3*time.Second, c.Upstream.Timeout)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, c.Popular.Symbols)
	assert.Equal(t, "python3", c.Kronos.Python)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
kafka:
  enabled: true
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "kafka.brokers")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FINNHUB_API_KEY", "secret")
	t.Setenv("POPULAR_SYMBOLS", "BTCUSDT, SOLUSDT,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "secret", c.Finnhub.APIKey)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, c.Popular.Symbols)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	_, err := LoadWithEnv("")
	assert.Error(t, err)
}

func TestTrustedProxies(t *testing.T) {
	c := Default()
	assert.Empty(t, c.TrustedProxyNets(), "no proxy is trusted by default")

	c.Server.TrustedProxies = []string{"10.0.0.0/8", "fd00::/8"}
	require.NoError(t, c.Validate())
	nets := c.TrustedProxyNets()
	require.Len(t, nets, 2)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())

	c.Server.TrustedProxies = []string{"10.0.0.1"}
	assert.ErrorContains(t, c.Validate(), "server.trusted_proxies")
}

func TestLoadWithEnvTrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")
	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, c.Server.TrustedProxies)
}
