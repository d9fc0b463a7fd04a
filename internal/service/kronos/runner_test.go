package kronos

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func script(t *testing.T, body string) *ProcessRunner {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "model.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o700))
	return NewProcessRunner(sh, path, "")
}

func TestProcessRunnerPassesArgs(t *testing.T) {
	r := script(t, `echo "Warning: model weights not found"
echo "{\"symbol\":\"$1\",\"currentPrice\":100,\"predictedPrices\":[100,101],\"currentVolume\":10,\"predictedVolumes\":[10,11],\"confidence\":0.8,\"volatility\":0.01,\"trend\":\"Bullish\",\"timestamp\":\"2025-01-02T03:04:05.123456\",\"model\":\"Kronos-small\",\"days\":$2}"
echo "debug noise" >&2
`)
	raw, err := r.Run(context.Background(), "ETHUSDT", 2)
	require.NoError(t, err)

	p, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", p.Symbol)
	assert.Equal(t, []float64{100, 101}, p.PredictedPrices)
	assert.Equal(t, "Kronos-small", p.Model)
	assert.Positive(t, p.Forecast().Timestamp)
}

func TestProcessRunnerNonZeroExit(t *testing.T) {
	r := script(t, `echo "traceback: boom" >&2
exit 3
`)
	_, err := r.Run(context.Background(), "BTCUSDT", 5)
	require.ErrorIs(t, err, ErrExit)
	assert.Contains(t, err.Error(), "traceback: boom")
}

func TestProcessRunnerKilledOnTimeout(t *testing.T) {
	r := script(t, `sleep 30
`)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Run(ctx, "BTCUSDT", 5)
	assert.ErrorIs(t, err, ErrExit)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProcessRunnerMissingInterpreter(t *testing.T) {
	r := NewProcessRunner(filepath.Join(t.TempDir(), "no-such-python"), "x.py", "")
	_, err := r.Run(context.Background(), "BTCUSDT", 5)
	assert.ErrorIs(t, err, ErrExit)
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd", b.String())
	assert.True(t, b.truncated)
}
