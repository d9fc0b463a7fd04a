package kronos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"CryptoPredict/internal/domain/models"
)

// Payload is the model's JSON output.
type Payload struct {
	Symbol           string    `json:"symbol"`
	CurrentPrice     float64   `json:"currentPrice"`
	PredictedPrices  []float64 `json:"predictedPrices"`
	CurrentVolume    float64   `json:"currentVolume"`
	PredictedVolumes []float64 `json:"predictedVolumes"`
	Confidence       float64   `json:"confidence"`
	Volatility       float64   `json:"volatility"`
	Trend            string    `json:"trend"`
	Timestamp        string    `json:"timestamp"`
	Model            string    `json:"model"`
	Error            string    `json:"error"`
}

// Decode extracts the payload from raw model output. Library warnings printed to stdout ahead
// of the payload are skipped: the last line that parses as a JSON object wins.
// A payload carrying "error" is ErrPayload.
func Decode(raw []byte) (Payload, error) {
	var (
		p     Payload
		found bool
	)
	if err := json.Unmarshal(bytes.TrimSpace(raw), &p); err == nil {
		found = true
	} else {
		lines := bytes.Split(raw, []byte("\n"))
		for i := len(lines) - 1; i >= 0; i-- {
			line := bytes.TrimSpace(lines[i])
			if len(line) == 0 || line[0] != '{' {
				continue
			}
			p = Payload{}
			if json.Unmarshal(line, &p) == nil {
				found = true
				break
			}
		}
	}
	if !found {
		return Payload{}, fmt.Errorf("%w: no JSON object in output (%d bytes)", ErrPayload, len(raw))
	}
	if p.Error != "" {
		return Payload{}, fmt.Errorf("%w: model reported: %s", ErrPayload, p.Error)
	}
	if len(p.PredictedPrices) == 0 {
		return Payload{}, fmt.Errorf("%w: no predicted prices", ErrPayload)
	}
	return p, nil
}

// Forecast converts the payload to the domain shape. Contract checks happen downstream.
func (p Payload) Forecast() models.Forecast {
	return models.Forecast{
		Symbol:           p.Symbol,
		CurrentPrice:     p.CurrentPrice,
		PredictedPrices:  p.PredictedPrices,
		CurrentVolume:    p.CurrentVolume,
		PredictedVolumes: p.PredictedVolumes,
		Confidence:       p.Confidence,
		Volatility:       p.Volatility,
		Trend:            models.Trend(p.Trend),
		Timestamp:        parseTimestamp(p.Timestamp),
	}
}

// isoformat() output carries no zone; it is read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) int64 {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}
