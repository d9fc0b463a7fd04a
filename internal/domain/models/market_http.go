package models

// Requests and response shapes for the HTTP layer. Defined in domain for reuse by the CLI.

type PredictRequest struct {
	Symbol string `json:"symbol" validate:"required,symbol"`
	Days   int    `json:"days" validate:"required,gte=1,lte=365"`
}

type CryptoRequest struct {
	Symbol string `param:"symbol" validate:"required,symbol"`
}

type PopularRequest struct {
	Limit int `query:"limit" default:"10" validate:"gte=1,lte=50"`
}

// SpotPrice is the body of a single-symbol price lookup.
type SpotPrice struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	High24h       float64 `json:"high24h"`
	Low24h        float64 `json:"low24h"`
	Timestamp     int64   `json:"timestamp"`
}

// PopularTicker is one ranked row of the popular symbols batch.
type PopularTicker struct {
	SpotPrice
	Name     string `json:"name"`
	Rank     int    `json:"rank"`
	Degraded bool   `json:"degraded"`
}

// Health is the liveness payload.
type Health struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
	Version   string `json:"version"`
}
