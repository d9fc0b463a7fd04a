// Package refdata holds the one symbol reference table every source reads its
// stand-in values from, so synthetic prices agree no matter which tier answers.
package refdata

import "strings"

const (
	DefaultPrice      = 100.0
	DefaultVolatility = 0.03
	DefaultConfidence = 0.70
	DefaultVolume     = 1_000_000.0
)

// Entry is the reference data for one symbol.
type Entry struct {
	Symbol        string
	Name          string
	Price         float64
	Change        float64
	ChangePercent float64
	Volatility    float64 // typical daily volatility
	Confidence    float64
	Volume        float64
}

// Table is a read-only symbol lookup. Safe for concurrent use once built.
type Table struct {
	entries map[string]Entry
}

// New builds a table from entries keyed by their Symbol. Zero fields get package defaults.
func New(entries []Entry) *Table {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		e.Symbol = strings.ToUpper(e.Symbol)
		if e.Name == "" {
			e.Name = strings.TrimSuffix(e.Symbol, "USDT")
		}
		if e.Price <= 0 {
			e.Price = DefaultPrice
		}
		if e.Volatility <= 0 {
			e.Volatility = DefaultVolatility
		}
		if e.Confidence <= 0 {
			e.Confidence = DefaultConfidence
		}
		if e.Volume <= 0 {
			e.Volume = DefaultVolume
		}
		m[e.Symbol] = e
	}
	return &Table{entries: m}
}

// Default returns the built-in table.
func Default() *Table { return New(builtin) }

// Lookup resolves a symbol in any of the accepted spellings: "BTCUSDT", "btcusdt",
// "BINANCE:BTCUSDT" or the bare base asset "BTC". ok is false for unknown symbols,
// in which case a default entry is returned.
func (t *Table) Lookup(symbol string) (Entry, bool) {
	key := Canonical(symbol)
	if e, ok := t.entries[key]; ok {
		return e, true
	}
	return Entry{
		Symbol:     key,
		Name:       strings.TrimSuffix(key, "USDT"),
		Price:      DefaultPrice,
		Volatility: DefaultVolatility,
		Confidence: DefaultConfidence,
		Volume:     DefaultVolume,
	}, false
}

// BasePrice is the stand-in price for symbol.
func (t *Table) BasePrice(symbol string) float64 {
	e, _ := t.Lookup(symbol)
	return e.Price
}

// Name is the human-readable display name for symbol.
func (t *Table) Name(symbol string) string {
	e, _ := t.Lookup(symbol)
	return e.Name
}

// Canonical upper-cases symbol, drops an exchange prefix and appends the USDT quote asset
// when it is missing.
func Canonical(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return s
	}
	if !strings.HasSuffix(s, "USDT") {
		s += "USDT"
	}
	return s
}

var builtin = []Entry{
	{Symbol: "BTCUSDT", Name: "Bitcoin", Price: 110000, Change: 1200, ChangePercent: 1.09, Volatility: 0.025, Confidence: 0.85, Volume: 2_500_000},
	{Symbol: "ETHUSDT", Name: "Ethereum", Price: 3500, Change: -50, ChangePercent: -1.41, Volatility: 0.035, Confidence: 0.80, Volume: 1_500_000},
	{Symbol: "BNBUSDT", Name: "BNB", Price: 600, Change: 8, ChangePercent: 1.35, Volatility: 0.04, Confidence: 0.75, Volume: 500_000},
	{Symbol: "ADAUSDT", Name: "Cardano", Price: 0.48, Change: 0.02, ChangePercent: 4.35, Volatility: 0.06, Confidence: 0.70, Volume: 800_000},
	{Symbol: "SOLUSDT", Name: "Solana", Price: 180, Change: -2, ChangePercent: -1.10, Volatility: 0.05, Confidence: 0.72, Volume: 1_200_000},
	{Symbol: "XRPUSDT", Name: "XRP", Price: 0.52, Change: 0.01, ChangePercent: 1.96, Volatility: 0.045, Confidence: 0.68, Volume: 1_500_000},
	{Symbol: "DOGEUSDT", Name: "Dogecoin", Price: 0.08, Change: 0.001, ChangePercent: 1.25, Volatility: 0.08, Confidence: 0.60, Volume: 500_000},
	{Symbol: "MATICUSDT", Name: "Polygon", Price: 0.85, Change: 0.02, ChangePercent: 2.41, Volatility: 0.07, Confidence: 0.65, Volume: 300_000},
	{Symbol: "AVAXUSDT", Name: "Avalanche", Price: 25.5, Change: -0.5, ChangePercent: -1.92, Volatility: 0.06, Confidence: 0.70, Volume: 400_000},
	{Symbol: "DOTUSDT", Name: "Polkadot", Price: 6.2, Change: 0.1, ChangePercent: 1.64, Volatility: 0.055, Confidence: 0.68, Volume: 200_000},
	{Symbol: "LINKUSDT", Name: "Chainlink", Price: 14.8},
	{Symbol: "UNIUSDT", Name: "Uniswap", Price: 6.5},
	{Symbol: "LTCUSDT", Name: "Litecoin", Price: 85.2},
	{Symbol: "BCHUSDT", Name: "Bitcoin Cash", Price: 245.6},
	{Symbol: "ATOMUSDT", Name: "Cosmos", Price: 8.9},
	{Symbol: "NEARUSDT", Name: "NEAR Protocol", Price: 3.2},
	{Symbol: "FTMUSDT", Name: "Fantom", Price: 0.35},
	{Symbol: "ALGOUSDT", Name: "Algorand", Price: 0.18},
	{Symbol: "VETUSDT", Name: "VeChain", Price: 0.025},
	{Symbol: "ICPUSDT", Name: "Internet Computer", Price: 4.8},
}
