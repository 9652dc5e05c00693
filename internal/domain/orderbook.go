package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderbookTick is a top-of-book snapshot from one exchange stream.
// Each tick supersedes the previous one for the same (exchange, symbol);
// the streaming layer keeps no history.
type OrderbookTick struct {
	Symbol    string          `json:"symbol"`
	BestBid   decimal.Decimal `json:"best_bid"`
	BestAsk   decimal.Decimal `json:"best_ask"`
	Timestamp time.Time       `json:"timestamp"`
}

// SymbolMetadata carries exchange-reported precision for one symbol.
// Precision drives display formatting only; live ticks are never
// validated against it.
type SymbolMetadata struct {
	Symbol            string          `json:"symbol"`
	Exchange          string          `json:"exchange"`
	TickSize          decimal.Decimal `json:"tick_size"`
	PricePrecision    int             `json:"price_precision"`
	QuantityPrecision int             `json:"quantity_precision"`
}

// PrecisionFromStep derives decimal precision from a tick/step size
// string, e.g. "0.0100" -> 2, "1" -> 0.
func PrecisionFromStep(step string) int {
	trimmed := step
	for len(trimmed) > 0 && trimmed[len(trimmed)-1] == '0' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] == '.' {
			return len(trimmed) - i - 1
		}
	}
	return 0
}
