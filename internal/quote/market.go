package quote

import (
	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// simulatedMarket returns the fixed market table shown to study participants.
// Prices never move during a session.
func simulatedMarket() []domain.Quote {
	return []domain.Quote{
		{Symbol: "AAPL", Name: "Apple Inc.", Bid: dec("178.22"), Ask: dec("178.24"), Last: dec("178.23"), Change: dec("1.89"), ChangePercent: dec("1.07"), Volume: "87.2M"},
		{Symbol: "MSFT", Name: "Microsoft Corporation", Bid: dec("378.55"), Ask: dec("378.57"), Last: dec("378.56"), Change: dec("-2.34"), ChangePercent: dec("-0.61"), Volume: "45.8M"},
		{Symbol: "GOOGL", Name: "Alphabet Inc.", Bid: dec("142.14"), Ask: dec("142.16"), Last: dec("142.15"), Change: dec("0.78"), ChangePercent: dec("0.55"), Volume: "32.1M"},
		{Symbol: "TSLA", Name: "Tesla Inc.", Bid: dec("242.83"), Ask: dec("242.85"), Last: dec("242.84"), Change: dec("5.67"), ChangePercent: dec("2.39"), Volume: "145.3M"},
		{Symbol: "NVDA", Name: "NVIDIA Corp", Bid: dec("478.10"), Ask: dec("478.14"), Last: dec("478.12"), Change: dec("-3.24"), ChangePercent: dec("-0.67"), Volume: "98M"},
		{Symbol: "GME", Name: "GameStop Corp", Bid: dec("18.43"), Ask: dec("18.47"), Last: dec("18.45"), Change: dec("2.34"), ChangePercent: dec("14.53"), Volume: "234M"},
	}
}
