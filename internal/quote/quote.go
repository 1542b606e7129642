// Package quote defines the Source interface for market price lookups and
// provides the static simulated source used by the research deployment.
package quote

import (
	"context"
	"errors"
	"strings"

	"tradesim/internal/domain"
)

// ErrNotFound is returned when a symbol has no quote.
var ErrNotFound = errors.New("quote: symbol not found")

// Source abstracts the market data feed. The deployed system uses a fixed
// simulated table, but the interface keeps pricing swappable and mockable.
type Source interface {
	// GetQuote returns the current quote for a symbol, or ErrNotFound.
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)

	// ListQuotes returns all quotable symbols in display order.
	ListQuotes(ctx context.Context) ([]domain.Quote, error)
}

// Compile-time interface check.
var _ Source = (*StaticSource)(nil)

// StaticSource serves quotes from a fixed in-memory table. Lookups are
// case-insensitive on symbol.
type StaticSource struct {
	quotes []domain.Quote
	index  map[string]int
}

// NewStaticSource creates a StaticSource over the given quote table.
func NewStaticSource(quotes []domain.Quote) *StaticSource {
	index := make(map[string]int, len(quotes))
	for i, q := range quotes {
		index[strings.ToUpper(q.Symbol)] = i
	}
	return &StaticSource{quotes: quotes, index: index}
}

// NewSimulatedSource creates a StaticSource with the standard simulated
// market table used by both study variants.
func NewSimulatedSource() *StaticSource {
	return NewStaticSource(simulatedMarket())
}

// GetQuote returns the quote for symbol, or ErrNotFound.
func (s *StaticSource) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	i, ok := s.index[strings.ToUpper(symbol)]
	if !ok {
		return nil, ErrNotFound
	}
	q := s.quotes[i]
	return &q, nil
}

// ListQuotes returns a copy of the full quote table.
func (s *StaticSource) ListQuotes(_ context.Context) ([]domain.Quote, error) {
	out := make([]domain.Quote, len(s.quotes))
	copy(out, s.quotes)
	return out, nil
}
