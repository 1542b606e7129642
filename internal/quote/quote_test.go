package quote

import (
	"context"
	"errors"
	"testing"
)

func TestSimulatedSourceLookup(t *testing.T) {
	src := NewSimulatedSource()
	ctx := context.Background()

	q, err := src.GetQuote(ctx, "TSLA")
	if err != nil {
		t.Fatalf("GetQuote(TSLA): %v", err)
	}
	if q.Last.String() != "242.84" {
		t.Errorf("TSLA last = %s, want 242.84", q.Last)
	}
	if q.Bid.GreaterThanOrEqual(q.Ask) {
		t.Errorf("TSLA bid %s should be below ask %s", q.Bid, q.Ask)
	}

	// Lookup is case-insensitive.
	q2, err := src.GetQuote(ctx, "tsla")
	if err != nil {
		t.Fatalf("GetQuote(tsla): %v", err)
	}
	if !q2.Last.Equal(q.Last) {
		t.Errorf("case-insensitive lookup returned different quote: %s vs %s", q2.Last, q.Last)
	}
}

func TestSimulatedSourceUnknownSymbol(t *testing.T) {
	src := NewSimulatedSource()

	_, err := src.GetQuote(context.Background(), "ZZZZ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetQuote(ZZZZ) error = %v, want ErrNotFound", err)
	}
}

func TestListQuotes(t *testing.T) {
	src := NewSimulatedSource()

	quotes, err := src.ListQuotes(context.Background())
	if err != nil {
		t.Fatalf("ListQuotes: %v", err)
	}
	if len(quotes) != 6 {
		t.Fatalf("ListQuotes returned %d quotes, want 6", len(quotes))
	}
	if quotes[0].Symbol != "AAPL" {
		t.Errorf("first quote = %s, want AAPL (display order preserved)", quotes[0].Symbol)
	}

	// Returned slice is a copy; mutating it must not affect the source.
	quotes[0].Symbol = "HACKED"
	again, _ := src.ListQuotes(context.Background())
	if again[0].Symbol != "AAPL" {
		t.Error("mutating the returned slice changed the source table")
	}
}
