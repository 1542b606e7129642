package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTypesExist(t *testing.T) {
	// Verify Account can be instantiated with zero values.
	acct := Account{}
	if acct.SessionID != "" {
		t.Error("expected empty SessionID for zero-value Account")
	}
	if !acct.CurrentCash.IsZero() || !acct.InitialCash.IsZero() {
		t.Error("expected zero cash for zero-value Account")
	}
	if !acct.CreatedAt.IsZero() {
		t.Error("expected zero CreatedAt for zero-value Account")
	}

	// Verify Position can be instantiated with zero values.
	pos := Position{}
	if pos.Symbol != "" || pos.Shares != 0 {
		t.Error("expected empty Symbol and zero Shares for zero-value Position")
	}

	// Verify Order can be instantiated with zero values.
	order := Order{}
	if order.ID != 0 || order.Side != "" || order.Type != "" || order.Status != "" {
		t.Error("expected zero fields for zero-value Order")
	}

	// Verify enum constants have the persisted wire values.
	if SideBuy != "BUY" || SideSell != "SELL" {
		t.Error("Side constants have unexpected values")
	}
	if OrderTypeMarket != "market" || OrderTypeLimit != "limit" {
		t.Error("OrderType constants have unexpected values")
	}
	if OrderStatusPending != "PENDING" || OrderStatusCancelled != "CANCELLED" || OrderStatusFilled != "FILLED" {
		t.Error("OrderStatus constants have unexpected values")
	}
	if PlatformGamified != "gamified" || PlatformTraditional != "traditional" {
		t.Error("PlatformType constants have unexpected values")
	}

	// Verify structs can be constructed with real values.
	now := time.Now()
	trade := Trade{
		ID:        1,
		SessionID: "abc",
		Symbol:    "TSLA",
		Side:      SideBuy,
		Shares:    100,
		Price:     decimal.RequireFromString("242.84"),
		Total:     decimal.RequireFromString("24284.00"),
		Timestamp: now,
	}
	if trade.Side != SideBuy {
		t.Errorf("trade.Side = %q, want %q", trade.Side, SideBuy)
	}
}

func TestSideValid(t *testing.T) {
	if !SideBuy.Valid() || !SideSell.Valid() {
		t.Error("BUY and SELL should be valid sides")
	}
	if Side("HOLD").Valid() {
		t.Error("HOLD should not be a valid side")
	}
	if Side("buy").Valid() {
		t.Error("sides are case-sensitive; lowercase buy should be invalid")
	}
}

func TestPositionCostBasis(t *testing.T) {
	pos := Position{
		Symbol:  "AAPL",
		Shares:  10,
		AvgCost: decimal.RequireFromString("178.23"),
	}
	want := decimal.RequireFromString("1782.30")
	if !pos.CostBasis().Equal(want) {
		t.Errorf("CostBasis() = %s, want %s", pos.CostBasis(), want)
	}
}

func TestOrderCrossed(t *testing.T) {
	buy := Order{Side: SideBuy, LimitPrice: decimal.RequireFromString("100.00")}
	if !buy.Crossed(decimal.RequireFromString("99.50")) {
		t.Error("buy limit 100 should cross at last 99.50")
	}
	if !buy.Crossed(decimal.RequireFromString("100.00")) {
		t.Error("buy limit 100 should cross at last 100.00")
	}
	if buy.Crossed(decimal.RequireFromString("100.01")) {
		t.Error("buy limit 100 should not cross at last 100.01")
	}

	sell := Order{Side: SideSell, LimitPrice: decimal.RequireFromString("200.00")}
	if !sell.Crossed(decimal.RequireFromString("200.00")) {
		t.Error("sell limit 200 should cross at last 200.00")
	}
	if sell.Crossed(decimal.RequireFromString("199.99")) {
		t.Error("sell limit 200 should not cross at last 199.99")
	}
}
