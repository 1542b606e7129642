package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() {
		if cerr := s.Close(); cerr != nil {
			t.Errorf("Close() returned error: %v", cerr)
		}
	})
	return s
}

func seedAccount(t *testing.T, s *SQLiteStore, sessionID string) *domain.Account {
	t.Helper()
	acct := &domain.Account{
		SessionID:    sessionID,
		PlatformType: domain.PlatformTraditional,
		InitialCash:  dec(t, "100000.00"),
		CurrentCash:  dec(t, "100000.00"),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acct
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedAccount(t, s, "sess-1")

	got, err := s.GetAccount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", got.SessionID)
	}
	if !got.CurrentCash.Equal(dec(t, "100000.00")) {
		t.Errorf("CurrentCash = %s, want 100000.00", got.CurrentCash)
	}
	if got.PlatformType != domain.PlatformTraditional {
		t.Errorf("PlatformType = %q", got.PlatformType)
	}

	if _, err := s.GetAccount(ctx, "no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAccount(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestApplyFillBuy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	now := time.Now().UTC()
	fill := &Fill{
		SessionID: "sess-1",
		Cash:      dec(t, "75716.00"),
		Position: &domain.Position{
			SessionID: "sess-1",
			Symbol:    "TSLA",
			Shares:    100,
			AvgCost:   dec(t, "242.84"),
			UpdatedAt: now,
		},
		Trade: &domain.Trade{
			SessionID: "sess-1",
			Symbol:    "TSLA",
			Side:      domain.SideBuy,
			Shares:    100,
			Price:     dec(t, "242.84"),
			Total:     dec(t, "24284.00"),
			Timestamp: now,
		},
	}
	if err := s.ApplyFill(ctx, fill); err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}
	if fill.Trade.ID == 0 {
		t.Error("ApplyFill should assign a trade ID")
	}

	acct, err := s.GetAccount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !acct.CurrentCash.Equal(dec(t, "75716.00")) {
		t.Errorf("cash = %s, want 75716.00", acct.CurrentCash)
	}

	pos, err := s.GetPosition(ctx, "sess-1", "TSLA")
	if err != nil {
		t.Fatalf("GetPosition: %v", err)
	}
	if pos.Shares != 100 || !pos.AvgCost.Equal(dec(t, "242.84")) {
		t.Errorf("position = %d @ %s, want 100 @ 242.84", pos.Shares, pos.AvgCost)
	}

	trades, err := s.ListTrades(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("ListTrades returned %d rows, want 1", len(trades))
	}
	if trades[0].Side != domain.SideBuy || !trades[0].Total.Equal(dec(t, "24284.00")) {
		t.Errorf("trade = %+v", trades[0])
	}
}

func TestListAllAcrossSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")
	seedAccount(t, s, "sess-2")

	base := time.Now().UTC().Add(-time.Minute)
	for i, sess := range []string{"sess-1", "sess-2"} {
		fill := &Fill{
			SessionID: sess,
			Cash:      dec(t, "99000.00"),
			Position: &domain.Position{
				SessionID: sess, Symbol: "GME", Shares: 10,
				AvgCost: dec(t, "18.45"), UpdatedAt: base,
			},
			Trade: &domain.Trade{
				SessionID: sess, Symbol: "GME", Side: domain.SideBuy,
				Shares: 10, Price: dec(t, "18.45"), Total: dec(t, "184.50"),
				Timestamp: base.Add(time.Duration(i) * time.Second),
			},
		}
		if err := s.ApplyFill(ctx, fill); err != nil {
			t.Fatalf("ApplyFill(%s): %v", sess, err)
		}
		if err := s.AppendEvent(ctx, &domain.Event{
			SessionID: sess, Type: "page_view", PageURL: "/",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("AppendEvent(%s): %v", sess, err)
		}
	}

	trades, err := s.ListAllTrades(ctx)
	if err != nil {
		t.Fatalf("ListAllTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("ListAllTrades returned %d rows, want 2", len(trades))
	}
	// Oldest first, spanning sessions.
	if trades[0].SessionID != "sess-1" || trades[1].SessionID != "sess-2" {
		t.Errorf("trade order = %s, %s", trades[0].SessionID, trades[1].SessionID)
	}

	events, err := s.ListAllEvents(ctx)
	if err != nil {
		t.Fatalf("ListAllEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("ListAllEvents returned %d rows, want 2", len(events))
	}
	if events[0].SessionID != "sess-1" || events[1].SessionID != "sess-2" {
		t.Errorf("event order = %s, %s", events[0].SessionID, events[1].SessionID)
	}
}

func TestApplyFillZeroSharesDeletesPosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	now := time.Now().UTC()
	buy := &Fill{
		SessionID: "sess-1",
		Cash:      dec(t, "98000.00"),
		Position:  &domain.Position{SessionID: "sess-1", Symbol: "GME", Shares: 100, AvgCost: dec(t, "20.00"), UpdatedAt: now},
		Trade:     &domain.Trade{SessionID: "sess-1", Symbol: "GME", Side: domain.SideBuy, Shares: 100, Price: dec(t, "20.00"), Total: dec(t, "2000.00"), Timestamp: now},
	}
	if err := s.ApplyFill(ctx, buy); err != nil {
		t.Fatalf("ApplyFill(buy): %v", err)
	}

	sell := &Fill{
		SessionID: "sess-1",
		Cash:      dec(t, "100000.00"),
		Position:  &domain.Position{SessionID: "sess-1", Symbol: "GME", Shares: 0, AvgCost: dec(t, "20.00"), UpdatedAt: now},
		Trade:     &domain.Trade{SessionID: "sess-1", Symbol: "GME", Side: domain.SideSell, Shares: 100, Price: dec(t, "20.00"), Total: dec(t, "2000.00"), Timestamp: now},
	}
	if err := s.ApplyFill(ctx, sell); err != nil {
		t.Fatalf("ApplyFill(sell): %v", err)
	}

	if _, err := s.GetPosition(ctx, "sess-1", "GME"); !errors.Is(err, ErrNotFound) {
		t.Errorf("flat position should be deleted, got err = %v", err)
	}

	// Both trades remain in the append-only log.
	n, err := s.CountTrades(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CountTrades: %v", err)
	}
	if n != 2 {
		t.Errorf("CountTrades = %d, want 2", n)
	}
}

func TestApplyFillMarksOrderFilled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	order := &domain.Order{
		SessionID:  "sess-1",
		Symbol:     "AAPL",
		Side:       domain.SideBuy,
		Shares:     10,
		Type:       domain.OrderTypeLimit,
		LimitPrice: dec(t, "180.00"),
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.InsertOrder(ctx, order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}

	now := time.Now().UTC()
	fill := &Fill{
		SessionID:     "sess-1",
		Cash:          dec(t, "98200.00"),
		Position:      &domain.Position{SessionID: "sess-1", Symbol: "AAPL", Shares: 10, AvgCost: dec(t, "180.00"), UpdatedAt: now},
		Trade:         &domain.Trade{SessionID: "sess-1", Symbol: "AAPL", Side: domain.SideBuy, Shares: 10, Price: dec(t, "180.00"), Total: dec(t, "1800.00"), Timestamp: now},
		FilledOrderID: order.ID,
	}
	if err := s.ApplyFill(ctx, fill); err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}

	got, err := s.GetOrder(ctx, "sess-1", order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Status != domain.OrderStatusFilled {
		t.Errorf("order status = %q, want FILLED", got.Status)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	order := &domain.Order{
		SessionID:  "sess-1",
		Symbol:     "MSFT",
		Side:       domain.SideSell,
		Shares:     5,
		Type:       domain.OrderTypeLimit,
		LimitPrice: dec(t, "400.00"),
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.InsertOrder(ctx, order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	if order.ID == 0 {
		t.Fatal("InsertOrder should assign an ID")
	}

	got, err := s.GetOrder(ctx, "sess-1", order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if got.Symbol != "MSFT" || got.Side != domain.SideSell || !got.LimitPrice.Equal(dec(t, "400.00")) {
		t.Errorf("order = %+v", got)
	}

	// Orders are scoped to their session.
	if _, err := s.GetOrder(ctx, "other-session", order.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-session GetOrder error = %v, want ErrNotFound", err)
	}

	pending, err := s.ListOrders(ctx, "sess-1", domain.OrderStatusPending)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("ListOrders(PENDING) returned %d rows, want 1", len(pending))
	}

	changed, err := s.UpdateOrderStatus(ctx, "sess-1", order.ID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus: %v", err)
	}
	if !changed {
		t.Error("UpdateOrderStatus should report a changed row")
	}

	changed, err = s.UpdateOrderStatus(ctx, "sess-1", 99999, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateOrderStatus(unknown): %v", err)
	}
	if changed {
		t.Error("UpdateOrderStatus on unknown ID should report no change")
	}
}

func TestResetAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	now := time.Now().UTC()
	fill := &Fill{
		SessionID: "sess-1",
		Cash:      dec(t, "90000.00"),
		Position:  &domain.Position{SessionID: "sess-1", Symbol: "NVDA", Shares: 20, AvgCost: dec(t, "500.00"), UpdatedAt: now},
		Trade:     &domain.Trade{SessionID: "sess-1", Symbol: "NVDA", Side: domain.SideBuy, Shares: 20, Price: dec(t, "500.00"), Total: dec(t, "10000.00"), Timestamp: now},
	}
	if err := s.ApplyFill(ctx, fill); err != nil {
		t.Fatalf("ApplyFill: %v", err)
	}

	order := &domain.Order{
		SessionID: "sess-1", Symbol: "NVDA", Side: domain.SideSell, Shares: 20,
		Type: domain.OrderTypeLimit, LimitPrice: dec(t, "600.00"),
		Status: domain.OrderStatusPending, CreatedAt: now,
	}
	if err := s.InsertOrder(ctx, order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}

	if err := s.ResetAccount(ctx, "sess-1", dec(t, "100000.00")); err != nil {
		t.Fatalf("ResetAccount: %v", err)
	}

	acct, _ := s.GetAccount(ctx, "sess-1")
	if !acct.CurrentCash.Equal(dec(t, "100000.00")) {
		t.Errorf("cash after reset = %s, want 100000.00", acct.CurrentCash)
	}

	positions, _ := s.ListPositions(ctx, "sess-1")
	if len(positions) != 0 {
		t.Errorf("positions after reset = %d, want 0", len(positions))
	}

	got, _ := s.GetOrder(ctx, "sess-1", order.ID)
	if got.Status != domain.OrderStatusCancelled {
		t.Errorf("order status after reset = %q, want CANCELLED", got.Status)
	}

	// Trade history survives the reset.
	n, _ := s.CountTrades(ctx, "sess-1")
	if n != 1 {
		t.Errorf("CountTrades after reset = %d, want 1", n)
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "sess-1")

	ev := &domain.Event{
		SessionID: "sess-1",
		Type:      "trade_attempt",
		Data:      []byte(`{"symbol":"TSLA","shares":100,"action":"buy"}`),
		PageURL:   "/trade",
		Timestamp: time.Now().UTC(),
	}
	if err := s.AppendEvent(ctx, ev); err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}
	if ev.ID == 0 {
		t.Error("AppendEvent should assign an ID")
	}

	events, err := s.ListEvents(ctx, "sess-1", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("ListEvents returned %d rows, want 1", len(events))
	}
	if events[0].Type != "trade_attempt" {
		t.Errorf("event type = %q", events[0].Type)
	}
	if string(events[0].Data) != `{"symbol":"TSLA","shares":100,"action":"buy"}` {
		t.Errorf("event data = %s", events[0].Data)
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "persist.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	acct := &domain.Account{
		SessionID:    "sess-persist",
		PlatformType: domain.PlatformGamified,
		InitialCash:  dec(t, "100000.00"),
		CurrentCash:  dec(t, "100000.00"),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s1.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.GetAccount(ctx, "sess-persist")
	if err != nil {
		t.Fatalf("GetAccount after reopen: %v", err)
	}
	if got.PlatformType != domain.PlatformGamified {
		t.Errorf("PlatformType = %q after reopen", got.PlatformType)
	}
}

func TestResearchExporter(t *testing.T) {
	dir := t.TempDir()
	ex := NewResearchExporter(dir)
	ctx := context.Background()

	ts := time.Date(2025, 8, 14, 15, 30, 0, 0, time.UTC)
	trades := []domain.Trade{
		{ID: 1, SessionID: "sess-1", Symbol: "TSLA", Side: domain.SideBuy, Shares: 100, Price: dec(t, "242.84"), Total: dec(t, "24284.00"), Timestamp: ts},
		{ID: 2, SessionID: "sess-1", Symbol: "TSLA", Side: domain.SideSell, Shares: 50, Price: dec(t, "242.84"), Total: dec(t, "12142.00"), Timestamp: ts.Add(time.Hour)},
	}
	if err := ex.ExportTrades(ctx, trades); err != nil {
		t.Fatalf("ExportTrades: %v", err)
	}

	got, err := ex.ReadTrades("2025-08-14")
	if err != nil {
		t.Fatalf("ReadTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadTrades returned %d rows, want 2", len(got))
	}
	if got[0].Price != "242.84" || got[0].Side != "BUY" {
		t.Errorf("first exported trade = %+v", got[0])
	}

	// Re-export merges rather than duplicating.
	if err := ex.ExportTrades(ctx, trades); err != nil {
		t.Fatalf("ExportTrades (second): %v", err)
	}
	got, err = ex.ReadTrades("2025-08-14")
	if err != nil {
		t.Fatalf("ReadTrades after merge: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadTrades after merge returned %d rows, want 2", len(got))
	}

	events := []domain.Event{
		{ID: 1, SessionID: "sess-1", Type: "page_view", Data: []byte(`{"page":"home"}`), PageURL: "/", Timestamp: ts},
	}
	if err := ex.ExportEvents(ctx, events); err != nil {
		t.Fatalf("ExportEvents: %v", err)
	}
	gotEv, err := ex.ReadEvents("2025-08-14")
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(gotEv) != 1 || gotEv[0].EventType != "page_view" {
		t.Errorf("exported events = %+v", gotEv)
	}
}
