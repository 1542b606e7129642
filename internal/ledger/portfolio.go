package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
)

// recentTradeLimit caps the trade history returned with a portfolio view.
const recentTradeLimit = 20

// PositionView is one holding valued at the current quote.
type PositionView struct {
	Symbol          string
	Shares          int64
	AvgCost         decimal.Decimal
	CurrentPrice    decimal.Decimal
	MarketValue     decimal.Decimal
	GainLoss        decimal.Decimal
	GainLossPercent decimal.Decimal
}

// Portfolio is the full account report: cash, valued positions, pending
// orders, and recent trade history. It is derived entirely from stored
// ledger state and current quotes; computing it has no side effects.
type Portfolio struct {
	Cash               decimal.Decimal
	BuyingPower        decimal.Decimal
	TotalValue         decimal.Decimal
	TodayChange        decimal.Decimal
	TodayChangePercent decimal.Decimal
	Positions          []PositionView
	Orders             []domain.Order
	Trades             []domain.Trade
}

// Portfolio builds the account report for a session. Unrealized gain/loss is
// (current - avg_cost) * shares; the percentage is defined as zero when the
// cost basis is zero. Total value is cash plus the sum of position market
// values.
func (l *Ledger) Portfolio(ctx context.Context, sessionID string) (*Portfolio, error) {
	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	positions, err := l.store.ListPositions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	totalValue := acct.CurrentCash
	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		q, err := l.quotes.GetQuote(ctx, pos.Symbol)
		if err != nil {
			// A holding the quote source no longer knows cannot be valued;
			// it is omitted from the report, matching the display behavior.
			continue
		}

		shares := decimal.NewFromInt(pos.Shares)
		marketValue := q.Last.Mul(shares)
		costBasis := pos.AvgCost.Mul(shares)
		gainLoss := marketValue.Sub(costBasis)

		gainLossPct := decimal.Zero
		if costBasis.IsPositive() {
			gainLossPct = gainLoss.Div(costBasis).Mul(hundred)
		}

		totalValue = totalValue.Add(marketValue)
		views = append(views, PositionView{
			Symbol:          pos.Symbol,
			Shares:          pos.Shares,
			AvgCost:         pos.AvgCost,
			CurrentPrice:    q.Last,
			MarketValue:     marketValue,
			GainLoss:        gainLoss,
			GainLossPercent: gainLossPct,
		})
	}

	orders, err := l.orders.ListOrders(ctx, sessionID, domain.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	trades, err := l.store.ListTrades(ctx, sessionID, recentTradeLimit)
	if err != nil {
		return nil, err
	}

	todayChange := totalValue.Sub(acct.InitialCash)
	todayChangePct := decimal.Zero
	if acct.InitialCash.IsPositive() {
		todayChangePct = todayChange.Div(acct.InitialCash).Mul(hundred)
	}

	return &Portfolio{
		Cash:               acct.CurrentCash,
		BuyingPower:        acct.CurrentCash.Mul(decimal.NewFromInt(2)),
		TotalValue:         totalValue,
		TodayChange:        todayChange,
		TodayChangePercent: todayChangePct,
		Positions:          views,
		Orders:             orders,
		Trades:             trades,
	}, nil
}
