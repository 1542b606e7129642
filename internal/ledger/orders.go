package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/store"
)

// PlaceLimitOrder records a resting limit order in PENDING status. Cash and
// shares are not reserved at placement time; under-funded orders are simply
// skipped by the matcher when their price crosses.
func (l *Ledger) PlaceLimitOrder(ctx context.Context, sessionID, symbol string, side domain.Side, shares int64, limitPrice decimal.Decimal) (*domain.Order, error) {
	if shares <= 0 || !side.Valid() || limitPrice.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidOrder
	}

	q, err := l.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown symbol %q", ErrInvalidOrder, symbol)
	}

	order := &domain.Order{
		SessionID:  sessionID,
		Symbol:     q.Symbol,
		Side:       side,
		Shares:     shares,
		Type:       domain.OrderTypeLimit,
		LimitPrice: limitPrice.Round(2),
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.orders.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	l.log.Info("limit order placed",
		"session", sessionID, "order", order.ID, "symbol", order.Symbol,
		"side", side, "shares", shares, "limit", order.LimitPrice)
	return order, nil
}

// CancelOrder sets a PENDING order to CANCELLED. Cancelling an unknown,
// already-cancelled, or filled order is a silent no-op: the operation is
// idempotent and always reports success. No ledger state is touched.
func (l *Ledger) CancelOrder(ctx context.Context, sessionID string, orderID int64) error {
	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	order, err := l.orders.GetOrder(ctx, sessionID, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		return nil
	}

	if _, err := l.orders.UpdateOrderStatus(ctx, sessionID, orderID, domain.OrderStatusCancelled); err != nil {
		return err
	}
	l.log.Info("order cancelled", "session", sessionID, "order", orderID)
	return nil
}

// MatchPendingOrders sweeps the session's PENDING limit orders against
// current quotes and fills every order whose limit condition the market
// price satisfies (buy: last <= limit, sell: last >= limit). Crossed orders
// fill at their limit price, oldest first, producing the same atomic ledger
// mutation as a market order plus the FILLED status change. Orders the
// session cannot fund at fill time stay PENDING. Returns the number of
// orders filled.
//
// The sweep runs on demand when a session touches the API; there is no
// background matching loop.
func (l *Ledger) MatchPendingOrders(ctx context.Context, sessionID string) (int, error) {
	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	pending, err := l.orders.ListOrders(ctx, sessionID, domain.OrderStatusPending)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	acct, err := l.store.GetAccount(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	filled := 0
	// ListOrders returns newest first; fill in placement order.
	for i := len(pending) - 1; i >= 0; i-- {
		o := pending[i]

		q, err := l.quotes.GetQuote(ctx, o.Symbol)
		if err != nil {
			continue
		}
		if !o.Crossed(q.Last) {
			continue
		}

		if _, err := l.fillLocked(ctx, acct, o.Symbol, o.Side, o.Shares, o.LimitPrice, o.ID); err != nil {
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientShares) {
				// Placement never reserved funds or shares; leave the
				// order resting until the session can cover it.
				l.log.Debug("crossed order left pending",
					"session", sessionID, "order", o.ID, "reason", err)
				continue
			}
			return filled, err
		}

		l.log.Info("limit order filled",
			"session", sessionID, "order", o.ID, "symbol", o.Symbol,
			"side", o.Side, "shares", o.Shares, "price", o.LimitPrice)
		filled++
	}
	return filled, nil
}
