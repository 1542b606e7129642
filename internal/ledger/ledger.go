// Package ledger implements the account ledger and order-execution core:
// market-order execution against the quote source, the resting limit-order
// lifecycle, account reset, and quote-driven portfolio valuation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/quote"
	"tradesim/internal/store"
)

// Ledger coordinates all state transitions for session accounts. It is
// stateless between calls apart from per-session locks; all durable state
// lives behind the store interfaces.
type Ledger struct {
	store        store.LedgerStore
	orders       store.OrderStore
	quotes       quote.Source
	startingCash decimal.Decimal
	platform     domain.PlatformType
	log          *slog.Logger

	// One mutex per session serializes read-modify-write sequences on that
	// session's cash and positions. Sessions never contend with each other.
	locks sync.Map // sessionID → *sync.Mutex
}

// New creates a Ledger wired with the given dependencies.
func New(
	ledgerStore store.LedgerStore,
	orderStore store.OrderStore,
	quotes quote.Source,
	startingCash decimal.Decimal,
	platform domain.PlatformType,
	log *slog.Logger,
) *Ledger {
	return &Ledger{
		store:        ledgerStore,
		orders:       orderStore,
		quotes:       quotes,
		startingCash: startingCash,
		platform:     platform,
		log:          log,
	}
}

// StartingCash returns the configured opening balance.
func (l *Ledger) StartingCash() decimal.Decimal {
	return l.startingCash
}

func (l *Ledger) sessionLock(sessionID string) *sync.Mutex {
	m, _ := l.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// EnsureAccount returns the session's account, creating it with the starting
// balance on first contact.
func (l *Ledger) EnsureAccount(ctx context.Context, sessionID string) (*domain.Account, error) {
	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, sessionID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	acct = &domain.Account{
		SessionID:    sessionID,
		PlatformType: l.platform,
		InitialCash:  l.startingCash,
		CurrentCash:  l.startingCash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := l.store.CreateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	l.log.Info("account created", "session", sessionID, "platform", l.platform, "cash", l.startingCash)
	return acct, nil
}

// ExecuteMarketOrder validates and applies an immediate buy or sell at the
// current quoted price. It returns the new cash balance on success. The
// cash update, position change, and trade append apply atomically; a failed
// order leaves no observable ledger change.
func (l *Ledger) ExecuteMarketOrder(ctx context.Context, sessionID, symbol string, side domain.Side, shares int64) (decimal.Decimal, error) {
	if shares <= 0 || !side.Valid() {
		return decimal.Zero, ErrInvalidOrder
	}

	q, err := l.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: unknown symbol %q", ErrInvalidOrder, symbol)
	}

	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	acct, err := l.store.GetAccount(ctx, sessionID)
	if err != nil {
		return decimal.Zero, err
	}

	newCash, err := l.fillLocked(ctx, acct, q.Symbol, side, shares, q.Last, 0)
	if err != nil {
		return decimal.Zero, err
	}

	l.log.Info("market order executed",
		"session", sessionID, "symbol", q.Symbol, "side", side,
		"shares", shares, "price", q.Last, "cash", newCash)
	return newCash, nil
}

// fillLocked applies one fill at the given price: it computes the new cash
// and position state and hands the complete mutation to the store as a
// single transaction. orderID, when non-zero, marks that resting order
// FILLED in the same transaction. Caller must hold the session lock.
func (l *Ledger) fillLocked(ctx context.Context, acct *domain.Account, symbol string, side domain.Side, shares int64, price decimal.Decimal, orderID int64) (decimal.Decimal, error) {
	total := price.Mul(decimal.NewFromInt(shares))
	now := time.Now().UTC()

	pos, err := l.store.GetPosition(ctx, acct.SessionID, symbol)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, err
	}

	var newCash decimal.Decimal
	var newPos domain.Position

	switch side {
	case domain.SideBuy:
		if total.GreaterThan(acct.CurrentCash) {
			return decimal.Zero, ErrInsufficientFunds
		}
		newCash = acct.CurrentCash.Sub(total)
		if pos != nil {
			// Weighted average over the old basis and this purchase.
			oldBasis := pos.AvgCost.Mul(decimal.NewFromInt(pos.Shares))
			newShares := pos.Shares + shares
			newAvg := oldBasis.Add(total).Div(decimal.NewFromInt(newShares)).Round(2)
			newPos = domain.Position{
				SessionID: acct.SessionID, Symbol: symbol,
				Shares: newShares, AvgCost: newAvg, UpdatedAt: now,
			}
		} else {
			newPos = domain.Position{
				SessionID: acct.SessionID, Symbol: symbol,
				Shares: shares, AvgCost: price, UpdatedAt: now,
			}
		}

	case domain.SideSell:
		if pos == nil || pos.Shares < shares {
			return decimal.Zero, ErrInsufficientShares
		}
		newCash = acct.CurrentCash.Add(total)
		// Shares == 0 tells the store to delete the row; the average cost
		// of a flat position is discarded, not retained.
		newPos = domain.Position{
			SessionID: acct.SessionID, Symbol: symbol,
			Shares: pos.Shares - shares, AvgCost: pos.AvgCost, UpdatedAt: now,
		}

	default:
		return decimal.Zero, ErrInvalidOrder
	}

	fill := &store.Fill{
		SessionID: acct.SessionID,
		Cash:      newCash,
		Position:  &newPos,
		Trade: &domain.Trade{
			SessionID: acct.SessionID,
			Symbol:    symbol,
			Side:      side,
			Shares:    shares,
			Price:     price,
			Total:     total,
			Timestamp: now,
		},
		FilledOrderID: orderID,
	}
	if err := l.store.ApplyFill(ctx, fill); err != nil {
		return decimal.Zero, fmt.Errorf("applying fill: %w", err)
	}

	acct.CurrentCash = newCash
	return newCash, nil
}

// Reset restores the session to its starting balance: cash back to the
// configured opening amount, positions deleted, pending orders cancelled.
// Trade history is preserved for the research record.
func (l *Ledger) Reset(ctx context.Context, sessionID string) error {
	mu := l.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := l.store.ResetAccount(ctx, sessionID, l.startingCash); err != nil {
		return err
	}
	l.log.Info("account reset", "session", sessionID, "cash", l.startingCash)
	return nil
}
