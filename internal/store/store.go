// Package store defines the persistence surfaces for accounts, positions,
// trades, orders, and clickstream events, and provides the SQLite
// implementation plus the parquet research exporter.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Fill describes the complete ledger mutation for one executed trade. The
// store applies every part in a single transaction so a failed operation
// leaves no partial state behind.
type Fill struct {
	SessionID string

	// Cash is the account's cash balance after the fill.
	Cash decimal.Decimal

	// Position is the post-fill position state. Shares == 0 means the
	// position row is deleted rather than stored.
	Position *domain.Position

	// Trade is the fill record to append.
	Trade *domain.Trade

	// FilledOrderID, when non-zero, marks that resting order FILLED in the
	// same transaction. Market orders leave it zero.
	FilledOrderID int64
}

// LedgerStore persists per-session cash balances, holdings, and the
// append-only trade history.
type LedgerStore interface {
	// CreateAccount inserts a new account. Fails if the session already exists.
	CreateAccount(ctx context.Context, acct *domain.Account) error

	// GetAccount returns the account for a session, or ErrNotFound.
	GetAccount(ctx context.Context, sessionID string) (*domain.Account, error)

	// GetPosition returns the session's position in symbol, or ErrNotFound.
	GetPosition(ctx context.Context, sessionID, symbol string) (*domain.Position, error)

	// ListPositions returns all of the session's positions, ordered by symbol.
	ListPositions(ctx context.Context, sessionID string) ([]domain.Position, error)

	// ApplyFill atomically applies the cash update, position change, trade
	// append, and optional order status change of one executed trade.
	ApplyFill(ctx context.Context, fill *Fill) error

	// ListTrades returns the session's most recent trades, newest first.
	// limit <= 0 returns all trades.
	ListTrades(ctx context.Context, sessionID string, limit int) ([]domain.Trade, error)

	// CountTrades returns the total number of trade rows for a session.
	CountTrades(ctx context.Context, sessionID string) (int, error)

	// ResetAccount atomically restores cash to the given balance, deletes all
	// of the session's positions, and cancels its pending orders. Trade rows
	// are preserved.
	ResetAccount(ctx context.Context, sessionID string, cash decimal.Decimal) error
}

// OrderStore persists resting limit orders.
type OrderStore interface {
	// InsertOrder inserts a new order and sets its assigned ID.
	InsertOrder(ctx context.Context, order *domain.Order) error

	// GetOrder returns one of the session's orders, or ErrNotFound.
	GetOrder(ctx context.Context, sessionID string, orderID int64) (*domain.Order, error)

	// ListOrders returns the session's orders, newest first. An empty status
	// matches all statuses.
	ListOrders(ctx context.Context, sessionID string, status domain.OrderStatus) ([]domain.Order, error)

	// UpdateOrderStatus sets the status of one of the session's orders and
	// reports whether a row was changed. Unknown IDs are not an error.
	UpdateOrderStatus(ctx context.Context, sessionID string, orderID int64, status domain.OrderStatus) (bool, error)
}

// EventStore persists clickstream telemetry records.
type EventStore interface {
	// AppendEvent inserts one event row.
	AppendEvent(ctx context.Context, ev *domain.Event) error

	// ListEvents returns the session's most recent events, newest first.
	// limit <= 0 returns all events.
	ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error)
}

// ResearchQueries are the cross-session reads used by the research export
// tool. Rows come back oldest first so export files read chronologically.
type ResearchQueries interface {
	ListAllTrades(ctx context.Context) ([]domain.Trade, error)
	ListAllEvents(ctx context.Context) ([]domain.Event, error)
}
