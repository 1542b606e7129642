package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ LedgerStore = (*SQLiteStore)(nil)
var _ OrderStore = (*SQLiteStore)(nil)
var _ EventStore = (*SQLiteStore)(nil)
var _ ResearchQueries = (*SQLiteStore)(nil)

// schema mirrors the research deployment's tables: one account row per
// session, positions keyed by (session, symbol), append-only trades, resting
// orders, and the clickstream log. Money columns are stored as TEXT to keep
// exact decimal values.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	session_id TEXT PRIMARY KEY,
	platform_type TEXT NOT NULL,
	initial_cash TEXT NOT NULL,
	current_cash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	session_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	shares INTEGER NOT NULL,
	avg_cost TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, symbol)
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	shares INTEGER NOT NULL,
	price TEXT NOT NULL,
	total TEXT NOT NULL,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, timestamp);

CREATE TABLE IF NOT EXISTS orders (
	order_id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	shares INTEGER NOT NULL,
	order_type TEXT NOT NULL,
	limit_price TEXT,
	status TEXT NOT NULL DEFAULT 'PENDING',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id, status);

CREATE TABLE IF NOT EXISTS clickstream (
	click_id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	event_data TEXT,
	page_url TEXT,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clickstream_session ON clickstream(session_id, timestamp);
`

// SQLiteStore implements LedgerStore, OrderStore, and EventStore backed by a
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// Serialize writers; SQLite allows one at a time anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal %q: %w", raw, err)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// LedgerStore implementation
// ---------------------------------------------------------------------------

// CreateAccount inserts a new account row.
func (s *SQLiteStore) CreateAccount(ctx context.Context, acct *domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (session_id, platform_type, initial_cash, current_cash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		acct.SessionID, string(acct.PlatformType),
		acct.InitialCash.String(), acct.CurrentCash.String(), acct.CreatedAt,
	)
	return err
}

// GetAccount retrieves the account for a session.
func (s *SQLiteStore) GetAccount(ctx context.Context, sessionID string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, platform_type, initial_cash, current_cash, created_at
		FROM accounts WHERE session_id = ?`, sessionID)

	var acct domain.Account
	var platform, initial, current string
	err := row.Scan(&acct.SessionID, &platform, &initial, &current, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	acct.PlatformType = domain.PlatformType(platform)
	if acct.InitialCash, err = scanDecimal(initial); err != nil {
		return nil, err
	}
	if acct.CurrentCash, err = scanDecimal(current); err != nil {
		return nil, err
	}
	return &acct, nil
}

// GetPosition retrieves the session's position in one symbol.
func (s *SQLiteStore) GetPosition(ctx context.Context, sessionID, symbol string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, symbol, shares, avg_cost, updated_at
		FROM positions WHERE session_id = ? AND symbol = ?`, sessionID, symbol)
	return scanPosition(row)
}

// ListPositions returns all of the session's positions ordered by symbol.
func (s *SQLiteStore) ListPositions(ctx context.Context, sessionID string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, symbol, shares, avg_cost, updated_at
		FROM positions WHERE session_id = ? ORDER BY symbol`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var pos domain.Position
	var avgCost string
	err := row.Scan(&pos.SessionID, &pos.Symbol, &pos.Shares, &avgCost, &pos.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if pos.AvgCost, err = scanDecimal(avgCost); err != nil {
		return nil, err
	}
	return &pos, nil
}

// ApplyFill applies one executed trade in a single transaction: cash update,
// position upsert or delete, trade append, and the optional order fill.
func (s *SQLiteStore) ApplyFill(ctx context.Context, fill *Fill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET current_cash = ? WHERE session_id = ?`,
		fill.Cash.String(), fill.SessionID,
	); err != nil {
		return fmt.Errorf("updating cash: %w", err)
	}

	pos := fill.Position
	if pos.Shares == 0 {
		// Fully sold positions are deleted, never stored at zero shares.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM positions WHERE session_id = ? AND symbol = ?`,
			fill.SessionID, pos.Symbol,
		); err != nil {
			return fmt.Errorf("deleting position: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO positions (session_id, symbol, shares, avg_cost, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(session_id, symbol)
			DO UPDATE SET shares = excluded.shares, avg_cost = excluded.avg_cost, updated_at = excluded.updated_at`,
			pos.SessionID, pos.Symbol, pos.Shares, pos.AvgCost.String(), pos.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upserting position: %w", err)
		}
	}

	t := fill.Trade
	res, err := tx.ExecContext(ctx, `
		INSERT INTO trades (session_id, symbol, side, shares, price, total, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Symbol, string(t.Side), t.Shares,
		t.Price.String(), t.Total.String(), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("appending trade: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	if fill.FilledOrderID != 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ? WHERE order_id = ? AND session_id = ?`,
			string(domain.OrderStatusFilled), fill.FilledOrderID, fill.SessionID,
		); err != nil {
			return fmt.Errorf("marking order filled: %w", err)
		}
	}

	return tx.Commit()
}

// ListTrades returns the session's most recent trades, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, sessionID string, limit int) ([]domain.Trade, error) {
	q := `
		SELECT trade_id, session_id, symbol, side, shares, price, total, timestamp
		FROM trades WHERE session_id = ?
		ORDER BY timestamp DESC, trade_id DESC`
	args := []any{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side, price, total string
		var err error
		if err = rows.Scan(&t.ID, &t.SessionID, &t.Symbol, &side, &t.Shares, &price, &total, &t.Timestamp); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		if t.Price, err = scanDecimal(price); err != nil {
			return nil, err
		}
		if t.Total, err = scanDecimal(total); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ListAllTrades returns every trade across all sessions, oldest first.
func (s *SQLiteStore) ListAllTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade_id, session_id, symbol, side, shares, price, total, timestamp
		FROM trades ORDER BY timestamp ASC, trade_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// CountTrades returns the number of trade rows for a session.
func (s *SQLiteStore) CountTrades(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// ResetAccount restores cash, clears positions, and cancels pending orders
// in one transaction. Trade history is kept for research purposes.
func (s *SQLiteStore) ResetAccount(ctx context.Context, sessionID string, cash decimal.Decimal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET current_cash = ? WHERE session_id = ?`,
		cash.String(), sessionID,
	); err != nil {
		return fmt.Errorf("resetting cash: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM positions WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("clearing positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE session_id = ? AND status = ?`,
		string(domain.OrderStatusCancelled), sessionID, string(domain.OrderStatusPending),
	); err != nil {
		return fmt.Errorf("cancelling pending orders: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// OrderStore implementation
// ---------------------------------------------------------------------------

// InsertOrder inserts a new order and sets its assigned ID.
func (s *SQLiteStore) InsertOrder(ctx context.Context, order *domain.Order) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (session_id, symbol, side, shares, order_type, limit_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.SessionID, order.Symbol, string(order.Side), order.Shares,
		string(order.Type), order.LimitPrice.String(), string(order.Status), order.CreatedAt,
	)
	if err != nil {
		return err
	}
	order.ID, err = res.LastInsertId()
	return err
}

// GetOrder retrieves one of the session's orders.
func (s *SQLiteStore) GetOrder(ctx context.Context, sessionID string, orderID int64) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT order_id, session_id, symbol, side, shares, order_type, limit_price, status, created_at
		FROM orders WHERE order_id = ? AND session_id = ?`, orderID, sessionID)
	return scanOrder(row)
}

// ListOrders returns the session's orders, newest first. An empty status
// matches all statuses.
func (s *SQLiteStore) ListOrders(ctx context.Context, sessionID string, status domain.OrderStatus) ([]domain.Order, error) {
	q := `
		SELECT order_id, session_id, symbol, side, shares, order_type, limit_price, status, created_at
		FROM orders WHERE session_id = ?`
	args := []any{sessionID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, order_id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var side, otype, status string
	var limitPrice sql.NullString
	err := row.Scan(&o.ID, &o.SessionID, &o.Symbol, &side, &o.Shares, &otype, &limitPrice, &status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(otype)
	o.Status = domain.OrderStatus(status)
	if limitPrice.Valid {
		if o.LimitPrice, err = scanDecimal(limitPrice.String); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

// UpdateOrderStatus sets an order's status and reports whether a row changed.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, sessionID string, orderID int64, status domain.OrderStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ? WHERE order_id = ? AND session_id = ?`,
		string(status), orderID, sessionID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

// AppendEvent inserts one clickstream row.
func (s *SQLiteStore) AppendEvent(ctx context.Context, ev *domain.Event) error {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var data any
	if len(ev.Data) > 0 {
		data = string(ev.Data)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO clickstream (session_id, event_type, event_data, page_url, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		ev.SessionID, ev.Type, data, ev.PageURL, ts,
	)
	if err != nil {
		return err
	}
	ev.ID, err = res.LastInsertId()
	return err
}

// ListEvents returns the session's most recent events, newest first.
func (s *SQLiteStore) ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error) {
	q := `
		SELECT click_id, session_id, event_type, event_data, page_url, timestamp
		FROM clickstream WHERE session_id = ?
		ORDER BY timestamp DESC, click_id DESC`
	args := []any{sessionID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var data sql.NullString
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Type, &data, &ev.PageURL, &ev.Timestamp); err != nil {
			return nil, err
		}
		if data.Valid {
			ev.Data = []byte(data.String)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ListAllEvents returns every clickstream event across all sessions, oldest
// first.
func (s *SQLiteStore) ListAllEvents(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT click_id, session_id, event_type, event_data, page_url, timestamp
		FROM clickstream ORDER BY timestamp ASC, click_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}
