// Package tradesim provides a Go SDK for the tradesim-server API. A Client
// carries the session cookie across calls, so one Client corresponds to one
// participant session.
package tradesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Client talks to a tradesim-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL. The client keeps its
// own cookie jar; reuse one Client to stay in the same session.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// TradeResult is the server's response to a trade, cancel, or reset request.
type TradeResult struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Cash    *float64 `json:"cash,omitempty"`
	OrderID int64    `json:"order_id,omitempty"`
}

// Position is one holding valued at the current quote.
type Position struct {
	Symbol          string  `json:"symbol"`
	Shares          int64   `json:"shares"`
	AvgCost         float64 `json:"avg_cost"`
	CurrentPrice    float64 `json:"current_price"`
	MarketValue     float64 `json:"market_value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

// Order is a resting limit order.
type Order struct {
	ID         int64    `json:"id"`
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Shares     int64    `json:"shares"`
	OrderType  string   `json:"order_type"`
	LimitPrice *float64 `json:"limit_price"`
	Status     string   `json:"status"`
	Timestamp  string   `json:"timestamp"`
}

// Trade is one executed fill from the session's history.
type Trade struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Shares    int64   `json:"shares"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	Timestamp string  `json:"timestamp"`
}

// AccountSummary is the headline account numbers.
type AccountSummary struct {
	TotalValue         float64 `json:"total_value"`
	CashBalance        float64 `json:"cash_balance"`
	BuyingPower        float64 `json:"buying_power"`
	TodayChange        float64 `json:"today_change"`
	TodayChangePercent float64 `json:"today_change_percent"`
}

// Portfolio is the full account report.
type Portfolio struct {
	AccountSummary AccountSummary `json:"account_summary"`
	Positions      []Position     `json:"positions"`
	Orders         []Order        `json:"orders"`
	History        []Trade        `json:"history"`
}

// Quote is one row of the market table.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Last          float64 `json:"last"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        string  `json:"volume"`
}

type tradeRequest struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Shares     int64   `json:"shares"`
	OrderType  string  `json:"order_type,omitempty"`
	LimitPrice float64 `json:"limit_price,omitempty"`
}

// Trade executes a market order. action is "buy" or "sell". The returned
// TradeResult carries the server's verdict; a rejected order (insufficient
// funds, unknown symbol) is Success=false, not an error.
func (c *Client) Trade(ctx context.Context, symbol, action string, shares int64) (*TradeResult, error) {
	var res TradeResult
	err := c.post(ctx, "/trade", tradeRequest{
		Symbol: symbol, Action: action, Shares: shares, OrderType: "market",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PlaceLimitOrder places a resting limit order.
func (c *Client) PlaceLimitOrder(ctx context.Context, symbol, action string, shares int64, limitPrice float64) (*TradeResult, error) {
	var res TradeResult
	err := c.post(ctx, "/trade", tradeRequest{
		Symbol: symbol, Action: action, Shares: shares,
		OrderType: "limit", LimitPrice: limitPrice,
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelOrder cancels a pending order. Cancelling an already-resolved order
// still succeeds.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) (*TradeResult, error) {
	var res TradeResult
	err := c.post(ctx, "/cancel_order", map[string]int64{"order_id": orderID}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Reset restores the session's account to its starting balance.
func (c *Client) Reset(ctx context.Context) (*TradeResult, error) {
	var res TradeResult
	if err := c.post(ctx, "/reset", struct{}{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Portfolio fetches the session's account report.
func (c *Client) Portfolio(ctx context.Context) (*Portfolio, error) {
	var p Portfolio
	if err := c.get(ctx, "/portfolio", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Market fetches the full market table.
func (c *Client) Market(ctx context.Context) ([]Quote, error) {
	var quotes []Quote
	if err := c.get(ctx, "/market", &quotes); err != nil {
		return nil, err
	}
	return quotes, nil
}

// LogEvent records a clickstream event against the session.
func (c *Client) LogEvent(ctx context.Context, eventType string, data any, pageURL string) error {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshaling event data: %w", err)
		}
		raw = b
	}
	var res TradeResult
	return c.post(ctx, "/event", map[string]any{
		"event_type": eventType,
		"event_data": raw,
		"page_url":   pageURL,
	}, &res)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
