package api

import "encoding/json"

type tradeRequest struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Shares     int64   `json:"shares"`
	OrderType  string  `json:"order_type"`
	LimitPrice float64 `json:"limit_price"`
}

type cancelOrderRequest struct {
	OrderID int64 `json:"order_id"`
}

type eventRequest struct {
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data"`
	PageURL   string          `json:"page_url"`
}

// statusResponse is the envelope every mutating endpoint returns. Domain
// rejections (insufficient funds, unknown symbol) come back as success=false
// with HTTP 200; non-2xx is reserved for transport and server errors.
type statusResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Cash    *float64 `json:"cash,omitempty"`
	OrderID int64    `json:"order_id,omitempty"`
}

type accountSummary struct {
	TotalValue         float64 `json:"total_value"`
	CashBalance        float64 `json:"cash_balance"`
	BuyingPower        float64 `json:"buying_power"`
	TodayChange        float64 `json:"today_change"`
	TodayChangePercent float64 `json:"today_change_percent"`
}

type positionJSON struct {
	Symbol          string  `json:"symbol"`
	Shares          int64   `json:"shares"`
	AvgCost         float64 `json:"avg_cost"`
	CurrentPrice    float64 `json:"current_price"`
	MarketValue     float64 `json:"market_value"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
}

type orderJSON struct {
	ID         int64    `json:"id"`
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Shares     int64    `json:"shares"`
	OrderType  string   `json:"order_type"`
	LimitPrice *float64 `json:"limit_price"`
	Status     string   `json:"status"`
	Timestamp  string   `json:"timestamp"`
}

type tradeJSON struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Shares    int64   `json:"shares"`
	Price     float64 `json:"price"`
	Total     float64 `json:"total"`
	Timestamp string  `json:"timestamp"`
}

type portfolioResponse struct {
	AccountSummary accountSummary `json:"account_summary"`
	Positions      []positionJSON `json:"positions"`
	Orders         []orderJSON    `json:"orders"`
	History        []tradeJSON    `json:"history"`
}

type quoteJSON struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Bid           float64 `json:"bid"`
	Ask           float64 `json:"ask"`
	Last          float64 `json:"last"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        string  `json:"volume"`
}
