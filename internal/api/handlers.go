package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"tradesim/internal/domain"
	"tradesim/internal/ledger"
)

const timestampLayout = "2006-01-02 15:04:05"

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	orderType := req.OrderType
	if orderType == "" {
		orderType = string(domain.OrderTypeMarket)
	}

	s.recordEvent(r, "trade_attempt", map[string]any{
		"symbol": symbol, "shares": req.Shares,
		"action": req.Action, "order_type": orderType,
	})

	if symbol == "" || req.Shares <= 0 {
		writeJSON(w, statusResponse{Success: false, Message: "Invalid order parameters"})
		return
	}
	side := domain.Side(strings.ToUpper(req.Action))
	if !side.Valid() {
		writeJSON(w, statusResponse{Success: false, Message: "Invalid order parameters"})
		return
	}

	q, err := s.quotes.GetQuote(r.Context(), symbol)
	if err != nil {
		writeJSON(w, statusResponse{Success: false, Message: "Symbol not found"})
		return
	}

	switch orderType {
	case string(domain.OrderTypeMarket):
		s.executeMarket(w, r, symbol, side, req.Shares, q.Last)
	case string(domain.OrderTypeLimit):
		s.placeLimit(w, r, symbol, side, req.Shares, req.LimitPrice)
	default:
		writeJSON(w, statusResponse{Success: false, Message: "Invalid order parameters"})
	}
}

func (s *Server) executeMarket(w http.ResponseWriter, r *http.Request, symbol string, side domain.Side, shares int64, price decimal.Decimal) {
	cash, err := s.ledger.ExecuteMarketOrder(r.Context(), sessionID(r.Context()), symbol, side, shares)
	if err != nil {
		writeJSON(w, statusResponse{Success: false, Message: tradeErrorMessage(err)})
		return
	}

	verb := "Bought"
	if side == domain.SideSell {
		verb = "Sold"
	}
	s.recordEvent(r, "trade_completed", map[string]any{
		"symbol": symbol, "shares": shares, "action": strings.ToLower(string(side)),
		"price": price.InexactFloat64(), "total": price.Mul(decimal.NewFromInt(shares)).InexactFloat64(),
	})

	newCash := cash.InexactFloat64()
	writeJSON(w, statusResponse{
		Success: true,
		Message: fmt.Sprintf("Order filled: %s %d shares of %s at $%.2f", verb, shares, symbol, price.InexactFloat64()),
		Cash:    &newCash,
	})
}

func (s *Server) placeLimit(w http.ResponseWriter, r *http.Request, symbol string, side domain.Side, shares int64, limitPrice float64) {
	order, err := s.ledger.PlaceLimitOrder(r.Context(), sessionID(r.Context()), symbol, side, shares, decimal.NewFromFloat(limitPrice))
	if err != nil {
		writeJSON(w, statusResponse{Success: false, Message: tradeErrorMessage(err)})
		return
	}

	s.recordEvent(r, "order_placed", map[string]any{
		"symbol": symbol, "shares": shares, "action": strings.ToLower(string(side)),
		"order_type": "limit", "limit_price": limitPrice,
	})

	writeJSON(w, statusResponse{
		Success: true,
		Message: fmt.Sprintf("Limit order placed for %d shares of %s", shares, symbol),
		OrderID: order.ID,
	})
}

// tradeErrorMessage maps ledger rejections to the user-facing message. Any
// unexpected error is reported generically; the handler has already logged
// nothing sensitive beyond this.
func tradeErrorMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return "Insufficient funds"
	case errors.Is(err, ledger.ErrInsufficientShares):
		return "Insufficient shares"
	case errors.Is(err, ledger.ErrInvalidOrder):
		return "Invalid order parameters"
	default:
		return "Trade failed"
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.ledger.CancelOrder(r.Context(), sessionID(r.Context()), req.OrderID); err != nil {
		s.log.Error("cancelling order", "order", req.OrderID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.recordEvent(r, "order_cancelled", map[string]any{"order_id": req.OrderID})
	writeJSON(w, statusResponse{Success: true, Message: "Order cancelled"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Reset(r.Context(), sessionID(r.Context())); err != nil {
		s.log.Error("resetting account", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.recordEvent(r, "account_reset", nil)
	writeJSON(w, statusResponse{Success: true, Message: "Account reset successfully"})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.EventType == "" {
		writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	if s.recorder != nil {
		s.recorder.Record(&domain.Event{
			SessionID: sessionID(r.Context()),
			Type:      req.EventType,
			Data:      req.EventData,
			PageURL:   req.PageURL,
		})
	}
	writeJSON(w, statusResponse{Success: true, Message: "Event recorded"})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.recordEvent(r, "page_view", map[string]any{"page": "portfolio"})

	p, err := s.ledger.Portfolio(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.log.Error("building portfolio", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := portfolioResponse{
		AccountSummary: accountSummary{
			TotalValue:         p.TotalValue.InexactFloat64(),
			CashBalance:        p.Cash.InexactFloat64(),
			BuyingPower:        p.BuyingPower.InexactFloat64(),
			TodayChange:        p.TodayChange.InexactFloat64(),
			TodayChangePercent: p.TodayChangePercent.InexactFloat64(),
		},
		Positions: make([]positionJSON, 0, len(p.Positions)),
		Orders:    make([]orderJSON, 0, len(p.Orders)),
		History:   make([]tradeJSON, 0, len(p.Trades)),
	}
	for _, pv := range p.Positions {
		resp.Positions = append(resp.Positions, positionJSON{
			Symbol:          pv.Symbol,
			Shares:          pv.Shares,
			AvgCost:         pv.AvgCost.InexactFloat64(),
			CurrentPrice:    pv.CurrentPrice.InexactFloat64(),
			MarketValue:     pv.MarketValue.InexactFloat64(),
			GainLoss:        pv.GainLoss.InexactFloat64(),
			GainLossPercent: pv.GainLossPercent.InexactFloat64(),
		})
	}
	for _, o := range p.Orders {
		limit := o.LimitPrice.InexactFloat64()
		resp.Orders = append(resp.Orders, orderJSON{
			ID:         o.ID,
			Symbol:     o.Symbol,
			Side:       string(o.Side),
			Shares:     o.Shares,
			OrderType:  string(o.Type),
			LimitPrice: &limit,
			Status:     string(o.Status),
			Timestamp:  o.CreatedAt.Format(timestampLayout),
		})
	}
	for _, t := range p.Trades {
		resp.History = append(resp.History, tradeJSON{
			Symbol:    t.Symbol,
			Side:      string(t.Side),
			Shares:    t.Shares,
			Price:     t.Price.InexactFloat64(),
			Total:     t.Total.InexactFloat64(),
			Timestamp: t.Timestamp.Format(timestampLayout),
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	quotes, err := s.quotes.ListQuotes(r.Context())
	if err != nil {
		s.log.Error("listing quotes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]quoteJSON, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, quoteJSON{
			Symbol:        q.Symbol,
			Name:          q.Name,
			Bid:           q.Bid.InexactFloat64(),
			Ask:           q.Ask.InexactFloat64(),
			Last:          q.Last.InexactFloat64(),
			Change:        q.Change.InexactFloat64(),
			ChangePercent: q.ChangePercent.InexactFloat64(),
			Volume:        q.Volume,
		})
	}
	writeJSON(w, out)
}

func (s *Server) recordEvent(r *http.Request, eventType string, data any) {
	if s.recorder == nil {
		return
	}
	id := sessionID(r.Context())
	if id == "" {
		return
	}
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	s.recorder.Record(&domain.Event{
		SessionID: id,
		Type:      eventType,
		Data:      raw,
		PageURL:   r.URL.String(),
	})
}
