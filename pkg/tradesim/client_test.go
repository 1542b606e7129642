package tradesim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:5001")
	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.httpClient == nil || c.httpClient.Jar == nil {
		t.Fatal("client must carry a cookie jar for session affinity")
	}
}

func TestClientRoundTrip(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/trade":
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			if req["symbol"] != "TSLA" {
				t.Errorf("symbol = %v, want TSLA", req["symbol"])
			}
			http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "abc", Path: "/"})
			cash := 75716.00
			json.NewEncoder(w).Encode(TradeResult{Success: true, Message: "Order filled: Bought 100 shares of TSLA at $242.84", Cash: &cash})
		case "/portfolio":
			if c, err := r.Cookie("session_id"); err == nil && c.Value == "abc" {
				sawCookie = true
			}
			json.NewEncoder(w).Encode(Portfolio{
				AccountSummary: AccountSummary{CashBalance: 75716.00},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	res, err := c.Trade(ctx, "TSLA", "buy", 100)
	if err != nil {
		t.Fatalf("Trade: %v", err)
	}
	if !res.Success || res.Cash == nil || *res.Cash != 75716.00 {
		t.Errorf("trade result = %+v", res)
	}

	p, err := c.Portfolio(ctx)
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if p.AccountSummary.CashBalance != 75716.00 {
		t.Errorf("cash = %v, want 75716.00", p.AccountSummary.CashBalance)
	}
	if !sawCookie {
		t.Error("session cookie was not carried to the second request")
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.Portfolio(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
