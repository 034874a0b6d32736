package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/infra"

	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &infra.Config{}
	cfg.API.BaseURL = srv.URL
	cfg.API.RequestTimeoutSec = 5

	c, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestClient_GetCandles(t *testing.T) {
	start := time.Unix(1700000000, 0)
	end := start.Add(24 * time.Hour)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/candles" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("ts") != "1h" || q.Get("asset") != "btcusdt" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("startTime") != "1700000000" || q.Get("endTime") != "1700086400" {
			t.Errorf("Expected unix seconds, got %s", r.URL.RawQuery)
		}

		w.Write([]byte(`{"data":[
			{"bucket":"2024-01-01T01:00:00Z","open":"101","high":"110","low":"100","close":"110","volume":"3"},
			{"time":1704067200,"open":100,"high":102,"low":99,"close":101,"volume":2},
			{"bucket":"2024-01-01 02:00:00","open":110,"high":111,"low":109,"close":111,"volume":1},
			{"bucket":1704074400000,"open":111,"high":112,"low":110,"close":112,"volume":1}
		]}`))
	}))

	bars, err := c.GetCandles(context.Background(), "1h", start, end, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetCandles failed: %v", err)
	}
	if len(bars) != 4 {
		t.Fatalf("Expected 4 bars, got %d", len(bars))
	}

	wantTimes := []time.Time{
		time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC),
	}
	for i, want := range wantTimes {
		if !bars[i].BucketStart.Equal(want) {
			t.Errorf("bars[%d].BucketStart = %v, want %v", i, bars[i].BucketStart, want)
		}
		if bars[i].Symbol != "btcusdt" || bars[i].Interval != "1h" {
			t.Errorf("bars[%d] key = %s/%s", i, bars[i].Symbol, bars[i].Interval)
		}
	}
	if !bars[0].Close.Equal(decimal.NewFromInt(110)) {
		t.Errorf("Close = %v", bars[0].Close)
	}
}

func TestClient_GetCandlesRejectsInterval(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected for an invalid interval")
	}))

	_, err := c.GetCandles(context.Background(), "7m", time.Now(), time.Now(), "btcusdt")
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}
}

func TestClient_GetSymbols(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":["BTCUSDT",{"symbol":"ethusdt"},{"asset":"SOLUSDT"},42]}`))
	}))

	symbols, err := c.GetSymbols(context.Background())
	if err != nil {
		t.Fatalf("GetSymbols failed: %v", err)
	}
	want := []string{"btcusdt", "ethusdt", "solusdt"}
	if len(symbols) != len(want) {
		t.Fatalf("Expected %v, got %v", want, symbols)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %s, want %s", i, symbols[i], want[i])
		}
	}
}

func TestClient_CreateOrder(t *testing.T) {
	tp := decimal.NewFromInt(120)
	var received map[string]interface{}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/trades/orders" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"order":{"id":"o-1","symbol":"btcusdt","orderType":"long","quantity":"2","price":"100","leverage":10,"status":"open","createdAt":"2024-01-01T00:00:00Z"}}`))
	}))

	intent := domain.OrderIntent{
		ClientOrderID: "cid-1",
		Symbol:        "btcusdt",
		Side:          domain.SideLong,
		Quantity:      decimal.NewFromInt(2),
		Price:         decimal.NewFromInt(100),
		Leverage:      10,
		TakeProfit:    &tp,
	}

	order, err := c.CreateOrder(context.Background(), intent)
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}
	if order.ID != "o-1" || !order.IsOpen() {
		t.Errorf("Unexpected order %+v", order)
	}

	if received["orderType"] != "long" || received["symbol"] != "btcusdt" {
		t.Errorf("Unexpected request body %v", received)
	}
	if received["clientOrderId"] != "cid-1" {
		t.Errorf("clientOrderId missing from body: %v", received)
	}
	if received["stopLoss"] != nil {
		t.Errorf("stopLoss should be null, got %v", received["stopLoss"])
	}
}

func TestClient_RemoteError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Insufficient funds"}`, "Insufficient funds"},
		{"error field", http.StatusUnauthorized, `{"error":"unauthorized"}`, "unauthorized"},
		{"plain body", http.StatusInternalServerError, "boom", "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := c.CreateOrder(context.Background(), domain.OrderIntent{Symbol: "btcusdt", Side: domain.SideShort})

			var remote *domain.RemoteError
			if !errors.As(err, &remote) {
				t.Fatalf("Expected RemoteError, got %v", err)
			}
			if remote.Status != tt.status || remote.Message != tt.message {
				t.Errorf("RemoteError = %+v", remote)
			}
			if domain.IsRetriable(err) {
				t.Error("Remote rejections must not be retriable")
			}
		})
	}
}

func TestClient_OrderQueries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /trades/orders", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"orders":[{"id":"a","status":"open"},{"id":"b","status":"closed"}]}`))
	})
	mux.HandleFunc("GET /trades/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"` + r.PathValue("id") + `","status":"open"}`))
	})
	mux.HandleFunc("POST /trades/orders/{id}/close", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"` + r.PathValue("id") + `","status":"closed"}}`))
	})
	mux.HandleFunc("POST /trades/orders/{id}/tpsl", func(w http.ResponseWriter, r *http.Request) {
		var req tpslRequest
		json.NewDecoder(r.Body).Decode(&req)
		resp := domain.Order{ID: r.PathValue("id"), Status: "open", TakeProfit: req.TakeProfit, StopLoss: req.StopLoss}
		json.NewEncoder(w).Encode(map[string]interface{}{"order": resp})
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	orders, err := c.GetOrders(ctx)
	if err != nil || len(orders) != 2 {
		t.Fatalf("GetOrders = %v, %v", orders, err)
	}

	order, err := c.GetOrder(ctx, "a")
	if err != nil || order.ID != "a" {
		t.Fatalf("GetOrder = %+v, %v", order, err)
	}

	closed, err := c.CloseOrder(ctx, "a")
	if err != nil || closed.IsOpen() {
		t.Fatalf("CloseOrder = %+v, %v", closed, err)
	}

	sl := decimal.NewFromInt(90)
	updated, err := c.UpdateOrderTPSL(ctx, "a", nil, &sl)
	if err != nil {
		t.Fatalf("UpdateOrderTPSL failed: %v", err)
	}
	if updated.TakeProfit != nil || updated.StopLoss == nil || !updated.StopLoss.Equal(sl) {
		t.Errorf("Unexpected TP/SL: %+v", updated)
	}
}

func TestClient_SessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s3cret", Path: "/"})
		w.Write([]byte(`{"user":{"id":"u1","name":"Kim","email":"kim@example.com"}}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("sid"); err != nil || ck.Value != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Not authenticated"}`))
			return
		}
		w.Write([]byte(`{"id":"u1","name":"Kim","email":"kim@example.com"}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)
	ctx := context.Background()

	if _, err := c.Me(ctx); err == nil {
		t.Fatal("Me should fail before login")
	}

	user, err := c.Login(ctx, "kim@example.com", "pw")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "u1" {
		t.Errorf("Login user = %+v", user)
	}

	me, err := c.Me(ctx)
	if err != nil {
		t.Fatalf("Me failed after login: %v", err)
	}
	if me.Email != "kim@example.com" {
		t.Errorf("Me = %+v", me)
	}

	if err := c.Logout(ctx); err != nil {
		t.Errorf("Logout failed: %v", err)
	}
}

func TestParseBucket_Invalid(t *testing.T) {
	for _, raw := range []string{``, `null`, `"yesterday"`, `{}`} {
		if _, err := parseBucket(json.RawMessage(raw)); err == nil {
			t.Errorf("parseBucket(%q) should fail", raw)
		}
	}
}
