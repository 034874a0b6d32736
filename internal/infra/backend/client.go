package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/infra"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"
)

// Client is the trading backend REST client.
// Authentication is session based so every request shares one cookie jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client from the API section of cfg
func NewClient(cfg *infra.Config) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "backend_client"),
	}, nil
}

// ======================================================================================
// Auth
// ======================================================================================

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userEnvelope accepts both {"user":{...}} and a bare user object
type userEnvelope struct {
	Wrapped *domain.User `json:"user"`
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Email   string       `json:"email"`
}

func (e userEnvelope) user() *domain.User {
	if e.Wrapped != nil {
		return e.Wrapped
	}
	return &domain.User{ID: e.ID, Name: e.Name, Email: e.Email}
}

// Login starts a session for the given credentials
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	var resp userEnvelope
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", nil, loginRequest{email, password}, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("Logged in", slog.String("email", email))
	return resp.user(), nil
}

// Register creates an account
func (c *Client) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	var resp userEnvelope
	if err := c.doJSON(ctx, "register", http.MethodPost, "/auth/register", nil, registerRequest{name, email, password}, &resp); err != nil {
		return nil, err
	}
	return resp.user(), nil
}

// Logout ends the current session
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, "logout", http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the user bound to the current session
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var resp userEnvelope
	if err := c.doJSON(ctx, "me", http.MethodGet, "/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.user(), nil
}

// ======================================================================================
// Candles
// ======================================================================================

type candleRow struct {
	Bucket json.RawMessage `json:"bucket"`
	Time   json.RawMessage `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// GetCandles fetches aggregated bars for asset between start and end
func (c *Client) GetCandles(ctx context.Context, interval string, start, end time.Time, asset string) ([]domain.Bar, error) {
	if !domain.IsValidInterval(interval) {
		return nil, &domain.ValidationError{Field: "interval", Message: fmt.Sprintf("unsupported interval %q", interval)}
	}

	symbol := domain.NormalizeSymbol(asset)
	query := url.Values{}
	query.Set("ts", interval)
	query.Set("startTime", strconv.FormatInt(start.Unix(), 10))
	query.Set("endTime", strconv.FormatInt(end.Unix(), 10))
	query.Set("asset", symbol)

	var resp struct {
		Data []candleRow `json:"data"`
	}
	if err := c.doJSON(ctx, "get candles", http.MethodGet, "/candles", query, nil, &resp); err != nil {
		return nil, err
	}

	bars := make([]domain.Bar, 0, len(resp.Data))
	for i, row := range resp.Data {
		raw := row.Bucket
		if len(raw) == 0 || string(raw) == "null" {
			raw = row.Time
		}
		bucket, err := parseBucket(raw)
		if err != nil {
			return nil, fmt.Errorf("get candles: row %d: %w", i, err)
		}
		bars = append(bars, domain.Bar{
			Symbol:      symbol,
			Interval:    interval,
			BucketStart: bucket,
			Open:        row.Open,
			High:        row.High,
			Low:         row.Low,
			Close:       row.Close,
			Volume:      row.Volume,
		})
	}
	return bars, nil
}

// parseBucket accepts RFC3339 strings, SQL timestamps, and unix seconds or millis
func parseBucket(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, errors.New("missing bucket time")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return unixTime(n), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized bucket time %q", s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, fmt.Errorf("unrecognized bucket time %s", raw)
	}
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return time.Time{}, fmt.Errorf("unrecognized bucket time %s", raw)
		}
		v = int64(f)
	}
	return unixTime(v), nil
}

func unixTime(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}

// GetSymbols returns the tradable symbol catalog
func (c *Client) GetSymbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := c.doJSON(ctx, "get symbols", http.MethodGet, "/candles/symbols", nil, nil, &resp); err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, raw := range resp.Data {
		// Entries are either plain strings or {"symbol": "..."} objects.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			var obj struct {
				Symbol string `json:"symbol"`
				Asset  string `json:"asset"`
			}
			if err := json.Unmarshal(raw, &obj); err != nil {
				continue
			}
			s = obj.Symbol
			if s == "" {
				s = obj.Asset
			}
		}
		if s = domain.NormalizeSymbol(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

// ======================================================================================
// Orders
// ======================================================================================

// orderEnvelope accepts {"order":{...}}, {"data":{...}} or a bare order
type orderEnvelope struct {
	Order *domain.Order `json:"order"`
	Data  *domain.Order `json:"data"`
}

func decodeOrder(body []byte) (*domain.Order, error) {
	var env orderEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Order != nil {
		return env.Order, nil
	}
	if env.Data != nil {
		return env.Data, nil
	}
	var o domain.Order
	if err := json.Unmarshal(body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder submits a validated intent. It is never retried.
func (c *Client) CreateOrder(ctx context.Context, intent domain.OrderIntent) (*domain.Order, error) {
	body, err := c.do(ctx, "create order", http.MethodPost, "/trades/orders", nil, intent)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(body)
	if err != nil {
		return nil, fmt.Errorf("create order: decode response: %w", err)
	}

	c.logger.Info("Order placed",
		slog.String("id", order.ID),
		slog.String("client_order_id", intent.ClientOrderID),
		slog.String("symbol", intent.Symbol),
		slog.String("side", string(intent.Side)),
	)
	return order, nil
}

// GetOrders lists the positions of the current user
func (c *Client) GetOrders(ctx context.Context) ([]domain.Order, error) {
	body, err := c.do(ctx, "get orders", http.MethodGet, "/trades/orders", nil, nil)
	if err != nil {
		return nil, err
	}

	var env struct {
		Orders []domain.Order `json:"orders"`
		Data   []domain.Order `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Orders != nil {
			return env.Orders, nil
		}
		if env.Data != nil {
			return env.Data, nil
		}
	}

	var orders []domain.Order
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("get orders: decode response: %w", err)
	}
	return orders, nil
}

// GetOrder fetches one position by id
func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	body, err := c.do(ctx, "get order", http.MethodGet, "/trades/orders/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(body)
	if err != nil {
		return nil, fmt.Errorf("get order: decode response: %w", err)
	}
	return order, nil
}

// CloseOrder closes an open position at the current market price
func (c *Client) CloseOrder(ctx context.Context, id string) (*domain.Order, error) {
	body, err := c.do(ctx, "close order", http.MethodPost, "/trades/orders/"+url.PathEscape(id)+"/close", nil, nil)
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(body)
	if err != nil {
		return nil, fmt.Errorf("close order: decode response: %w", err)
	}
	return order, nil
}

type tpslRequest struct {
	TakeProfit *decimal.Decimal `json:"takeProfit"`
	StopLoss   *decimal.Decimal `json:"stopLoss"`
}

// UpdateOrderTPSL replaces the take profit and stop loss of a position.
// A nil level clears it.
func (c *Client) UpdateOrderTPSL(ctx context.Context, id string, takeProfit, stopLoss *decimal.Decimal) (*domain.Order, error) {
	body, err := c.do(ctx, "update tpsl", http.MethodPost, "/trades/orders/"+url.PathEscape(id)+"/tpsl", nil, tpslRequest{takeProfit, stopLoss})
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(body)
	if err != nil {
		return nil, fmt.Errorf("update tpsl: decode response: %w", err)
	}
	return order, nil
}

// ======================================================================================
// Transport
// ======================================================================================

// doJSON performs the request and decodes a 2xx body into out (when non-nil)
func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	data, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// do handles serialization and maps non-2xx responses to RemoteError
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewNetworkError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &domain.RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Debug("Backend request rejected", slog.String("op", op), slog.Int("status", resp.StatusCode))
		return nil, remote
	}
	return data, nil
}

// errorMessage extracts the "message" (or "error") field of an error body
func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return strings.TrimSpace(string(body))
}
