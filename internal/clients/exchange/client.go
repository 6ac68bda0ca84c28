// Package exchange provides a client for the stock exchange JSON API.
// It covers the stock registry (/stocks) and the trade log (/trades).
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/utils"
)

const (
	stocksPath = "/stocks"
	tradesPath = "/trades"

	// maxBodyBytes bounds the response size read from the exchange
	maxBodyBytes = 4 << 20
)

// TradeReceipt is the exchange answer to a recorded trade.
type TradeReceipt struct {
	Trade domain.Trade
	// Index is the GBCE all share index after the trade; invalid when the exchange omitted it
	Index decimal.NullDecimal
}

// errorEnvelope is the failure body: {"status": "error", "errors": {...}} or {"status": "error", "text": "..."}
type errorEnvelope struct {
	Status string              `json:"status"`
	Errors map[string][]string `json:"errors"`
	Text   string              `json:"text"`
}

// Client is the exchange API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new exchange client
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With().Str("client", "exchange").Logger(),
	}
}

// BaseURL returns the exchange base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListStocks fetches every registered stock.
func (c *Client) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	var resp struct {
		Stocks []json.RawMessage `json:"stocks"`
	}
	if err := c.do(ctx, "list stocks", http.MethodGet, stocksPath, nil, &resp); err != nil {
		return nil, err
	}

	stocks := make([]domain.Stock, 0, len(resp.Stocks))
	for _, raw := range resp.Stocks {
		stock, err := domain.ParseStock(raw)
		if err != nil {
			return nil, &TransportError{Op: "list stocks", Err: err}
		}
		stocks = append(stocks, stock)
	}
	return stocks, nil
}

// GetStock fetches a single stock by its resource path (e.g. "/stocks/TEA").
func (c *Client) GetStock(ctx context.Context, path string) (domain.Stock, error) {
	return c.stockRequest(ctx, "get stock", http.MethodGet, path, nil)
}

// CreateStock registers a new stock.
func (c *Client) CreateStock(ctx context.Context, payload domain.StockPayload) (domain.Stock, error) {
	return c.stockRequest(ctx, "create stock", http.MethodPost, stocksPath, payload)
}

// UpdateStock replaces the attributes of a registered stock.
func (c *Client) UpdateStock(ctx context.Context, symbol string, payload domain.StockPayload) (domain.Stock, error) {
	return c.stockRequest(ctx, "update stock", http.MethodPut, stocksPath+"/"+url.PathEscape(symbol), payload)
}

func (c *Client) stockRequest(ctx context.Context, op, method, path string, body interface{}) (domain.Stock, error) {
	var raw json.RawMessage
	if err := c.do(ctx, op, method, path, body, &raw); err != nil {
		return domain.Stock{}, err
	}
	stock, err := domain.ParseStock(raw)
	if err != nil {
		return domain.Stock{}, &TransportError{Op: op, Err: err}
	}
	return stock, nil
}

// ListTrades fetches the trade log.
func (c *Client) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	var resp struct {
		Trades []json.RawMessage `json:"trades"`
	}
	if err := c.do(ctx, "list trades", http.MethodGet, tradesPath, nil, &resp); err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(resp.Trades))
	for _, raw := range resp.Trades {
		trade, err := domain.ParseTrade(raw)
		if err != nil {
			return nil, &TransportError{Op: "list trades", Err: err}
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// CreateTrade records a trade and returns it with the updated GBCE index.
func (c *Client) CreateTrade(ctx context.Context, payload domain.TradePayload) (TradeReceipt, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "create trade", http.MethodPost, tradesPath, payload, &raw); err != nil {
		return TradeReceipt{}, err
	}

	trade, err := domain.ParseTrade(raw)
	if err != nil {
		return TradeReceipt{}, &TransportError{Op: "create trade", Err: err}
	}

	var extra struct {
		Index decimal.NullDecimal `json:"gbce_index"`
	}
	if err := json.Unmarshal(raw, &extra); err != nil {
		return TradeReceipt{}, &TransportError{Op: "create trade", Err: fmt.Errorf("invalid gbce_index: %w", err)}
	}

	return TradeReceipt{Trade: trade, Index: extra.Index}, nil
}

// do performs a JSON request and decodes a 2xx body into out.
// Non-2xx answers carrying an error envelope become *RejectedError, everything else *TransportError.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With().Str("op", op).Str("request_id", requestID).Logger()
	timer := utils.NewTimer(op, log, c.httpClient.Timeout/2)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Exchange request failed")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	timer.Stop(map[string]interface{}{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeFailure(op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	return nil
}

func (c *Client) decodeFailure(op string, status int, data []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		if len(env.Errors) > 0 {
			return &RejectedError{Op: op, Status: status, Fields: FieldErrors(env.Errors)}
		}
		if env.Text != "" {
			return &RejectedError{Op: op, Status: status, Fields: FieldErrors{FormWideField: {env.Text}}}
		}
	}
	return &TransportError{Op: op, Status: status, Err: fmt.Errorf("unexpected response: %s", http.StatusText(status))}
}
