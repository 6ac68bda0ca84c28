// Package domain provides core domain models and types.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StockType represents the kind of share a stock is
type StockType int

const (
	// StockTypeCommon pays a variable dividend
	StockTypeCommon StockType = 0
	// StockTypePreferred pays a fixed dividend on its par value
	StockTypePreferred StockType = 1
)

// String returns the display name of the stock type
func (t StockType) String() string {
	if t == StockTypePreferred {
		return "Preferred"
	}
	return "Common"
}

// UnmarshalJSON accepts both the numeric code and the display name ("Common", "preferred").
func (t *StockType) UnmarshalJSON(data []byte) error {
	code, err := decodeEnum(data, map[string]int{"common": 0, "preferred": 1})
	if err != nil {
		return fmt.Errorf("invalid stock type %s: %w", data, err)
	}
	*t = StockType(code)
	return nil
}

// Indicator represents the direction of a trade
type Indicator int

const (
	// IndicatorBuy is a purchase of shares
	IndicatorBuy Indicator = 0
	// IndicatorSell is a sale of shares
	IndicatorSell Indicator = 1
)

// String returns the display name of the indicator
func (i Indicator) String() string {
	if i == IndicatorSell {
		return "Sell"
	}
	return "Buy"
}

// UnmarshalJSON accepts both the numeric code and the display name ("Buy", "sell").
func (i *Indicator) UnmarshalJSON(data []byte) error {
	code, err := decodeEnum(data, map[string]int{"buy": 0, "sell": 1})
	if err != nil {
		return fmt.Errorf("invalid indicator %s: %w", data, err)
	}
	*i = Indicator(code)
	return nil
}

// TimestampLayout is the display format of trade timestamps (DD/MM/YYYY HH:mm:ss).
const TimestampLayout = "02/01/2006 15:04:05"

// Record is implemented by every entity held in a collection.
type Record interface {
	GetSymbol() string
	GetTimestamp() int64
}

// Stock represents a listed stock as reported by the exchange.
// DividendYield, PERatio and VWSP are computed by the server and never sent back.
type Stock struct {
	Symbol        string              `json:"symbol"`
	Price         decimal.Decimal     `json:"price"`
	Type          StockType           `json:"type"`
	LastDividend  int64               `json:"last_dividend"`
	FixedDividend decimal.NullDecimal `json:"fixed_dividend"` // Only valid for preferred stocks
	ParValue      decimal.Decimal     `json:"par_value"`
	DividendYield decimal.Decimal     `json:"dividend_yield"`
	PERatio       decimal.Decimal     `json:"pe_ratio"`
	VWSP          decimal.Decimal     `json:"vwsp"`
	Timestamp     int64               `json:"timestamp"`
	URL           string              `json:"url,omitempty"`
}

// GetSymbol returns the logical key of the stock
func (s Stock) GetSymbol() string { return s.Symbol }

// GetTimestamp returns the creation time used for ordering
func (s Stock) GetTimestamp() int64 { return s.Timestamp }

// ResourcePath returns the path used to re-fetch this single stock.
func (s Stock) ResourcePath() string {
	if s.URL != "" {
		return s.URL
	}
	return "/stocks/" + s.Symbol
}

// Normalize enforces that a fixed dividend exists only on preferred stocks.
func (s Stock) Normalize() Stock {
	if s.Type != StockTypePreferred {
		s.FixedDividend = decimal.NullDecimal{}
	}
	return s
}

// UnmarshalJSON tolerates integer fields encoded as floats (10.0) and string enums.
func (s *Stock) UnmarshalJSON(data []byte) error {
	type plain Stock
	aux := struct {
		*plain
		LastDividend json.Number `json:"last_dividend"`
		Timestamp    json.Number `json:"timestamp"`
	}{plain: (*plain)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if s.LastDividend, err = numberToInt64(aux.LastDividend); err != nil {
		return fmt.Errorf("last_dividend: %w", err)
	}
	if s.Timestamp, err = numberToInt64(aux.Timestamp); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	return nil
}

// StockPayload is the body submitted when creating or updating a stock.
type StockPayload struct {
	Symbol        string       `json:"symbol"`
	Price         json.Number  `json:"price"`
	Type          StockType    `json:"type"`
	LastDividend  int64        `json:"last_dividend"`
	FixedDividend *json.Number `json:"fixed_dividend,omitempty"`
	ParValue      json.Number  `json:"par_value"`
}

// ParseStock normalizes a server payload into a Stock.
// The record may be wrapped under a "stock" key; anything else is taken as the record itself.
func ParseStock(raw []byte) (Stock, error) {
	var stock Stock
	if err := json.Unmarshal(unwrap(raw, "stock"), &stock); err != nil {
		return Stock{}, fmt.Errorf("failed to parse stock: %w", err)
	}
	return stock.Normalize(), nil
}

// Serialize returns the six submittable fields of the stock.
func (s Stock) Serialize() StockPayload {
	p := StockPayload{
		Symbol:       s.Symbol,
		Price:        json.Number(s.Price.String()),
		Type:         s.Type,
		LastDividend: s.LastDividend,
		ParValue:     json.Number(s.ParValue.String()),
	}
	if s.Type == StockTypePreferred && s.FixedDividend.Valid {
		fixed := json.Number(s.FixedDividend.Decimal.String())
		p.FixedDividend = &fixed
	}
	return p
}

// Trade represents an executed trade.
type Trade struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Indicator Indicator       `json:"indicator"`
	Timestamp int64           `json:"timestamp"` // unix seconds, assigned by the server
}

// GetSymbol returns the traded stock symbol
func (t Trade) GetSymbol() string { return t.Symbol }

// GetTimestamp returns the execution time used for ordering
func (t Trade) GetTimestamp() int64 { return t.Timestamp }

// ExecutedAt returns the timestamp as a time in the given location.
func (t Trade) ExecutedAt(loc *time.Location) time.Time {
	return time.Unix(t.Timestamp, 0).In(loc)
}

// UnmarshalJSON tolerates integer fields encoded as floats and string enums.
func (t *Trade) UnmarshalJSON(data []byte) error {
	type plain Trade
	aux := struct {
		*plain
		Quantity  json.Number `json:"quantity"`
		Timestamp json.Number `json:"timestamp"`
	}{plain: (*plain)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if t.Quantity, err = numberToInt64(aux.Quantity); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	if t.Timestamp, err = numberToInt64(aux.Timestamp); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	return nil
}

// TradeView is the serialized, display-oriented form of a trade.
// Timestamp is formatted text, so it cannot be parsed back into a Trade.
type TradeView struct {
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Indicator Indicator   `json:"indicator"`
	Quantity  int64       `json:"quantity"`
	Timestamp string      `json:"timestamp"`
}

// TradePayload is the body submitted when recording a trade.
type TradePayload struct {
	Symbol    string      `json:"symbol"`
	Price     json.Number `json:"price"`
	Quantity  int64       `json:"quantity"`
	Indicator Indicator   `json:"indicator"`
}

// ParseTrade normalizes a server payload into a Trade, unwrapping a "trade" key when present.
func ParseTrade(raw []byte) (Trade, error) {
	var trade Trade
	if err := json.Unmarshal(unwrap(raw, "trade"), &trade); err != nil {
		return Trade{}, fmt.Errorf("failed to parse trade: %w", err)
	}
	return trade, nil
}

// Serialize formats the trade for display using the local timezone.
func (t Trade) Serialize() TradeView {
	return t.SerializeIn(time.Local)
}

// SerializeIn formats the trade for display in the given location.
func (t Trade) SerializeIn(loc *time.Location) TradeView {
	return TradeView{
		Symbol:    t.Symbol,
		Price:     json.Number(t.Price.String()),
		Indicator: t.Indicator,
		Quantity:  t.Quantity,
		Timestamp: t.ExecutedAt(loc).Format(TimestampLayout),
	}
}

// CreatePayload returns the fields the exchange expects for a new trade.
func (t Trade) CreatePayload() TradePayload {
	return TradePayload{
		Symbol:    t.Symbol,
		Price:     json.Number(t.Price.String()),
		Quantity:  t.Quantity,
		Indicator: t.Indicator,
	}
}

// unwrap returns the value under key when raw is an object holding it, raw otherwise.
func unwrap(raw []byte, key string) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw
	}
	inner, ok := envelope[key]
	if !ok || bytes.Equal(bytes.TrimSpace(inner), []byte("null")) {
		return raw
	}
	return inner
}

func numberToInt64(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func decodeEnum(data []byte, names map[string]int) (int, error) {
	if bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		return code, nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return 0, err
	}
	code, ok := names[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown value %q", name)
	}
	return code, nil
}
