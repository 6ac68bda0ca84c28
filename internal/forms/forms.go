// Package forms derives the validity of the add-stock and add-trade forms from raw field input.
package forms

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockdesk/internal/config"
	"github.com/aristath/stockdesk/internal/domain"
)

// ErrInvalid is returned when a form is submitted before its required fields are filled.
var ErrInvalid = errors.New("form is incomplete")

// Field names, shared with the exchange error payloads
const (
	FieldSymbol        = "symbol"
	FieldType          = "type"
	FieldPrice         = "price"
	FieldLastDividend  = "last_dividend"
	FieldFixedDividend = "fixed_dividend"
	FieldParValue      = "par_value"
	FieldQuantity      = "quantity"
	FieldIndicator     = "indicator"
)

// StockInput holds the add-stock form fields as typed
type StockInput struct {
	Symbol        string
	Type          string
	Price         string
	LastDividend  string
	FixedDividend string
	ParValue      string
}

// StockValues is the parsed add-stock form.
// FixedDividend is NaN unless the type is preferred.
type StockValues struct {
	Symbol        string
	Type          domain.StockType
	Price         Value
	LastDividend  Value
	FixedDividend Value
	ParValue      Value
}

// Values parses the form fields
func (in StockInput) Values() StockValues {
	v := StockValues{
		Symbol:        strings.TrimSpace(in.Symbol),
		Price:         ParseFloat(in.Price),
		LastDividend:  ParseInt(in.LastDividend),
		FixedDividend: NaN,
		ParValue:      ParseFloat(in.ParValue),
	}
	if ParseInt(in.Type).Truthy() {
		v.Type = domain.StockTypePreferred
		v.FixedDividend = ParseFloat(in.FixedDividend)
	}
	return v
}

// Set updates a field by name. Unknown names are ignored.
func (in *StockInput) Set(field, value string) {
	switch field {
	case FieldSymbol:
		in.Symbol = value
	case FieldType:
		in.Type = value
	case FieldPrice:
		in.Price = value
	case FieldLastDividend:
		in.LastDividend = value
	case FieldFixedDividend:
		in.FixedDividend = value
	case FieldParValue:
		in.ParValue = value
	}
}

// Get returns a field by name
func (in StockInput) Get(field string) string {
	switch field {
	case FieldSymbol:
		return in.Symbol
	case FieldType:
		return in.Type
	case FieldPrice:
		return in.Price
	case FieldLastDividend:
		return in.LastDividend
	case FieldFixedDividend:
		return in.FixedDividend
	case FieldParValue:
		return in.ParValue
	}
	return ""
}

// Stock builds the entity to submit
func (v StockValues) Stock() domain.Stock {
	s := domain.Stock{
		Symbol:       v.Symbol,
		Price:        toDecimal(v.Price),
		Type:         v.Type,
		LastDividend: int64(v.LastDividend.Float()),
		ParValue:     toDecimal(v.ParValue),
	}
	if v.Type == domain.StockTypePreferred && v.FixedDividend.Present() {
		s.FixedDividend = decimal.NewNullDecimal(toDecimal(v.FixedDividend))
	}
	return s
}

// TradeInput holds the add-trade form fields as typed
type TradeInput struct {
	Symbol    string
	Price     string
	Quantity  string
	Indicator string
}

// TradeValues is the parsed add-trade form
type TradeValues struct {
	Symbol    string
	Price     Value
	Quantity  Value
	Indicator domain.Indicator
}

// Values parses the form fields
func (in TradeInput) Values() TradeValues {
	v := TradeValues{
		Symbol:   strings.TrimSpace(in.Symbol),
		Price:    ParseFloat(in.Price),
		Quantity: ParseInt(in.Quantity),
	}
	if ParseInt(in.Indicator).Truthy() {
		v.Indicator = domain.IndicatorSell
	}
	return v
}

// Set updates a field by name. Unknown names are ignored.
func (in *TradeInput) Set(field, value string) {
	switch field {
	case FieldSymbol:
		in.Symbol = value
	case FieldPrice:
		in.Price = value
	case FieldQuantity:
		in.Quantity = value
	case FieldIndicator:
		in.Indicator = value
	}
}

// Get returns a field by name
func (in TradeInput) Get(field string) string {
	switch field {
	case FieldSymbol:
		return in.Symbol
	case FieldPrice:
		return in.Price
	case FieldQuantity:
		return in.Quantity
	case FieldIndicator:
		return in.Indicator
	}
	return ""
}

// Trade builds the entity to submit. The timestamp is assigned by the exchange.
func (v TradeValues) Trade() domain.Trade {
	return domain.Trade{
		Symbol:    v.Symbol,
		Price:     toDecimal(v.Price),
		Quantity:  int64(v.Quantity.Float()),
		Indicator: v.Indicator,
	}
}

// StockFormIsValid applies the truthiness rule: every numeric field must be non-zero,
// so a last dividend of 0 makes the form invalid.
func StockFormIsValid(v StockValues) bool {
	return Validator{Mode: config.FormModeTruthy}.StockValid(v)
}

// TradeFormIsValid applies the truthiness rule to the trade form.
func TradeFormIsValid(v TradeValues) bool {
	return Validator{Mode: config.FormModeTruthy}.TradeValid(v)
}

// Validator judges form completeness in the configured mode.
type Validator struct {
	Mode config.FormMode
}

// NewValidator creates a validator, falling back to the truthy mode for unknown values
func NewValidator(mode config.FormMode) Validator {
	if mode != config.FormModePresence {
		mode = config.FormModeTruthy
	}
	return Validator{Mode: mode}
}

func (val Validator) filled(v Value) bool {
	if val.Mode == config.FormModePresence {
		return v.Present()
	}
	return v.Truthy()
}

// StockValid reports whether the stock form may be submitted
func (val Validator) StockValid(v StockValues) bool {
	if !val.filled(v.ParValue) || v.Symbol == "" || !val.filled(v.Price) || !val.filled(v.LastDividend) {
		return false
	}
	return v.Type != domain.StockTypePreferred || val.filled(v.FixedDividend)
}

// TradeValid reports whether the trade form may be submitted
func (val Validator) TradeValid(v TradeValues) bool {
	return val.filled(v.Quantity) && v.Symbol != "" && val.filled(v.Price)
}

// CheckStock returns ErrInvalid naming the first missing field
func (val Validator) CheckStock(v StockValues) error {
	switch {
	case v.Symbol == "":
		return fmt.Errorf("%w: %s", ErrInvalid, FieldSymbol)
	case !val.filled(v.Price):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldPrice)
	case !val.filled(v.LastDividend):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldLastDividend)
	case v.Type == domain.StockTypePreferred && !val.filled(v.FixedDividend):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldFixedDividend)
	case !val.filled(v.ParValue):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldParValue)
	}
	return nil
}

// CheckTrade returns ErrInvalid naming the first missing field
func (val Validator) CheckTrade(v TradeValues) error {
	switch {
	case v.Symbol == "":
		return fmt.Errorf("%w: %s", ErrInvalid, FieldSymbol)
	case !val.filled(v.Price):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldPrice)
	case !val.filled(v.Quantity):
		return fmt.Errorf("%w: %s", ErrInvalid, FieldQuantity)
	}
	return nil
}

func toDecimal(v Value) decimal.Decimal {
	if !v.Present() || math.IsInf(v.Float(), 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v.Float())
}
