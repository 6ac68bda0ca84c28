package forms

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockdesk/internal/config"
	"github.com/aristath/stockdesk/internal/domain"
)

func TestStockFormIsValid(t *testing.T) {
	tests := []struct {
		name  string
		input StockInput
		valid bool
	}{
		{
			name:  "complete common stock",
			input: StockInput{Symbol: "POP", Type: "0", Price: "100", LastDividend: "8", ParValue: "100"},
			valid: true,
		},
		{
			name:  "common stock ignores fixed dividend",
			input: StockInput{Symbol: "POP", Type: "0", Price: "100", LastDividend: "8", FixedDividend: "", ParValue: "100"},
			valid: true,
		},
		{
			name:  "zero last dividend is falsy",
			input: StockInput{Symbol: "TEA", Type: "0", Price: "100", LastDividend: "0", ParValue: "100"},
			valid: false,
		},
		{
			name:  "preferred stock needs fixed dividend",
			input: StockInput{Symbol: "GIN", Type: "1", Price: "100", LastDividend: "8", ParValue: "100"},
			valid: false,
		},
		{
			name:  "preferred stock with fixed dividend",
			input: StockInput{Symbol: "GIN", Type: "1", Price: "100", LastDividend: "8", FixedDividend: "0.02", ParValue: "100"},
			valid: true,
		},
		{
			name:  "blank symbol",
			input: StockInput{Symbol: "   ", Type: "0", Price: "100", LastDividend: "8", ParValue: "100"},
			valid: false,
		},
		{
			name:  "zero price",
			input: StockInput{Symbol: "ALE", Type: "0", Price: "0", LastDividend: "23", ParValue: "60"},
			valid: false,
		},
		{
			name:  "missing par value",
			input: StockInput{Symbol: "ALE", Type: "0", Price: "10", LastDividend: "23"},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, StockFormIsValid(tt.input.Values()))
		})
	}
}

// TEA with a last dividend of 0 is rejected by the truthy rule.
func TestStockFormIsValid_TeaWithZeroDividend(t *testing.T) {
	values := StockInput{Symbol: "TEA", Type: "0", Price: "100", LastDividend: "0", ParValue: "100"}.Values()

	assert.False(t, StockFormIsValid(values))
	assert.True(t, NewValidator(config.FormModePresence).StockValid(values))
}

func TestTradeFormIsValid(t *testing.T) {
	assert.True(t, TradeFormIsValid(TradeInput{Symbol: "GIN", Price: "50", Quantity: "10", Indicator: "0"}.Values()))
	assert.False(t, TradeFormIsValid(TradeInput{Symbol: "GIN", Price: "50", Quantity: "0"}.Values()))
	assert.False(t, TradeFormIsValid(TradeInput{Symbol: "", Price: "50", Quantity: "10"}.Values()))
	assert.False(t, TradeFormIsValid(TradeInput{Symbol: "GIN", Price: "abc", Quantity: "10"}.Values()))
}

func TestValidator_PresenceMode(t *testing.T) {
	v := NewValidator(config.FormModePresence)

	assert.True(t, v.TradeValid(TradeInput{Symbol: "GIN", Price: "0", Quantity: "0"}.Values()))
	assert.False(t, v.TradeValid(TradeInput{Symbol: "GIN", Price: "", Quantity: "1"}.Values()))
	assert.False(t, v.StockValid(StockInput{Symbol: "GIN", Type: "1", Price: "1", LastDividend: "0", ParValue: "100"}.Values()))
}

func TestNewValidator_UnknownModeIsTruthy(t *testing.T) {
	assert.Equal(t, config.FormModeTruthy, NewValidator("").Mode)
}

func TestCheckStock(t *testing.T) {
	v := NewValidator(config.FormModeTruthy)

	err := v.CheckStock(StockInput{Symbol: "TEA", Type: "0", Price: "100", LastDividend: "0", ParValue: "100"}.Values())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), FieldLastDividend)

	assert.NoError(t, v.CheckStock(StockInput{Symbol: "POP", Type: "0", Price: "100", LastDividend: "8", ParValue: "100"}.Values()))
}

func TestCheckTrade(t *testing.T) {
	v := NewValidator(config.FormModeTruthy)
	err := v.CheckTrade(TradeInput{Symbol: "GIN", Price: "50"}.Values())
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), FieldQuantity)
}

func TestStockValues_Stock(t *testing.T) {
	stock := StockInput{Symbol: " GIN ", Type: "1", Price: "100.5", LastDividend: "8", FixedDividend: "0.02", ParValue: "100"}.Values().Stock()

	assert.Equal(t, "GIN", stock.Symbol)
	assert.Equal(t, domain.StockTypePreferred, stock.Type)
	assert.Equal(t, "100.5", stock.Price.String())
	assert.Equal(t, int64(8), stock.LastDividend)
	assert.True(t, stock.FixedDividend.Valid)
	assert.Equal(t, "0.02", stock.FixedDividend.Decimal.String())

	common := StockInput{Symbol: "TEA", Type: "0", Price: "100", LastDividend: "1", FixedDividend: "0.02", ParValue: "100"}.Values().Stock()
	assert.False(t, common.FixedDividend.Valid)
}

func TestTradeValues_Trade(t *testing.T) {
	trade := TradeInput{Symbol: "GIN", Price: "50", Quantity: "10", Indicator: "1"}.Values().Trade()

	assert.Equal(t, "GIN", trade.Symbol)
	assert.Equal(t, "50", trade.Price.String())
	assert.Equal(t, int64(10), trade.Quantity)
	assert.Equal(t, domain.IndicatorSell, trade.Indicator)
	assert.Zero(t, trade.Timestamp)
}

func TestInputSetGet(t *testing.T) {
	var in StockInput
	in.Set(FieldPrice, "12")
	in.Set("unknown", "x")
	assert.Equal(t, "12", in.Get(FieldPrice))
	assert.Equal(t, "", in.Get("unknown"))

	var tr TradeInput
	tr.Set(FieldQuantity, "3")
	assert.Equal(t, "3", tr.Get(FieldQuantity))
}
