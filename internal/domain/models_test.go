package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStock_Wrapped(t *testing.T) {
	raw := []byte(`{"status": "ok", "stock": {"symbol": "POP", "price": 100.5, "type": 1,
		"last_dividend": 8, "fixed_dividend": 0.02, "par_value": 100,
		"dividend_yield": 0.08, "pe_ratio": 1256.25, "vwsp": 0, "timestamp": 1610000000,
		"url": "/stocks/POP"}}`)

	stock, err := ParseStock(raw)
	require.NoError(t, err)

	assert.Equal(t, "POP", stock.Symbol)
	assert.True(t, decimal.RequireFromString("100.5").Equal(stock.Price))
	assert.Equal(t, StockTypePreferred, stock.Type)
	assert.Equal(t, int64(8), stock.LastDividend)
	require.True(t, stock.FixedDividend.Valid)
	assert.Equal(t, "0.02", stock.FixedDividend.Decimal.String())
	assert.Equal(t, "1256.25", stock.PERatio.String())
	assert.Equal(t, int64(1610000000), stock.Timestamp)
	assert.Equal(t, "/stocks/POP", stock.ResourcePath())
}

func TestParseStock_Passthrough(t *testing.T) {
	stock, err := ParseStock([]byte(`{"symbol": "TEA", "price": 100, "type": 0, "last_dividend": 0, "par_value": 100}`))
	require.NoError(t, err)

	assert.Equal(t, "TEA", stock.Symbol)
	assert.Equal(t, StockTypeCommon, stock.Type)
	assert.Equal(t, "/stocks/TEA", stock.ResourcePath())
}

func TestParseStock_StringEnumsAndFloatIntegers(t *testing.T) {
	stock, err := ParseStock([]byte(`{"stock": {"symbol": "ALE", "type": "Common", "last_dividend": 23.0, "par_value": 60, "fixed_dividend": 0.5}}`))
	require.NoError(t, err)

	assert.Equal(t, StockTypeCommon, stock.Type)
	assert.Equal(t, int64(23), stock.LastDividend)
	assert.False(t, stock.FixedDividend.Valid, "common stocks never carry a fixed dividend")
}

func TestParseStock_InvalidJSON(t *testing.T) {
	_, err := ParseStock([]byte(`{"stock": `))
	assert.Error(t, err)

	_, err = ParseStock([]byte(`{"type": "ordinary"}`))
	assert.Error(t, err)
}

func TestStockSerialize(t *testing.T) {
	tests := []struct {
		name     string
		stock    Stock
		expected string
	}{
		{
			name: "common stock omits fixed dividend",
			stock: Stock{
				Symbol:        "TEA",
				Price:         decimal.NewFromInt(100),
				Type:          StockTypeCommon,
				LastDividend:  0,
				ParValue:      decimal.NewFromInt(100),
				DividendYield: decimal.NewFromFloat(0.1),
				VWSP:          decimal.NewFromInt(99),
				Timestamp:     1610000000,
			},
			expected: `{"symbol":"TEA","price":100,"type":0,"last_dividend":0,"par_value":100}`,
		},
		{
			name: "preferred stock sends fixed dividend",
			stock: Stock{
				Symbol:        "GIN",
				Price:         decimal.RequireFromString("50.25"),
				Type:          StockTypePreferred,
				LastDividend:  8,
				FixedDividend: decimal.NewNullDecimal(decimal.RequireFromString("0.02")),
				ParValue:      decimal.NewFromInt(100),
			},
			expected: `{"symbol":"GIN","price":50.25,"type":1,"last_dividend":8,"fixed_dividend":0.02,"par_value":100}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.stock.Serialize())
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(body))
		})
	}
}

func TestParseTrade_SerializeIsLossy(t *testing.T) {
	raw := []byte(`{"trade": {"symbol": "GIN", "price": 50, "indicator": 0, "quantity": 10, "timestamp": 1610000000}}`)

	trade, err := ParseTrade(raw)
	require.NoError(t, err)
	assert.Equal(t, "GIN", trade.Symbol)
	assert.Equal(t, IndicatorBuy, trade.Indicator)
	assert.Equal(t, int64(10), trade.Quantity)
	assert.Equal(t, int64(1610000000), trade.Timestamp)

	view := trade.SerializeIn(time.UTC)
	assert.Equal(t, "07/01/2021 06:13:20", view.Timestamp)

	body, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"GIN","price":50,"indicator":0,"quantity":10,"timestamp":"07/01/2021 06:13:20"}`, string(body))

	// The formatted timestamp cannot be read back as unix seconds.
	_, err = ParseTrade(body)
	assert.Error(t, err)
}

func TestParseTrade_StringIndicator(t *testing.T) {
	trade, err := ParseTrade([]byte(`{"symbol": "JOE", "price": 250.0, "indicator": "Sell", "quantity": 3.0, "timestamp": 1}`))
	require.NoError(t, err)

	assert.Equal(t, IndicatorSell, trade.Indicator)
	assert.Equal(t, "Sell", trade.Indicator.String())
	assert.Equal(t, int64(3), trade.Quantity)
}

func TestTradeCreatePayload(t *testing.T) {
	trade := Trade{Symbol: "GIN", Price: decimal.NewFromInt(50), Quantity: 10, Indicator: IndicatorSell, Timestamp: 42}

	body, err := json.Marshal(trade.CreatePayload())
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"GIN","price":50,"quantity":10,"indicator":1}`, string(body))
}

func TestStockTypeString(t *testing.T) {
	assert.Equal(t, "Common", StockTypeCommon.String())
	assert.Equal(t, "Preferred", StockTypePreferred.String())
	assert.Equal(t, "Buy", IndicatorBuy.String())
}
