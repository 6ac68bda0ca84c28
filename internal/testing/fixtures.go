package testing

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockdesk/internal/domain"
)

// NewStockFixtures returns the sample GBCE stocks, oldest first
func NewStockFixtures() []domain.Stock {
	return []domain.Stock{
		{
			Symbol:       "TEA",
			Price:        decimal.NewFromInt(100),
			Type:         domain.StockTypeCommon,
			LastDividend: 0,
			ParValue:     decimal.NewFromInt(100),
			Timestamp:    1609459200,
		},
		{
			Symbol:       "POP",
			Price:        decimal.NewFromInt(100),
			Type:         domain.StockTypeCommon,
			LastDividend: 8,
			ParValue:     decimal.NewFromInt(100),
			Timestamp:    1609459260,
		},
		{
			Symbol:       "ALE",
			Price:        decimal.NewFromInt(60),
			Type:         domain.StockTypeCommon,
			LastDividend: 23,
			ParValue:     decimal.NewFromInt(60),
			Timestamp:    1609459320,
		},
		{
			Symbol:        "GIN",
			Price:         decimal.NewFromInt(100),
			Type:          domain.StockTypePreferred,
			LastDividend:  8,
			FixedDividend: decimal.NewNullDecimal(decimal.RequireFromString("0.02")),
			ParValue:      decimal.NewFromInt(100),
			Timestamp:     1609459380,
		},
		{
			Symbol:       "JOE",
			Price:        decimal.NewFromInt(250),
			Type:         domain.StockTypeCommon,
			LastDividend: 13,
			ParValue:     decimal.NewFromInt(250),
			Timestamp:    1609459440,
		},
	}
}

// NewTradeFixtures returns a few trades on the fixture stocks
func NewTradeFixtures() []domain.Trade {
	return []domain.Trade{
		{Symbol: "GIN", Price: decimal.NewFromInt(98), Quantity: 10, Indicator: domain.IndicatorBuy, Timestamp: 1609462800},
		{Symbol: "POP", Price: decimal.NewFromInt(101), Quantity: 5, Indicator: domain.IndicatorSell, Timestamp: 1609466400},
		{Symbol: "GIN", Price: decimal.NewFromInt(102), Quantity: 10, Indicator: domain.IndicatorSell, Timestamp: 1609470000},
	}
}
