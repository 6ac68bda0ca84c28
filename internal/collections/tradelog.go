package collections

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/events"
)

// TradesAPI is the part of the exchange client the trade log needs
type TradesAPI interface {
	ListTrades(ctx context.Context) ([]domain.Trade, error)
	CreateTrade(ctx context.Context, payload domain.TradePayload) (exchange.TradeReceipt, error)
}

// TradeLog is the list of executed trades.
type TradeLog struct {
	*Collection[domain.Trade]
	api TradesAPI
}

// Summary aggregates the loaded trades for display
type Summary struct {
	Count        int
	Bought       int64
	Sold         int64
	AveragePrice decimal.Decimal // quantity weighted
}

// NewTradeLog creates an empty trade log
func NewTradeLog(api TradesAPI, em *events.Manager, log zerolog.Logger) *TradeLog {
	return &TradeLog{
		Collection: newCollection[domain.Trade]("trades", em, log),
		api:        api,
	}
}

// FetchAll replaces the trade log with the exchange listing.
func (l *TradeLog) FetchAll(ctx context.Context) error {
	stale, err := l.fetch(ctx, l.api.ListTrades)
	if err != nil {
		return opError("fetch trades", err)
	}
	l.emit(&events.TradesResetData{Count: l.Len(), Stale: stale})
	return nil
}

// Create records a trade and appends it once the exchange confirmed it.
// The receipt carries the GBCE index reported with the trade.
func (l *TradeLog) Create(ctx context.Context, trade domain.Trade) (exchange.TradeReceipt, error) {
	receipt, err := l.api.CreateTrade(ctx, trade.CreatePayload())
	if err != nil {
		return exchange.TradeReceipt{}, opError("create trade", err)
	}

	l.add(receipt.Trade, false)
	l.emit(&events.TradeAddedData{Trade: receipt.Trade})
	l.saveSnapshot()
	return receipt, nil
}

// Summary computes totals over the loaded trades
func (l *TradeLog) Summary() Summary {
	trades := l.Items()
	s := Summary{Count: len(trades)}
	if len(trades) == 0 {
		return s
	}

	prices := make([]float64, len(trades))
	weights := make([]float64, len(trades))
	for i, t := range trades {
		prices[i] = t.Price.InexactFloat64()
		weights[i] = float64(t.Quantity)
		if t.Indicator == domain.IndicatorSell {
			s.Sold += t.Quantity
		} else {
			s.Bought += t.Quantity
		}
	}

	if s.Bought+s.Sold > 0 {
		s.AveragePrice = decimal.NewFromFloat(stat.Mean(prices, weights)).Round(4)
	}
	return s
}
