package collections

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/domain"
)

type MockStocksAPI struct {
	mock.Mock
}

func (m *MockStocksAPI) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Stock), args.Error(1)
}

func (m *MockStocksAPI) GetStock(ctx context.Context, path string) (domain.Stock, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(domain.Stock), args.Error(1)
}

func (m *MockStocksAPI) CreateStock(ctx context.Context, payload domain.StockPayload) (domain.Stock, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(domain.Stock), args.Error(1)
}

func (m *MockStocksAPI) UpdateStock(ctx context.Context, symbol string, payload domain.StockPayload) (domain.Stock, error) {
	args := m.Called(ctx, symbol, payload)
	return args.Get(0).(domain.Stock), args.Error(1)
}

type MockTradesAPI struct {
	mock.Mock
}

func (m *MockTradesAPI) ListTrades(ctx context.Context) ([]domain.Trade, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Trade), args.Error(1)
}

func (m *MockTradesAPI) CreateTrade(ctx context.Context, payload domain.TradePayload) (exchange.TradeReceipt, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(exchange.TradeReceipt), args.Error(1)
}
