package collections

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/events"
)

// StocksAPI is the part of the exchange client the registry needs
type StocksAPI interface {
	ListStocks(ctx context.Context) ([]domain.Stock, error)
	GetStock(ctx context.Context, path string) (domain.Stock, error)
	CreateStock(ctx context.Context, payload domain.StockPayload) (domain.Stock, error)
	UpdateStock(ctx context.Context, symbol string, payload domain.StockPayload) (domain.Stock, error)
}

// Registry is the set of listed stocks, unique by symbol.
type Registry struct {
	*Collection[domain.Stock]
	api StocksAPI
}

// NewRegistry creates an empty registry
func NewRegistry(api StocksAPI, em *events.Manager, log zerolog.Logger) *Registry {
	return &Registry{
		Collection: newCollection[domain.Stock]("stocks", em, log),
		api:        api,
	}
}

// FetchAll replaces the registry with the exchange listing.
func (r *Registry) FetchAll(ctx context.Context) error {
	stale, err := r.fetch(ctx, r.api.ListStocks)
	if err != nil {
		return opError("fetch stocks", err)
	}
	r.emit(&events.StocksResetData{Count: r.Len(), Stale: stale})
	return nil
}

// Create submits a new stock and adds it once the exchange confirmed it.
// On error the registry is left unchanged.
func (r *Registry) Create(ctx context.Context, stock domain.Stock) (domain.Stock, error) {
	created, err := r.api.CreateStock(ctx, stock.Normalize().Serialize())
	if err != nil {
		return domain.Stock{}, opError("create stock", err)
	}

	r.store(created)
	return created, nil
}

// Update replaces the attributes of a registered stock.
func (r *Registry) Update(ctx context.Context, stock domain.Stock) (domain.Stock, error) {
	updated, err := r.api.UpdateStock(ctx, stock.Symbol, stock.Normalize().Serialize())
	if err != nil {
		return domain.Stock{}, opError("update stock", err)
	}

	r.store(updated)
	return updated, nil
}

// Refresh re-fetches a single stock so its price and derived metrics are current.
func (r *Registry) Refresh(ctx context.Context, symbol string) (domain.Stock, error) {
	path := domain.Stock{Symbol: symbol}.ResourcePath()
	if existing, ok := r.FindBySymbol(symbol); ok {
		path = existing.ResourcePath()
	}

	stock, err := r.api.GetStock(ctx, path)
	if err != nil {
		return domain.Stock{}, opError("refresh stock "+symbol, err)
	}

	r.store(stock)
	return stock, nil
}

func (r *Registry) store(stock domain.Stock) {
	if r.add(stock, true) {
		r.emit(&events.StockAddedData{Stock: stock})
	} else {
		r.emit(&events.StockChangedData{Stock: stock})
	}
	r.saveSnapshot()
}
