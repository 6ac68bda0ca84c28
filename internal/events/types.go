// Package events provides event management functionality.
package events

// EventType represents different event types
type EventType string

const (
	// Collection events
	StockAdded   EventType = "STOCK_ADDED"
	StockChanged EventType = "STOCK_CHANGED"
	StocksReset  EventType = "STOCKS_RESET"
	TradeAdded   EventType = "TRADE_ADDED"
	TradesReset  EventType = "TRADES_RESET"

	// Market events
	IndexUpdated EventType = "INDEX_UPDATED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)
