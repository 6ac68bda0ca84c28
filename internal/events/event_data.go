package events

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockdesk/internal/domain"
)

// EventData is the interface that all event data types must implement
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// StockAddedData is emitted once the exchange confirmed a new stock
type StockAddedData struct {
	Stock domain.Stock `json:"stock"`
}

// EventType returns the event type for StockAddedData
func (d *StockAddedData) EventType() EventType {
	return StockAdded
}

// StockChangedData is emitted when a stock was re-fetched or updated in place
type StockChangedData struct {
	Stock domain.Stock `json:"stock"`
}

// EventType returns the event type for StockChangedData
func (d *StockChangedData) EventType() EventType {
	return StockChanged
}

// StocksResetData is emitted after a full fetch replaced the registry
type StocksResetData struct {
	Count int  `json:"count"`
	Stale bool `json:"stale"`
}

// EventType returns the event type for StocksResetData
func (d *StocksResetData) EventType() EventType {
	return StocksReset
}

// TradeAddedData is emitted once the exchange confirmed a trade
type TradeAddedData struct {
	Trade domain.Trade `json:"trade"`
}

// EventType returns the event type for TradeAddedData
func (d *TradeAddedData) EventType() EventType {
	return TradeAdded
}

// TradesResetData is emitted after a full fetch replaced the trade log
type TradesResetData struct {
	Count int  `json:"count"`
	Stale bool `json:"stale"`
}

// EventType returns the event type for TradesResetData
func (d *TradesResetData) EventType() EventType {
	return TradesReset
}

// IndexUpdatedData carries the GBCE all share index returned by a trade
type IndexUpdatedData struct {
	Index decimal.Decimal `json:"index"`
}

// EventType returns the event type for IndexUpdatedData
func (d *IndexUpdatedData) EventType() EventType {
	return IndexUpdated
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
