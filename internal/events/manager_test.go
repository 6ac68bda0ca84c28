package events

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockdesk/internal/domain"
)

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(StockAdded, func(Event) { order = append(order, "first") })
	bus.Subscribe(StockAdded, func(Event) { order = append(order, "second") })
	bus.Subscribe(TradeAdded, func(Event) { order = append(order, "trade") })

	bus.Publish(Event{Type: StockAdded})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	unsubscribe := bus.Subscribe(TradesReset, func(Event) { calls++ })
	bus.Publish(Event{Type: TradesReset})
	unsubscribe()
	bus.Publish(Event{Type: TradesReset})

	assert.Equal(t, 1, calls)
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := NewBus()

	var got []EventType
	bus.Subscribe(StockAdded, func(Event) { bus.Publish(Event{Type: StockChanged}) })
	bus.Subscribe(StockChanged, func(e Event) { got = append(got, e.Type) })

	bus.Publish(Event{Type: StockAdded})
	assert.Equal(t, []EventType{StockChanged}, got)
}

func TestManager_Emit(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var received Event
	bus.Subscribe(StockAdded, func(e Event) { received = e })

	manager.Emit("registry", &StockAddedData{Stock: domain.Stock{Symbol: "TEA"}})

	assert.Equal(t, StockAdded, received.Type)
	assert.Equal(t, "registry", received.Module)
	assert.False(t, received.Timestamp.IsZero())
	data, ok := received.Data.(*StockAddedData)
	require.True(t, ok)
	assert.Equal(t, "TEA", data.Stock.Symbol)
}

func TestManager_EmitError(t *testing.T) {
	bus := NewBus()
	manager := NewManager(bus, zerolog.Nop())

	var received *ErrorEventData
	bus.Subscribe(ErrorOccurred, func(e Event) { received = e.Data.(*ErrorEventData) })

	manager.EmitError("controller", errors.New("exchange unreachable"), map[string]interface{}{"symbol": "GIN"})

	require.NotNil(t, received)
	assert.Equal(t, "exchange unreachable", received.Error)
	assert.Equal(t, "GIN", received.Context["symbol"])
}
