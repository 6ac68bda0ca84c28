package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/collections"
	"github.com/aristath/stockdesk/internal/config"
	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/events"
	"github.com/aristath/stockdesk/internal/forms"
	testingpkg "github.com/aristath/stockdesk/internal/testing"
)

func newTestModel(t *testing.T) (Model, *testingpkg.FakeExchange) {
	t.Helper()

	fake := testingpkg.NewFakeExchange()
	t.Cleanup(fake.Close)
	for _, s := range testingpkg.NewStockFixtures() {
		fake.AddStock(s)
	}

	client := exchange.NewClient(fake.URL(), 2*time.Second, zerolog.Nop())
	em := events.NewManager(events.NewBus(), zerolog.Nop())
	renderer := NewRenderer()
	t.Cleanup(renderer.Subscribe(em.Bus()))

	ctrl := controller.New(controller.Deps{
		Stocks:    collections.NewRegistry(client, em, zerolog.Nop()),
		Trades:    collections.NewTradeLog(client, em, zerolog.Nop()),
		Renderer:  renderer,
		Validator: forms.NewValidator(config.FormModeTruthy),
		Events:    em,
		Location:  time.UTC,
		Log:       zerolog.Nop(),
	})

	m := NewModel(context.Background(), ctrl, renderer, fake.URL())
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m = update(t, m, startCmd(context.Background(), ctrl)())
	m = drain(t, m)
	return m, fake
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, msgs ...tea.KeyMsg) Model {
	t.Helper()
	for _, msg := range msgs {
		m = update(t, m, msg)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = press(t, m, runes(string(r)))
	}
	return m
}

// drain applies whatever the controller rendered since the last call
func drain(t *testing.T, m Model) Model {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- m.renderer.Wait()() }()
	select {
	case msg := <-done:
		return update(t, m, msg)
	case <-time.After(time.Second):
		t.Fatal("nothing was rendered")
		return m
	}
}

// submit presses enter and runs the resulting command
func submit(t *testing.T, m Model) (Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd, "submit should produce a command")
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		require.Len(t, batch, 1)
		msg = batch[0]()
	}
	return next.(Model), msg
}

func TestModel_StartFillsTable(t *testing.T) {
	m, _ := newTestModel(t)

	assert.False(t, m.loading)
	assert.Len(t, m.stocks.Rows(), 5)
	assert.Equal(t, "TEA", m.stocks.Rows()[0][0])
	assert.Contains(t, m.status, "Loaded 5 stocks")
	assert.Contains(t, m.View(), "GBCE All Share Index")
}

func TestModel_AddStock(t *testing.T) {
	m, fake := newTestModel(t)

	m = press(t, m, runes("a"))
	require.Equal(t, screenStockForm, m.screen)
	m = drain(t, m)

	m = typeText(t, m, "XYZ")
	assert.Equal(t, "XYZ", m.ctrl.StockForm().Input.Symbol)

	// type: toggle to preferred enables the fixed dividend
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyRight})
	assert.True(t, m.stockForm.FixedDividendEnabled)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "1x2.5.0")
	assert.Equal(t, "12.50", m.stockInputs[forms.FieldPrice].Value(), "non-decimal keystrokes are dropped")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "8")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "0.02")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.False(t, m.stockForm.CanSubmit)
	m = typeText(t, m, "100")
	require.True(t, m.stockForm.CanSubmit)

	m, msg := submit(t, m)
	m = update(t, m, msg)
	m = drain(t, m)

	assert.Equal(t, screenStocks, m.screen)
	assert.Contains(t, m.status, "Added XYZ")
	assert.Len(t, m.stocks.Rows(), 6)
	assert.Len(t, fake.Stocks(), 6)
}

func TestModel_FixedDividendSkippedWhenCommon(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, runes("a"))
	m = drain(t, m)

	// symbol, type, price, last dividend, then par value
	m = press(t, m,
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyTab},
		tea.KeyMsg{Type: tea.KeyTab},
	)
	assert.Equal(t, forms.FieldParValue, stockFields[m.stockFocus])

	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, forms.FieldLastDividend, stockFields[m.stockFocus])
}

func TestModel_SubmitDisabledDoesNothing(t *testing.T) {
	m, fake := newTestModel(t)

	m = press(t, m, runes("a"))
	m = drain(t, m)
	m = typeText(t, m, "TEA")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, 0, fake.Hits("POST", "/stocks"))
}

func TestModel_EscClosesForm(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, runes("a"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, screenStocks, m.screen)
	assert.Equal(t, controller.Closed, m.ctrl.StockForm().State)
}

func TestModel_TradeFlow(t *testing.T) {
	m, fake := newTestModel(t)
	fake.SetIndex(decimal.RequireFromString("104.5"))

	m = press(t, m, runes("b"))
	require.Equal(t, screenTradeForm, m.screen)
	assert.Equal(t, "TEA", m.tradeInputs[forms.FieldSymbol].Value())
	assert.Equal(t, "100", m.tradeInputs[forms.FieldPrice].Value())

	// pick ALE, its price is prefilled
	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, "ALE", m.tradeForm.Input.Symbol)
	assert.Equal(t, "60", m.tradeInputs[forms.FieldPrice].Value())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "10")
	require.True(t, m.tradeForm.CanSubmit)

	m, msg := submit(t, m)
	m = update(t, m, msg)
	m = drain(t, m)

	assert.Equal(t, screenStocks, m.screen)
	assert.Equal(t, "Bought 10 ALE @ 60", m.status)
	assert.Equal(t, "104.50", m.index)
	assert.Equal(t, 1, fake.Hits("GET", "/stocks/ALE"))
}

func TestModel_TradePriceIsNotFiltered(t *testing.T) {
	m, _ := newTestModel(t)

	m = press(t, m, runes("s"))
	require.Equal(t, screenTradeForm, m.screen)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = typeText(t, m, "x")

	assert.Equal(t, "100x", m.tradeInputs[forms.FieldPrice].Value())
	assert.Equal(t, "100x", m.tradeForm.Input.Price)
}

func TestModel_Deals(t *testing.T) {
	m, fake := newTestModel(t)
	for _, trade := range testingpkg.NewTradeFixtures() {
		fake.AddTrade(trade)
	}

	m = press(t, m, runes("d"))
	require.Equal(t, screenDeals, m.screen)
	assert.True(t, m.loading)

	m = update(t, m, openDealsCmd(context.Background(), m.ctrl)())
	m = drain(t, m)

	assert.False(t, m.loading)
	assert.Len(t, m.deals.Rows(), 3)
	assert.Equal(t, "01/01/2021 01:00:00", m.deals.Rows()[0][0])
	assert.Contains(t, m.View(), "3 trades")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, screenStocks, m.screen)
}

func TestModel_DealsStale(t *testing.T) {
	m, fake := newTestModel(t)
	fake.FailNext("GET", "/trades", 500)

	m = press(t, m, runes("d"))
	m = update(t, m, openDealsCmd(context.Background(), m.ctrl)())
	m = drain(t, m)

	assert.True(t, m.dealsView.Stale)
	assert.True(t, m.statusErr)
	assert.True(t, strings.Contains(m.View(), "(stale)") || strings.Contains(m.View(), "No trades"))
}

func TestRenderer_QueuesInOrder(t *testing.T) {
	r := NewRenderer()
	r.RenderIndex("1.00")
	r.CloseModal(controller.TradeModal)
	r.RenderIndex("2.00")

	msg := r.Wait()()
	rendered, ok := msg.(renderedMsg)
	require.True(t, ok)
	require.Len(t, rendered, 3)
	assert.Equal(t, indexMsg("1.00"), rendered[0])
	assert.Equal(t, closeModalMsg(controller.TradeModal), rendered[1])
	assert.Equal(t, indexMsg("2.00"), rendered[2])
}

func TestRenderer_SubscribeForwardsCollectionEvents(t *testing.T) {
	bus := events.NewBus()
	em := events.NewManager(bus, zerolog.Nop())
	r := NewRenderer()
	unsubscribe := r.Subscribe(bus)

	em.Emit("test", &events.TradeAddedData{})
	rendered := r.Wait()().(renderedMsg)
	require.Len(t, rendered, 1)
	assert.Equal(t, collectionChangedMsg{collection: "trades"}, rendered[0])

	unsubscribe()
	em.Emit("test", &events.StockAddedData{})
	r.RenderIndex("x")
	rendered = r.Wait()().(renderedMsg)
	assert.Equal(t, renderedMsg{indexMsg("x")}, rendered)
}

func TestCycle(t *testing.T) {
	symbols := []string{"TEA", "POP", "ALE"}

	next, ok := cycle(symbols, "ALE", 1)
	assert.True(t, ok)
	assert.Equal(t, "TEA", next)

	prev, _ := cycle(symbols, "TEA", -1)
	assert.Equal(t, "ALE", prev)

	first, _ := cycle(symbols, "XXX", 1)
	assert.Equal(t, "TEA", first)

	_, ok = cycle(nil, "TEA", 1)
	assert.False(t, ok)
}
