package ui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch m.screen {
		case screenStocks:
			var quit bool
			cmd, quit = m.updateStocks(msg)
			if quit {
				return m, tea.Quit
			}
		case screenStockForm:
			cmd = m.updateStockForm(msg)
		case screenTradeForm:
			cmd = m.updateTradeForm(msg)
		case screenDeals:
			cmd = m.updateDeals(msg)
		}
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case renderedMsg:
		for _, rendered := range msg {
			m.apply(rendered)
		}
		cmds = append(cmds, m.renderer.Wait())

	case startedMsg:
		m.loading = false
		m.refreshStocks()
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Failed to load: %v", msg.err), true)
		} else if m.stale {
			m.setStatus("Exchange unreachable, showing cached data", true)
		} else {
			m.setStatus(fmt.Sprintf("Loaded %d stocks", m.ctrl.Stocks().Len()), false)
		}

	case stockSubmittedMsg:
		switch {
		case msg.err == nil:
			m.setStatus(fmt.Sprintf("Added %s", msg.stock.Symbol), false)
		case errors.Is(msg.err, controller.ErrSubmitDisabled),
			errors.Is(msg.err, controller.ErrSubmitInFlight),
			errors.Is(msg.err, controller.ErrModalClosed):
			// nothing was sent
		default:
			// field errors are rendered in the form
			m.setStatus("Stock was not added", true)
		}

	case tradeSubmittedMsg:
		if msg.err == nil {
			trade := msg.result.Trade
			m.setStatus(fmt.Sprintf("%s %d %s @ %s", tradeVerb(trade.Indicator), trade.Quantity, trade.Symbol, trade.Price), false)
			if msg.result.RefreshErr != nil {
				m.setStatus(fmt.Sprintf("Trade recorded, but %s could not be refreshed", trade.Symbol), true)
			}
		} else if !errors.Is(msg.err, controller.ErrSubmitDisabled) &&
			!errors.Is(msg.err, controller.ErrSubmitInFlight) &&
			!errors.Is(msg.err, controller.ErrModalClosed) {
			m.setStatus("Trade was not recorded", true)
		}

	case dealsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.setStatus("Exchange unreachable, showing the last known trades", true)
		}
	}

	return m, tea.Batch(cmds...)
}

// apply folds a controller rendering into the model
func (m *Model) apply(msg tea.Msg) {
	switch msg := msg.(type) {
	case stockFormMsg:
		m.stockForm = controller.StockForm(msg)
		if !m.stockForm.FixedDividendEnabled && stockFields[m.stockFocus] == forms.FieldFixedDividend {
			m.focusStock(m.stockFocus + 1)
		}
	case tradeFormMsg:
		m.tradeForm = controller.TradeForm(msg)
	case dealsMsg:
		m.dealsView = controller.Deals(msg)
		m.deals.SetRows(dealRows(m.dealsView.Trades))
	case indexMsg:
		m.index = string(msg)
	case closeModalMsg:
		switch controller.Modal(msg) {
		case controller.StockModal:
			if m.screen == screenStockForm {
				m.screen = screenStocks
			}
		case controller.TradeModal:
			if m.screen == screenTradeForm {
				m.screen = screenStocks
			}
		}
	case collectionChangedMsg:
		if msg.collection == "stocks" {
			m.refreshStocks()
		}
	}
}

func (m *Model) updateStocks(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		return nil, true
	case key.Matches(msg, keys.AddStock):
		return m.openStockForm(), false
	case key.Matches(msg, keys.Buy):
		return m.openTradeForm(domain.IndicatorBuy), false
	case key.Matches(msg, keys.Sell):
		return m.openTradeForm(domain.IndicatorSell), false
	case key.Matches(msg, keys.Deals):
		m.screen = screenDeals
		m.loading = true
		return tea.Batch(openDealsCmd(m.ctx, m.ctrl), m.spinner.Tick), false
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return tea.Batch(startCmd(m.ctx, m.ctrl), m.spinner.Tick), false
	}

	var cmd tea.Cmd
	m.stocks, cmd = m.stocks.Update(msg)
	return cmd, false
}

func (m *Model) updateDeals(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Back):
		m.screen = screenStocks
		return nil
	case key.Matches(msg, keys.Reload):
		m.loading = true
		return tea.Batch(openDealsCmd(m.ctx, m.ctrl), m.spinner.Tick)
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	}

	var cmd tea.Cmd
	m.deals, cmd = m.deals.Update(msg)
	return cmd
}

// Add-stock form

func (m *Model) openStockForm() tea.Cmd {
	m.ctrl.OpenStock()
	m.stockForm = m.ctrl.StockForm()
	m.stockInputs = newInputs(stockFields)
	m.screen = screenStockForm
	return m.focusStock(0)
}

// focusStock moves the focus to field i, skipping the fixed dividend while it is disabled.
func (m *Model) focusStock(i int) tea.Cmd {
	n := len(stockFields)
	i = ((i % n) + n) % n
	if stockFields[i] == forms.FieldFixedDividend && !m.stockForm.FixedDividendEnabled {
		if i < m.stockFocus {
			i--
		} else {
			i++
		}
		i = ((i % n) + n) % n
	}
	m.stockFocus = i
	return focusInputs(m.stockInputs, stockFields, i)
}

func (m *Model) updateStockForm(msg tea.KeyMsg) tea.Cmd {
	field := stockFields[m.stockFocus]

	switch {
	case key.Matches(msg, keys.Back):
		m.ctrl.CloseModal(controller.StockModal)
		m.screen = screenStocks
		return nil
	case key.Matches(msg, keys.Submit):
		if !m.stockForm.CanSubmit {
			return nil
		}
		return submitStockCmd(m.ctx, m.ctrl)
	case key.Matches(msg, keys.Next):
		return m.focusStock(m.stockFocus + 1)
	case key.Matches(msg, keys.Prev):
		return m.focusStock(m.stockFocus - 1)
	}

	if !m.stockForm.State.Editable() {
		return nil
	}

	if field == forms.FieldType {
		if key.Matches(msg, keys.Toggle) {
			next := "1"
			if m.stockForm.FixedDividendEnabled {
				next = "0"
			}
			m.changeStock(forms.FieldType, next)
		}
		return nil
	}

	if stockDecimalFields[field] && !acceptKey(m.stockInputs[field].Value(), msg) {
		return nil
	}

	ti := m.stockInputs[field]
	before := ti.Value()
	var cmd tea.Cmd
	ti, cmd = ti.Update(msg)
	m.stockInputs[field] = ti
	if ti.Value() != before {
		m.changeStock(field, ti.Value())
	}
	return cmd
}

func (m *Model) changeStock(field, value string) {
	if err := m.ctrl.ChangeStock(field, value); err != nil {
		return
	}
	m.stockForm = m.ctrl.StockForm()
}

// Trade form

func (m *Model) openTradeForm(indicator domain.Indicator) tea.Cmd {
	m.ctrl.OpenTrade(indicator)
	m.tradeForm = m.ctrl.TradeForm()
	m.tradeInputs = newInputs(tradeFields)
	m.syncTradeInputs()
	m.screen = screenTradeForm
	m.tradeFocus = 0
	return focusInputs(m.tradeInputs, tradeFields, 0)
}

// syncTradeInputs copies the controller-filled symbol and price into the inputs
func (m *Model) syncTradeInputs() {
	for _, field := range []string{forms.FieldSymbol, forms.FieldPrice} {
		ti := m.tradeInputs[field]
		ti.SetValue(m.tradeForm.Input.Get(field))
		m.tradeInputs[field] = ti
	}
}

func (m *Model) updateTradeForm(msg tea.KeyMsg) tea.Cmd {
	field := tradeFields[m.tradeFocus]

	switch {
	case key.Matches(msg, keys.Back):
		m.ctrl.CloseModal(controller.TradeModal)
		m.screen = screenStocks
		return nil
	case key.Matches(msg, keys.Submit):
		if !m.tradeForm.CanSubmit {
			return nil
		}
		return submitTradeCmd(m.ctx, m.ctrl)
	case key.Matches(msg, keys.Next):
		m.tradeFocus = (m.tradeFocus + 1) % len(tradeFields)
		return focusInputs(m.tradeInputs, tradeFields, m.tradeFocus)
	case key.Matches(msg, keys.Prev):
		m.tradeFocus = (m.tradeFocus + len(tradeFields) - 1) % len(tradeFields)
		return focusInputs(m.tradeInputs, tradeFields, m.tradeFocus)
	}

	if !m.tradeForm.State.Editable() {
		return nil
	}

	if field == forms.FieldSymbol {
		if key.Matches(msg, keys.Toggle) {
			step := 1
			if msg.Type == tea.KeyLeft {
				step = -1
			}
			if symbol, ok := cycle(m.tradeForm.Symbols, m.tradeForm.Input.Symbol, step); ok {
				if err := m.ctrl.ChangeTrade(forms.FieldSymbol, symbol); err == nil {
					m.tradeForm = m.ctrl.TradeForm()
					m.syncTradeInputs()
				}
			}
		}
		return nil
	}

	ti := m.tradeInputs[field]
	before := ti.Value()
	var cmd tea.Cmd
	ti, cmd = ti.Update(msg)
	m.tradeInputs[field] = ti
	if ti.Value() != before {
		if err := m.ctrl.ChangeTrade(field, ti.Value()); err == nil {
			m.tradeForm = m.ctrl.TradeForm()
		}
	}
	return cmd
}

// Helpers

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

func (m *Model) resize() {
	h := m.height - 12
	if h < 3 {
		h = 3
	}
	m.stocks.SetHeight(h)
	m.deals.SetHeight(h - 4)
	m.help.Width = m.width
}

func (m *Model) refreshStocks() {
	registry := m.ctrl.Stocks()
	m.stale = registry.Stale()
	m.stocks.SetRows(stockRows(registry.Items()))
}

func focusInputs(inputs map[string]textinput.Model, fields []string, focus int) tea.Cmd {
	var cmd tea.Cmd
	for i, field := range fields {
		ti := inputs[field]
		if i == focus {
			cmd = ti.Focus()
		} else {
			ti.Blur()
		}
		inputs[field] = ti
	}
	return cmd
}

// acceptKey applies the decimal keystroke filter to printable input only
func acceptKey(current string, msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeySpace:
		return forms.AcceptKey(current, ' ')
	case tea.KeyRunes:
	default:
		return true
	}
	for _, r := range msg.Runes {
		if !forms.AcceptKey(current, r) {
			return false
		}
		current += string(r)
	}
	return true
}

// cycle returns the neighbour of current in values, wrapping around
func cycle(values []string, current string, step int) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	idx := -1
	for i, v := range values {
		if v == current {
			idx = i
			break
		}
	}
	if idx < 0 {
		return values[0], true
	}
	n := len(values)
	return values[((idx+step)%n+n)%n], true
}

func tradeVerb(indicator domain.Indicator) string {
	if indicator == domain.IndicatorSell {
		return "Sold"
	}
	return "Bought"
}

func stockRows(stocks []domain.Stock) []table.Row {
	rows := make([]table.Row, len(stocks))
	for i, s := range stocks {
		fixed := "-"
		if s.FixedDividend.Valid {
			fixed = s.FixedDividend.Decimal.String()
		}
		rows[i] = table.Row{
			s.Symbol,
			s.Type.String(),
			s.Price.StringFixed(2),
			fmt.Sprintf("%d", s.LastDividend),
			fixed,
			s.ParValue.String(),
			s.DividendYield.StringFixed(4),
			s.PERatio.StringFixed(2),
			s.VWSP.StringFixed(2),
		}
	}
	return rows
}

func dealRows(trades []domain.TradeView) []table.Row {
	rows := make([]table.Row, len(trades))
	for i, t := range trades {
		rows[i] = table.Row{
			t.Timestamp,
			t.Symbol,
			t.Indicator.String(),
			fmt.Sprintf("%d", t.Quantity),
			t.Price.String(),
		}
	}
	return rows
}
