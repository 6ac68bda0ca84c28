// Package ui is the bubbletea front end: a stock table with add-stock, trade and deals dialogs.
package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
	"github.com/aristath/stockdesk/internal/ui/theme"
)

type screen int

const (
	screenStocks screen = iota
	screenStockForm
	screenTradeForm
	screenDeals
)

// Field order of the two forms
var (
	stockFields = []string{
		forms.FieldSymbol,
		forms.FieldType,
		forms.FieldPrice,
		forms.FieldLastDividend,
		forms.FieldFixedDividend,
		forms.FieldParValue,
	}
	tradeFields = []string{
		forms.FieldSymbol,
		forms.FieldPrice,
		forms.FieldQuantity,
	}
	fieldLabels = map[string]string{
		forms.FieldSymbol:        "Symbol",
		forms.FieldType:          "Type",
		forms.FieldPrice:         "Price",
		forms.FieldLastDividend:  "Last dividend",
		forms.FieldFixedDividend: "Fixed dividend",
		forms.FieldParValue:      "Par value",
		forms.FieldQuantity:      "Quantity",
	}
	// stockDecimalFields only accept keystrokes keeping a non-negative decimal.
	// The trade form is unfiltered and relies on validation alone.
	stockDecimalFields = map[string]bool{
		forms.FieldPrice:         true,
		forms.FieldFixedDividend: true,
		forms.FieldParValue:      true,
	}
)

// Model is the root bubbletea model
type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	renderer *Renderer
	apiURL   string
	styles   theme.Styles

	// UI state
	width  int
	height int
	ready  bool
	screen screen

	// Data
	index     string
	stale     bool
	status    string
	statusErr bool
	loading   bool

	// Components
	stocks  table.Model
	deals   table.Model
	spinner spinner.Model
	help    help.Model

	dealsView controller.Deals

	stockForm   controller.StockForm
	stockInputs map[string]textinput.Model
	stockFocus  int

	tradeForm   controller.TradeForm
	tradeInputs map[string]textinput.Model
	tradeFocus  int
}

// Messages

type startedMsg struct {
	err error
}

type stockSubmittedMsg struct {
	stock domain.Stock
	err   error
}

type tradeSubmittedMsg struct {
	result controller.TradeResult
	err    error
}

type dealsLoadedMsg struct {
	err error
}

// NewModel creates the root model. renderer must be the one the controller renders to.
func NewModel(ctx context.Context, ctrl *controller.Controller, renderer *Renderer, apiURL string) Model {
	styles := theme.NewStyles(theme.Default)

	stocks := table.New(
		table.WithColumns(stockColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	stocks.SetStyles(styles.Table)

	deals := table.New(
		table.WithColumns(dealColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	deals.SetStyles(styles.Table)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Title

	return Model{
		ctx:         ctx,
		ctrl:        ctrl,
		renderer:    renderer,
		apiURL:      apiURL,
		styles:      styles,
		loading:     true,
		stocks:      stocks,
		deals:       deals,
		spinner:     sp,
		help:        help.New(),
		stockInputs: newInputs(stockFields),
		tradeInputs: newInputs(tradeFields),
	}
}

func newInputs(fields []string) map[string]textinput.Model {
	inputs := make(map[string]textinput.Model, len(fields))
	for _, field := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 16
		ti.Width = 20
		inputs[field] = ti
	}
	return inputs
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.renderer.Wait(),
		startCmd(m.ctx, m.ctrl),
		m.spinner.Tick,
	)
}

// Commands

func startCmd(ctx context.Context, ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		return startedMsg{err: ctrl.Start(ctx)}
	}
}

func submitStockCmd(ctx context.Context, ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		stock, err := ctrl.SubmitStock(ctx)
		return stockSubmittedMsg{stock: stock, err: err}
	}
}

func submitTradeCmd(ctx context.Context, ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		result, err := ctrl.SubmitTrade(ctx)
		return tradeSubmittedMsg{result: result, err: err}
	}
}

func openDealsCmd(ctx context.Context, ctrl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		_, err := ctrl.OpenDeals(ctx)
		return dealsLoadedMsg{err: err}
	}
}

func stockColumns() []table.Column {
	return []table.Column{
		{Title: "Symbol", Width: 8},
		{Title: "Type", Width: 10},
		{Title: "Price", Width: 10},
		{Title: "Last div", Width: 9},
		{Title: "Fixed div", Width: 10},
		{Title: "Par", Width: 8},
		{Title: "Yield", Width: 9},
		{Title: "P/E", Width: 10},
		{Title: "VWSP", Width: 10},
	}
}

func dealColumns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 20},
		{Title: "Symbol", Width: 8},
		{Title: "Side", Width: 6},
		{Title: "Quantity", Width: 10},
		{Title: "Price", Width: 10},
	}
}
