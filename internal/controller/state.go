package controller

import (
	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/collections"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
)

// ModalState is the lifecycle state of a form modal
type ModalState int

const (
	Closed ModalState = iota
	OpenClean
	OpenDirty
	Submitting
)

func (s ModalState) String() string {
	switch s {
	case OpenClean:
		return "OPEN_CLEAN"
	case OpenDirty:
		return "OPEN_DIRTY"
	case Submitting:
		return "SUBMITTING"
	default:
		return "CLOSED"
	}
}

// Open reports whether the modal is visible
func (s ModalState) Open() bool {
	return s != Closed
}

// Editable reports whether fields may change
func (s ModalState) Editable() bool {
	return s == OpenClean || s == OpenDirty
}

// Modal identifies a form dialog
type Modal string

const (
	StockModal Modal = "stock"
	TradeModal Modal = "trade"
	DealsModal Modal = "deals"
)

// StockForm is the view model of the add-stock modal.
type StockForm struct {
	State                ModalState
	Input                forms.StockInput
	CanSubmit            bool
	FixedDividendEnabled bool
	Errors               exchange.FieldErrors
}

// TradeForm is the view model of the trade modal.
type TradeForm struct {
	State     ModalState
	Input     forms.TradeInput
	Indicator domain.Indicator
	Symbols   []string // registered stocks to pick from
	CanSubmit bool
	Errors    exchange.FieldErrors
}

// Deals is the view model of the trade log.
type Deals struct {
	Trades  []domain.TradeView
	Summary collections.Summary
	Stale   bool
}

// Renderer presents controller state. Implementations must not call back into the
// controller synchronously.
type Renderer interface {
	RenderStockForm(form StockForm)
	RenderTradeForm(form TradeForm)
	RenderDeals(deals Deals)
	RenderIndex(index string)
	CloseModal(modal Modal)
}

// NopRenderer discards all rendering
type NopRenderer struct{}

func (NopRenderer) RenderStockForm(StockForm) {}
func (NopRenderer) RenderTradeForm(TradeForm) {}
func (NopRenderer) RenderDeals(Deals)         {}
func (NopRenderer) RenderIndex(string)        {}
func (NopRenderer) CloseModal(Modal)          {}
