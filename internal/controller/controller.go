// Package controller orchestrates the stock and trade forms against the collections.
//
// Each form modal runs its own state machine:
//
//	CLOSED -> OPEN_CLEAN        open
//	OPEN_*  -> OPEN_DIRTY       any field change
//	OPEN_*  -> SUBMITTING       submit, only while the form is valid
//	SUBMITTING -> CLOSED        exchange accepted the write
//	SUBMITTING -> OPEN_DIRTY    exchange rejected it (errors rendered inline)
//
// A successful trade also re-fetches the traded stock and updates the GBCE index.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/collections"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/events"
	"github.com/aristath/stockdesk/internal/forms"
)

var (
	// ErrSubmitDisabled is returned when submit is pressed while the form is invalid.
	ErrSubmitDisabled = errors.New("submit is disabled")
	// ErrSubmitInFlight is returned when a submission for the modal is already outstanding.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrModalClosed is returned for form actions on a closed modal.
	ErrModalClosed = errors.New("modal is not open")
)

// Deps holds the controller collaborators
type Deps struct {
	Stocks    *collections.Registry
	Trades    *collections.TradeLog
	Renderer  Renderer
	Validator forms.Validator
	Events    *events.Manager // optional
	Location  *time.Location  // trade timestamp display, defaults to local time
	Log       zerolog.Logger
}

type stockModal struct {
	state  ModalState
	input  forms.StockInput
	errors exchange.FieldErrors
}

type tradeModal struct {
	state  ModalState
	input  forms.TradeInput
	errors exchange.FieldErrors
}

// TradeResult is the outcome of an accepted trade.
type TradeResult struct {
	Trade domain.Trade
	Stock domain.Stock        // the traded stock after refresh, zero if the refresh failed
	Index decimal.NullDecimal // invalid when the exchange did not report one
	// RefreshErr is set when the traded stock could not be re-fetched. The trade itself succeeded.
	RefreshErr error
}

// Controller owns the modal state and mediates every write to the collections.
type Controller struct {
	mu sync.Mutex

	stocks    *collections.Registry
	trades    *collections.TradeLog
	renderer  Renderer
	validator forms.Validator
	events    *events.Manager
	loc       *time.Location
	log       zerolog.Logger

	stock stockModal
	trade tradeModal
	index decimal.NullDecimal
}

// New creates a controller with both modals closed
func New(deps Deps) *Controller {
	renderer := deps.Renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	validator := deps.Validator
	if validator.Mode == "" {
		validator = forms.NewValidator("")
	}

	return &Controller{
		stocks:    deps.Stocks,
		trades:    deps.Trades,
		renderer:  renderer,
		validator: validator,
		events:    deps.Events,
		loc:       loc,
		log:       deps.Log.With().Str("component", "controller").Logger(),
	}
}

// Stocks returns the stock registry
func (c *Controller) Stocks() *collections.Registry {
	return c.stocks
}

// Trades returns the trade log
func (c *Controller) Trades() *collections.TradeLog {
	return c.trades
}

// Start loads both collections. A trade log failure does not prevent the stock table from loading.
func (c *Controller) Start(ctx context.Context) error {
	var errs []error
	if err := c.stocks.FetchAll(ctx); err != nil {
		c.log.Error().Err(err).Msg("Failed to load stocks")
		errs = append(errs, err)
	}
	if err := c.trades.FetchAll(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to load trades")
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Index returns the last reported GBCE index with two decimals, or "" when none is known
func (c *Controller) Index() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return formatIndex(c.index)
}

func formatIndex(index decimal.NullDecimal) string {
	if !index.Valid {
		return ""
	}
	return index.Decimal.StringFixed(2)
}

// CloseModal hides a modal. An outstanding submission still completes, but its errors are not shown.
func (c *Controller) CloseModal(modal Modal) {
	c.mu.Lock()
	switch modal {
	case StockModal:
		c.stock = stockModal{}
	case TradeModal:
		c.trade = tradeModal{}
	}
	c.mu.Unlock()

	c.renderer.CloseModal(modal)
}

// fieldChanged drops the errors shown for a field once the user edits it.
func fieldChanged(errs exchange.FieldErrors, field string) exchange.FieldErrors {
	if len(errs) == 0 {
		return errs
	}
	out := make(exchange.FieldErrors, len(errs))
	for k, v := range errs {
		if k != field {
			out[k] = v
		}
	}
	return out
}

// emitError publishes a failed write so subscribers other than the open form see it
func (c *Controller) emitError(modal Modal, err error, symbol string) {
	if c.events == nil {
		return
	}
	c.events.EmitError("controller", err, map[string]interface{}{
		"modal":  string(modal),
		"symbol": symbol,
	})
}

func submitError(modal Modal, err error) error {
	return fmt.Errorf("submit %s: %w", modal, err)
}
