package controller

import (
	"context"
	"errors"
	"strconv"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/events"
	"github.com/aristath/stockdesk/internal/forms"
)

// OpenTrade shows the trade form for a buy or a sell.
// The first registered stock is preselected and its price prefilled.
func (c *Controller) OpenTrade(indicator domain.Indicator) {
	stocks := c.stocks.Items()

	c.mu.Lock()
	c.trade = tradeModal{
		state: OpenClean,
		input: forms.TradeInput{Indicator: strconv.Itoa(int(indicator))},
	}
	if len(stocks) > 0 {
		c.trade.input.Symbol = stocks[0].Symbol
		c.trade.input.Price = stocks[0].Price.String()
	}
	view := c.tradeFormLocked(stocks)
	c.mu.Unlock()

	c.renderer.RenderTradeForm(view)
}

// ChangeTrade sets a field of the trade form. Picking a symbol prefills the price
// with the registered price of that stock.
func (c *Controller) ChangeTrade(field, value string) error {
	stocks := c.stocks.Items()

	c.mu.Lock()
	if !c.trade.state.Editable() {
		state := c.trade.state
		c.mu.Unlock()
		if state == Submitting {
			return ErrSubmitInFlight
		}
		return ErrModalClosed
	}
	c.trade.input.Set(field, value)
	c.trade.errors = fieldChanged(c.trade.errors, field)
	if field == forms.FieldSymbol {
		if stock, ok := c.stocks.FindBySymbol(value); ok {
			c.trade.input.Price = stock.Price.String()
		}
	}
	c.trade.state = OpenDirty
	view := c.tradeFormLocked(stocks)
	c.mu.Unlock()

	c.renderer.RenderTradeForm(view)
	return nil
}

// TradeForm returns the current trade view model
func (c *Controller) TradeForm() TradeForm {
	stocks := c.stocks.Items()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tradeFormLocked(stocks)
}

func (c *Controller) tradeFormLocked(stocks []domain.Stock) TradeForm {
	values := c.trade.input.Values()
	symbols := make([]string, len(stocks))
	for i, s := range stocks {
		symbols[i] = s.Symbol
	}
	return TradeForm{
		State:     c.trade.state,
		Input:     c.trade.input,
		Indicator: values.Indicator,
		Symbols:   symbols,
		CanSubmit: c.trade.state.Editable() && c.validator.TradeValid(values),
		Errors:    c.trade.errors,
	}
}

// SubmitTrade records the trade from the form. Once the exchange accepted it, the modal closes,
// the traded stock is re-fetched and the GBCE index is updated; none of these is skipped when
// another fails.
func (c *Controller) SubmitTrade(ctx context.Context) (TradeResult, error) {
	c.mu.Lock()
	switch c.trade.state {
	case Closed:
		c.mu.Unlock()
		return TradeResult{}, submitError(TradeModal, ErrModalClosed)
	case Submitting:
		c.mu.Unlock()
		return TradeResult{}, submitError(TradeModal, ErrSubmitInFlight)
	}
	values := c.trade.input.Values()
	if err := c.validator.CheckTrade(values); err != nil {
		c.mu.Unlock()
		return TradeResult{}, submitError(TradeModal, errors.Join(ErrSubmitDisabled, err))
	}
	c.trade.state = Submitting
	c.trade.errors = nil
	submitting := c.tradeFormLocked(c.stocks.Items())
	c.mu.Unlock()

	c.renderer.RenderTradeForm(submitting)

	receipt, err := c.trades.Create(ctx, values.Trade())
	if err != nil {
		c.mu.Lock()
		if c.trade.state != Submitting {
			c.mu.Unlock()
			c.log.Warn().Err(err).Msg("Trade submission failed after the form was closed")
			c.emitError(TradeModal, err, values.Symbol)
			return TradeResult{}, submitError(TradeModal, err)
		}
		c.trade.state = OpenDirty
		c.trade.errors = exchange.ErrorFields(err)
		view := c.tradeFormLocked(c.stocks.Items())
		c.mu.Unlock()

		c.log.Info().Err(err).Str("symbol", values.Symbol).Msg("Trade rejected")
		c.emitError(TradeModal, err, values.Symbol)
		c.renderer.RenderTradeForm(view)
		return TradeResult{}, submitError(TradeModal, err)
	}

	result := TradeResult{Trade: receipt.Trade, Index: receipt.Index}

	// (a) close the modal
	c.mu.Lock()
	if c.trade.state == Submitting {
		c.trade = tradeModal{}
	}
	c.mu.Unlock()
	c.renderer.CloseModal(TradeModal)

	// (b) re-fetch the traded stock
	symbol := receipt.Trade.Symbol
	if symbol == "" {
		symbol = values.Symbol
	}
	stock, err := c.stocks.Refresh(ctx, symbol)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to refresh traded stock")
		c.emitError(TradeModal, err, symbol)
		result.RefreshErr = err
	} else {
		result.Stock = stock
	}

	// (c) update the index
	c.mu.Lock()
	if receipt.Index.Valid {
		c.index = receipt.Index
	}
	index := c.index
	c.mu.Unlock()

	if receipt.Index.Valid {
		if c.events != nil {
			c.events.Emit("controller", &events.IndexUpdatedData{Index: receipt.Index.Decimal})
		}
		c.renderer.RenderIndex(formatIndex(index))
	} else {
		c.log.Warn().Str("symbol", symbol).Msg("Exchange did not report a GBCE index, keeping the previous value")
	}

	c.log.Info().
		Str("symbol", symbol).
		Str("indicator", receipt.Trade.Indicator.String()).
		Int64("quantity", receipt.Trade.Quantity).
		Str("gbce_index", formatIndex(index)).
		Msg("Trade recorded")

	return result, nil
}

// OpenDeals re-fetches the trade log and renders it. When the exchange cannot be reached
// the last known trades are rendered as stale and the error is returned.
func (c *Controller) OpenDeals(ctx context.Context) (Deals, error) {
	err := c.trades.FetchAll(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("Failed to fetch trades")
	}

	deals := c.deals(err != nil || c.trades.Stale())
	c.renderer.RenderDeals(deals)
	return deals, err
}

// CachedDeals renders the trade log from an unexpired snapshot without contacting the exchange.
// Returns false when there is no fresh snapshot.
func (c *Controller) CachedDeals() (Deals, bool) {
	if !c.trades.LoadFresh() {
		return Deals{}, false
	}
	deals := c.deals(true)
	c.renderer.RenderDeals(deals)
	return deals, true
}

func (c *Controller) deals(stale bool) Deals {
	items := c.trades.Items()
	views := make([]domain.TradeView, len(items))
	for i, t := range items {
		views[i] = t.SerializeIn(c.loc)
	}
	return Deals{
		Trades:  views,
		Summary: c.trades.Summary(),
		Stale:   stale,
	}
}
