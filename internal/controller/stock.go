package controller

import (
	"context"
	"errors"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
)

// OpenStock shows an empty add-stock form
func (c *Controller) OpenStock() {
	c.mu.Lock()
	c.stock = stockModal{
		state: OpenClean,
		input: forms.StockInput{Type: "0"},
	}
	view := c.stockFormLocked()
	c.mu.Unlock()

	c.renderer.RenderStockForm(view)
}

// ChangeStock sets a field of the add-stock form and re-derives validity.
func (c *Controller) ChangeStock(field, value string) error {
	c.mu.Lock()
	if !c.stock.state.Editable() {
		state := c.stock.state
		c.mu.Unlock()
		if state == Submitting {
			return ErrSubmitInFlight
		}
		return ErrModalClosed
	}
	c.stock.input.Set(field, value)
	c.stock.errors = fieldChanged(c.stock.errors, field)
	c.stock.state = OpenDirty
	view := c.stockFormLocked()
	c.mu.Unlock()

	c.renderer.RenderStockForm(view)
	return nil
}

// StockForm returns the current add-stock view model
func (c *Controller) StockForm() StockForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stockFormLocked()
}

func (c *Controller) stockFormLocked() StockForm {
	values := c.stock.input.Values()
	return StockForm{
		State:                c.stock.state,
		Input:                c.stock.input,
		CanSubmit:            c.stock.state.Editable() && c.validator.StockValid(values),
		FixedDividendEnabled: values.Type == domain.StockTypePreferred,
		Errors:               c.stock.errors,
	}
}

// SubmitStock creates the stock from the form. The registry only grows once the exchange accepted it.
func (c *Controller) SubmitStock(ctx context.Context) (domain.Stock, error) {
	c.mu.Lock()
	switch c.stock.state {
	case Closed:
		c.mu.Unlock()
		return domain.Stock{}, submitError(StockModal, ErrModalClosed)
	case Submitting:
		c.mu.Unlock()
		return domain.Stock{}, submitError(StockModal, ErrSubmitInFlight)
	}
	values := c.stock.input.Values()
	if err := c.validator.CheckStock(values); err != nil {
		c.mu.Unlock()
		return domain.Stock{}, submitError(StockModal, errors.Join(ErrSubmitDisabled, err))
	}
	c.stock.state = Submitting
	c.stock.errors = nil
	submitting := c.stockFormLocked()
	c.mu.Unlock()

	c.renderer.RenderStockForm(submitting)

	created, err := c.stocks.Create(ctx, values.Stock())

	c.mu.Lock()
	if c.stock.state != Submitting {
		// closed while in flight
		c.mu.Unlock()
		if err != nil {
			c.log.Warn().Err(err).Msg("Stock submission failed after the form was closed")
			c.emitError(StockModal, err, values.Symbol)
			return domain.Stock{}, submitError(StockModal, err)
		}
		return created, nil
	}
	if err != nil {
		c.stock.state = OpenDirty
		c.stock.errors = exchange.ErrorFields(err)
		view := c.stockFormLocked()
		c.mu.Unlock()

		c.log.Info().Err(err).Str("symbol", values.Symbol).Msg("Stock rejected")
		c.emitError(StockModal, err, values.Symbol)
		c.renderer.RenderStockForm(view)
		return domain.Stock{}, submitError(StockModal, err)
	}
	c.stock = stockModal{}
	c.mu.Unlock()

	c.log.Info().Str("symbol", created.Symbol).Msg("Stock added")
	c.renderer.CloseModal(StockModal)
	return created, nil
}
