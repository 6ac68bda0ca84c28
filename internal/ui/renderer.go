package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/events"
)

// Messages produced by the renderer

type stockFormMsg controller.StockForm

type tradeFormMsg controller.TradeForm

type dealsMsg controller.Deals

type indexMsg string

type closeModalMsg controller.Modal

type collectionChangedMsg struct {
	collection string
}

// renderedMsg carries every message queued since the last delivery, in order
type renderedMsg []tea.Msg

// Renderer implements controller.Renderer by queueing view models for the bubbletea loop.
// Pushing never blocks, so the controller may render from inside Update.
type Renderer struct {
	mu     sync.Mutex
	queue  []tea.Msg
	notify chan struct{}
}

// NewRenderer creates an empty renderer
func NewRenderer() *Renderer {
	return &Renderer{notify: make(chan struct{}, 1)}
}

func (r *Renderer) push(msg tea.Msg) {
	r.mu.Lock()
	r.queue = append(r.queue, msg)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Wait returns a command delivering the queued messages once any are available.
func (r *Renderer) Wait() tea.Cmd {
	return func() tea.Msg {
		<-r.notify
		r.mu.Lock()
		msgs := r.queue
		r.queue = nil
		r.mu.Unlock()
		return renderedMsg(msgs)
	}
}

// Subscribe forwards collection changes from the event bus to the view.
// Returns a function removing the subscriptions.
func (r *Renderer) Subscribe(bus *events.Bus) func() {
	changed := func(collection string) events.Handler {
		return func(events.Event) { r.push(collectionChangedMsg{collection: collection}) }
	}

	unsubscribers := []func(){
		bus.Subscribe(events.StocksReset, changed("stocks")),
		bus.Subscribe(events.StockAdded, changed("stocks")),
		bus.Subscribe(events.StockChanged, changed("stocks")),
		bus.Subscribe(events.TradesReset, changed("trades")),
		bus.Subscribe(events.TradeAdded, changed("trades")),
	}
	return func() {
		for _, unsubscribe := range unsubscribers {
			unsubscribe()
		}
	}
}

func (r *Renderer) RenderStockForm(form controller.StockForm) { r.push(stockFormMsg(form)) }
func (r *Renderer) RenderTradeForm(form controller.TradeForm) { r.push(tradeFormMsg(form)) }
func (r *Renderer) RenderDeals(deals controller.Deals)        { r.push(dealsMsg(deals)) }
func (r *Renderer) RenderIndex(index string)                  { r.push(indexMsg(index)) }
func (r *Renderer) CloseModal(modal controller.Modal)         { r.push(closeModalMsg(modal)) }
