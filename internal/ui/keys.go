package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Back     key.Binding
	AddStock key.Binding
	Buy      key.Binding
	Sell     key.Binding
	Deals    key.Binding
	Reload   key.Binding
	Next     key.Binding
	Prev     key.Binding
	Toggle   key.Binding
	Submit   key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	AddStock: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add stock")),
	Buy:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
	Sell:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell")),
	Deals:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "deals")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),
	Toggle:   key.NewBinding(key.WithKeys("left", "right", " "), key.WithHelp("←/→", "change")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
}

// tableKeys is the help shown on the stock table
type tableKeys struct{}

func (tableKeys) ShortHelp() []key.Binding {
	return []key.Binding{keys.AddStock, keys.Buy, keys.Sell, keys.Deals, keys.Reload, keys.Quit}
}

func (k tableKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// formKeys is the help shown while a form is open
type formKeys struct{}

func (formKeys) ShortHelp() []key.Binding {
	return []key.Binding{keys.Next, keys.Toggle, keys.Submit, keys.Back}
}

func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// dealsKeys is the help shown on the deals screen
type dealsKeys struct{}

func (dealsKeys) ShortHelp() []key.Binding {
	return []key.Binding{keys.Back, keys.Reload, keys.Quit}
}

func (k dealsKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
