package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	figure "github.com/common-nighthawk/go-figure"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
	"github.com/aristath/stockdesk/internal/ui/theme"
)

func (m Model) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	var body string
	switch m.screen {
	case screenStockForm:
		body = m.viewStockForm()
	case screenTradeForm:
		body = m.viewTradeForm()
	case screenDeals:
		body = m.viewDeals()
	default:
		body = m.viewStocks()
	}

	return lipgloss.NewStyle().Padding(0, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, m.viewHeader(), "", body, "", m.viewStatus(), m.viewHelp()),
	)
}

// viewHeader shows the title and the GBCE index in large type
func (m Model) viewHeader() string {
	t := theme.Default

	title := m.styles.Title.Render("stockdesk")
	source := m.styles.Muted.Render(m.apiURL)
	if m.stale {
		source = m.styles.Warning.Render(m.apiURL + " (offline)")
	}
	left := lipgloss.JoinVertical(lipgloss.Left, title, source)

	index := m.index
	if index == "" {
		index = "-"
	}
	right := lipgloss.JoinVertical(lipgloss.Right,
		m.styles.Muted.Render("GBCE All Share Index"),
		theme.GradientText(renderFiglet(index), t.Primary, t.Accent),
	)

	gap := m.width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return lipgloss.JoinVertical(lipgloss.Left, left, right)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
}

// renderFiglet renders text using the small figlet font.
func renderFiglet(text string) string {
	fig := figure.NewFigure(text, "small", true)
	return strings.TrimRight(strings.Join(fig.Slicify(), "\n"), "\n ")
}

func (m Model) viewStocks() string {
	if m.loading && m.ctrl.Stocks().Len() == 0 {
		return m.spinner.View() + " Loading stocks..."
	}
	if m.ctrl.Stocks().Len() == 0 {
		return m.styles.Muted.Render("No stocks yet. Press a to add one.")
	}
	return m.stocks.View()
}

func (m Model) viewDeals() string {
	title := m.styles.Title.Render("Deals")
	if m.loading {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", m.spinner.View()+" Loading trades...")
	}
	if m.dealsView.Stale {
		title += " " + m.styles.Warning.Render("(stale)")
	}

	s := m.dealsView.Summary
	summary := m.styles.Muted.Render(fmt.Sprintf("%d trades, %d bought, %d sold, average price %s",
		s.Count, s.Bought, s.Sold, s.AveragePrice.StringFixed(2)))

	if len(m.dealsView.Trades) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, "", m.styles.Muted.Render("No trades recorded."))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, summary, "", m.deals.View())
}

func (m Model) viewStockForm() string {
	f := m.stockForm

	var rows []string
	for i, field := range stockFields {
		focused := i == m.stockFocus
		var value string
		disabled := false
		switch field {
		case forms.FieldType:
			value = toggleView(m.styles, []string{domain.StockTypeCommon.String(), domain.StockTypePreferred.String()},
				boolIndex(f.FixedDividendEnabled), focused)
		case forms.FieldFixedDividend:
			disabled = !f.FixedDividendEnabled
			value = m.stockInputs[field].View()
			if disabled {
				value = m.styles.Disabled.Render("n/a")
			}
		default:
			value = m.stockInputs[field].View()
		}
		rows = append(rows, m.formRow(field, value, focused, disabled, f.Errors[field]))
	}

	return m.modal("Add stock", f.State, rows, f.Errors, f.CanSubmit)
}

func (m Model) viewTradeForm() string {
	f := m.tradeForm

	var rows []string
	for i, field := range tradeFields {
		focused := i == m.tradeFocus
		var value string
		if field == forms.FieldSymbol {
			if len(f.Symbols) == 0 {
				value = m.styles.Disabled.Render("no stocks registered")
			} else {
				value = toggleView(m.styles, f.Symbols, indexOf(f.Symbols, f.Input.Symbol), focused)
			}
		} else {
			value = m.tradeInputs[field].View()
		}
		rows = append(rows, m.formRow(field, value, focused, false, f.Errors[field]))
	}

	return m.modal(f.Indicator.String()+" shares", f.State, rows, f.Errors, f.CanSubmit)
}

func (m Model) formRow(field, value string, focused, disabled bool, errs []string) string {
	label := m.styles.Label
	switch {
	case disabled:
		label = m.styles.Disabled
	case focused:
		label = m.styles.Focused
	}
	row := label.Render(fieldLabels[field]) + value
	for _, e := range errs {
		row += "\n" + strings.Repeat(" ", 16) + m.styles.Error.Render(e)
	}
	return row
}

func (m Model) modal(title string, state controller.ModalState, rows []string, errs exchange.FieldErrors, canSubmit bool) string {
	parts := []string{m.styles.Title.Render(title), ""}
	for _, e := range errs.FormWide() {
		parts = append(parts, m.styles.Error.Render(e))
	}
	parts = append(parts, rows...)
	parts = append(parts, "")

	switch {
	case state == controller.Submitting:
		parts = append(parts, m.spinner.View()+" Submitting...")
	case canSubmit:
		parts = append(parts, m.styles.Button.Render("Submit"))
	default:
		parts = append(parts, m.styles.Inactive.Render("Submit"))
	}

	return m.styles.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewStatus() string {
	if m.status == "" {
		return ""
	}
	text := m.status
	if m.width > 8 {
		text = ansi.Truncate(text, m.width-4, "…")
	}
	if m.statusErr {
		return m.styles.Error.Render(text)
	}
	return m.styles.Success.Render(text)
}

func (m Model) viewHelp() string {
	switch m.screen {
	case screenStockForm, screenTradeForm:
		return m.help.View(formKeys{})
	case screenDeals:
		return m.help.View(dealsKeys{})
	default:
		return m.help.View(tableKeys{})
	}
}

func toggleView(styles theme.Styles, options []string, selected int, focused bool) string {
	parts := make([]string, len(options))
	for i, o := range options {
		switch {
		case i == selected && focused:
			parts[i] = styles.Title.Render("[" + o + "]")
		case i == selected:
			parts[i] = "[" + o + "]"
		default:
			parts[i] = styles.Muted.Render(" " + o + " ")
		}
	}
	return strings.Join(parts, " ")
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}

func indexOf(values []string, v string) int {
	for i, s := range values {
		if s == v {
			return i
		}
	}
	return -1
}
