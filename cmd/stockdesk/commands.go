package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/subcommands"

	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/domain"
	"github.com/aristath/stockdesk/internal/forms"
)

// commands returns the one-shot exchange subcommands
func commands(e *env) []subcommands.Command {
	return []subcommands.Command{
		&stocksCmd{env: e},
		&stockCmd{env: e},
		&addStockCmd{env: e},
		&updateStockCmd{env: e},
		&tradeCmd{env: e},
		&dealsCmd{env: e},
	}
}

// stocks

type stocksCmd struct {
	env    *env
	json   bool
	cached bool
}

func (*stocksCmd) Name() string     { return "stocks" }
func (*stocksCmd) Synopsis() string { return "list the stocks registered on the exchange" }
func (*stocksCmd) Usage() string {
	return `stocks [-json] [-cached]

  Lists every registered stock, oldest first, with its dividend yield,
  P/E ratio and volume weighted stock price. With -cached an unexpired
  snapshot (STOCKDESK_CACHE_PATH) is shown without contacting the exchange.
`
}

func (c *stocksCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the stocks as JSON")
	f.BoolVar(&c.cached, "cached", false, "Use a fresh cached snapshot when there is one")
}

func (c *stocksCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	cached := c.cached && a.stocks.LoadFresh()
	if !cached {
		if err := a.stocks.FetchAll(ctx); err != nil {
			fmt.Fprintf(c.env.errOut, "Error loading stocks: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	fetchedAt := a.stocks.FetchedAt().In(a.cfg.Location).Format(domain.TimestampLayout)
	switch {
	case cached:
		fmt.Fprintf(c.env.errOut, "Showing stocks cached at %s\n", fetchedAt)
	case a.stocks.Stale():
		fmt.Fprintf(c.env.errOut, "Warning: exchange unreachable, showing stocks cached at %s\n", fetchedAt)
	}

	stocks := a.stocks.Items()
	if c.json {
		return printJSON(c.env, stocks)
	}
	if len(stocks) == 0 {
		fmt.Fprintln(c.env.out, "No stocks registered.")
		return subcommands.ExitSuccess
	}

	rows := make([][]string, len(stocks))
	for i, s := range stocks {
		rows[i] = stockRow(s)
	}
	fmt.Fprintln(c.env.out, renderTable(
		[]string{"Symbol", "Type", "Price", "Last div", "Fixed div", "Par", "Yield", "P/E", "VWSP"}, rows))
	return subcommands.ExitSuccess
}

// stock

type stockCmd struct {
	env  *env
	json bool
}

func (*stockCmd) Name() string     { return "stock" }
func (*stockCmd) Synopsis() string { return "show a single stock" }
func (*stockCmd) Usage() string {
	return `stock [-json] <symbol>

  Fetches a stock from the exchange. Symbols are case sensitive.
`
}

func (c *stockCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the stock as JSON")
}

func (c *stockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.env.errOut, "Error: exactly one symbol is required.")
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(0)

	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	stock, err := a.stocks.Refresh(ctx, symbol)
	if err != nil {
		if exchange.IsNotFound(err) {
			fmt.Fprintf(c.env.errOut, "Error: stock %q not found\n", symbol)
		} else {
			fmt.Fprintf(c.env.errOut, "Error fetching stock: %v\n", err)
		}
		return subcommands.ExitFailure
	}

	if c.json {
		return printJSON(c.env, stock)
	}
	printStock(c.env.out, stock)
	return subcommands.ExitSuccess
}

// add-stock

// stockFlags are the raw add-stock form fields, submitted exactly as typed
type stockFlags struct {
	stockType     string
	price         string
	lastDividend  string
	fixedDividend string
	parValue      string
}

func (s *stockFlags) register(f *flag.FlagSet) {
	f.StringVar(&s.stockType, "type", "common", "Stock type: common or preferred")
	f.StringVar(&s.price, "price", "", "Price")
	f.StringVar(&s.lastDividend, "last-dividend", "", "Last dividend, a whole number")
	f.StringVar(&s.fixedDividend, "fixed-dividend", "", "Fixed dividend rate, preferred stocks only")
	f.StringVar(&s.parValue, "par-value", "", "Par value")
}

// stockFlagFields maps flag names to form fields
var stockFlagFields = map[string]string{
	"type":           forms.FieldType,
	"price":          forms.FieldPrice,
	"last-dividend":  forms.FieldLastDividend,
	"fixed-dividend": forms.FieldFixedDividend,
	"par-value":      forms.FieldParValue,
}

func (s *stockFlags) value(name string) string {
	switch name {
	case "type":
		return s.stockType
	case "price":
		return s.price
	case "last-dividend":
		return s.lastDividend
	case "fixed-dividend":
		return s.fixedDividend
	case "par-value":
		return s.parValue
	}
	return ""
}

// parseStockType maps a type flag to the form's select value
func parseStockType(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "common":
		return "0", nil
	case "1", "preferred":
		return "1", nil
	}
	return "", fmt.Errorf("unknown stock type %q (use common|preferred)", s)
}

type addStockCmd struct {
	env    *env
	symbol string
	stockFlags
}

func (*addStockCmd) Name() string     { return "add-stock" }
func (*addStockCmd) Synopsis() string { return "register a new stock" }
func (*addStockCmd) Usage() string {
	return `add-stock -symbol <symbol> -price <price> -last-dividend <n> -par-value <value>
          [-type preferred -fixed-dividend <rate>]

  Submits the add-stock form. The form is validated the same way as in the
  terminal view before anything is sent to the exchange.
`
}

func (c *addStockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Stock symbol (required)")
	c.stockFlags.register(f)
}

func (c *addStockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	stockType, err := parseStockType(c.stockType)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitUsageError
	}

	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctrl := a.controller(controller.NopRenderer{})
	ctrl.OpenStock()
	changes := []struct{ field, value string }{
		{forms.FieldSymbol, c.symbol},
		{forms.FieldType, stockType},
		{forms.FieldPrice, c.price},
		{forms.FieldLastDividend, c.lastDividend},
		{forms.FieldFixedDividend, c.fixedDividend},
		{forms.FieldParValue, c.parValue},
	}
	for _, ch := range changes {
		if err := ctrl.ChangeStock(ch.field, ch.value); err != nil {
			fmt.Fprintln(c.env.errOut, "Error:", err)
			return subcommands.ExitFailure
		}
	}

	stock, err := ctrl.SubmitStock(ctx)
	if err != nil {
		return reportSubmitError(c.env.errOut, err)
	}

	fmt.Fprintf(c.env.out, "Added %s\n", stock.Symbol)
	printStock(c.env.out, stock)
	return subcommands.ExitSuccess
}

// update-stock

type updateStockCmd struct {
	env *env
	stockFlags
}

func (*updateStockCmd) Name() string     { return "update-stock" }
func (*updateStockCmd) Synopsis() string { return "change the fields of a registered stock" }
func (*updateStockCmd) Usage() string {
	return `update-stock [-type ...] [-price ...] [-last-dividend ...] [-fixed-dividend ...] [-par-value ...] <symbol>

  Replaces a stock on the exchange. Fields not given keep their current value.
`
}

func (c *updateStockCmd) SetFlags(f *flag.FlagSet) {
	c.stockFlags.register(f)
}

func (c *updateStockCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.env.errOut, "Error: exactly one symbol is required.")
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(0)

	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	current, err := a.stocks.Refresh(ctx, symbol)
	if err != nil {
		fmt.Fprintf(c.env.errOut, "Error fetching stock: %v\n", err)
		return subcommands.ExitFailure
	}

	input := stockInput(current)
	var usageErr error
	f.Visit(func(fl *flag.Flag) {
		field, ok := stockFlagFields[fl.Name]
		if !ok {
			return
		}
		value := c.value(fl.Name)
		if fl.Name == "type" {
			if value, err = parseStockType(value); err != nil {
				usageErr = err
				return
			}
		}
		input.Set(field, value)
	})
	if usageErr != nil {
		fmt.Fprintln(c.env.errOut, "Error:", usageErr)
		return subcommands.ExitUsageError
	}

	values := input.Values()
	if err := forms.NewValidator(a.cfg.FormMode).CheckStock(values); err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitUsageError
	}

	updated, err := a.stocks.Update(ctx, values.Stock())
	if err != nil {
		return reportSubmitError(c.env.errOut, err)
	}

	fmt.Fprintf(c.env.out, "Updated %s\n", updated.Symbol)
	printStock(c.env.out, updated)
	return subcommands.ExitSuccess
}

// stockInput fills a form from an existing stock
func stockInput(s domain.Stock) forms.StockInput {
	in := forms.StockInput{
		Symbol:       s.Symbol,
		Type:         strconv.Itoa(int(s.Type)),
		Price:        s.Price.String(),
		LastDividend: strconv.FormatInt(s.LastDividend, 10),
		ParValue:     s.ParValue.String(),
	}
	if s.FixedDividend.Valid {
		in.FixedDividend = s.FixedDividend.Decimal.String()
	}
	return in
}

// trade

type tradeCmd struct {
	env      *env
	symbol   string
	price    string
	quantity string
}

func (*tradeCmd) Name() string     { return "trade" }
func (*tradeCmd) Synopsis() string { return "record a buy or sell trade" }
func (*tradeCmd) Usage() string {
	return `trade -symbol <symbol> -quantity <n> [-price <price>] buy|sell

  Records a trade. The price defaults to the registered price of the stock.
  Prints the refreshed stock and the new GBCE All Share Index.
`
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "Stock symbol (required)")
	f.StringVar(&c.price, "price", "", "Trade price, defaults to the stock price")
	f.StringVar(&c.quantity, "quantity", "", "Number of shares (required)")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(c.env.errOut, "Error: the trade side (buy or sell) is required.")
		return subcommands.ExitUsageError
	}
	var indicator domain.Indicator
	switch strings.ToLower(f.Arg(0)) {
	case "buy":
		indicator = domain.IndicatorBuy
	case "sell":
		indicator = domain.IndicatorSell
	default:
		fmt.Fprintf(c.env.errOut, "Error: unknown trade side %q (use buy|sell)\n", f.Arg(0))
		return subcommands.ExitUsageError
	}

	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.stocks.FetchAll(ctx); err != nil {
		fmt.Fprintf(c.env.errOut, "Error loading stocks: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, ok := a.stocks.FindBySymbol(c.symbol); !ok && c.price == "" {
		fmt.Fprintf(c.env.errOut, "Error: stock %q is not registered\n", c.symbol)
		return subcommands.ExitUsageError
	}

	ctrl := a.controller(&cliRenderer{out: c.env.out})
	ctrl.OpenTrade(indicator)
	changes := []struct{ field, value string }{
		{forms.FieldSymbol, c.symbol},
		{forms.FieldQuantity, c.quantity},
	}
	if c.price != "" {
		changes = append(changes, struct{ field, value string }{forms.FieldPrice, c.price})
	}
	for _, ch := range changes {
		if err := ctrl.ChangeTrade(ch.field, ch.value); err != nil {
			fmt.Fprintln(c.env.errOut, "Error:", err)
			return subcommands.ExitFailure
		}
	}

	result, err := ctrl.SubmitTrade(ctx)
	if err != nil {
		return reportSubmitError(c.env.errOut, err)
	}

	trade := result.Trade
	verb := "Bought"
	if trade.Indicator == domain.IndicatorSell {
		verb = "Sold"
	}
	fmt.Fprintf(c.env.out, "%s %d %s @ %s\n", verb, trade.Quantity, trade.Symbol, trade.Price)
	if result.RefreshErr != nil {
		fmt.Fprintf(c.env.errOut, "Warning: trade recorded, but %s could not be refreshed: %v\n", trade.Symbol, result.RefreshErr)
	} else {
		printStock(c.env.out, result.Stock)
	}
	return subcommands.ExitSuccess
}

// cliRenderer prints the index updates of a controller
type cliRenderer struct {
	controller.NopRenderer
	out io.Writer
}

func (r *cliRenderer) RenderIndex(index string) {
	fmt.Fprintf(r.out, "GBCE All Share Index: %s\n", index)
}

// deals

type dealsCmd struct {
	env    *env
	json   bool
	cached bool
}

func (*dealsCmd) Name() string     { return "deals" }
func (*dealsCmd) Synopsis() string { return "list the recorded trades" }
func (*dealsCmd) Usage() string {
	return `deals [-json] [-cached]

  Lists every recorded trade, oldest first, followed by a summary.
  With -cached an unexpired snapshot is shown without contacting the exchange.
`
}

func (c *dealsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the trades as JSON")
	f.BoolVar(&c.cached, "cached", false, "Use a fresh cached snapshot when there is one")
}

func (c *dealsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(false)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	ctrl := a.controller(controller.NopRenderer{})
	deals, cached := controller.Deals{}, false
	if c.cached {
		deals, cached = ctrl.CachedDeals()
	}
	if cached {
		fmt.Fprintf(c.env.errOut, "Showing trades cached at %s\n",
			a.trades.FetchedAt().In(a.cfg.Location).Format(domain.TimestampLayout))
	} else {
		if deals, err = ctrl.OpenDeals(ctx); err != nil {
			fmt.Fprintf(c.env.errOut, "Error loading trades: %v\n", err)
			return subcommands.ExitFailure
		}
		if deals.Stale {
			fmt.Fprintln(c.env.errOut, "Warning: exchange unreachable, showing cached trades")
		}
	}

	if c.json {
		return printJSON(c.env, deals.Trades)
	}
	if len(deals.Trades) == 0 {
		fmt.Fprintln(c.env.out, "No trades recorded.")
		return subcommands.ExitSuccess
	}

	rows := make([][]string, len(deals.Trades))
	for i, t := range deals.Trades {
		rows[i] = []string{t.Timestamp, t.Symbol, t.Indicator.String(), strconv.FormatInt(t.Quantity, 10), t.Price.String()}
	}
	fmt.Fprintln(c.env.out, renderTable([]string{"Time", "Symbol", "Side", "Quantity", "Price"}, rows))

	s := deals.Summary
	fmt.Fprintf(c.env.out, "%d trades, %d bought, %d sold, average price %s\n",
		s.Count, s.Bought, s.Sold, s.AveragePrice.StringFixed(2))
	return subcommands.ExitSuccess
}

// Output helpers

// reportSubmitError prints a failed submission, per field when the exchange rejected it.
func reportSubmitError(w io.Writer, err error) subcommands.ExitStatus {
	if errors.Is(err, controller.ErrSubmitDisabled) {
		fmt.Fprintln(w, "Error:", err)
		return subcommands.ExitUsageError
	}

	fields := exchange.ErrorFields(err)
	for _, msg := range fields.FormWide() {
		fmt.Fprintln(w, "Error:", msg)
	}
	for _, name := range fields.Fields() {
		for _, msg := range fields[name] {
			fmt.Fprintf(w, "Error: %s: %s\n", name, msg)
		}
	}
	return subcommands.ExitFailure
}

func printJSON(e *env, v interface{}) subcommands.ExitStatus {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(e.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func printStock(w io.Writer, s domain.Stock) {
	fixed := "-"
	if s.FixedDividend.Valid {
		fixed = s.FixedDividend.Decimal.String()
	}
	fmt.Fprintf(w, "  %-15s %s\n", "Symbol", s.Symbol)
	fmt.Fprintf(w, "  %-15s %s\n", "Type", s.Type)
	fmt.Fprintf(w, "  %-15s %s\n", "Price", s.Price)
	fmt.Fprintf(w, "  %-15s %d\n", "Last dividend", s.LastDividend)
	fmt.Fprintf(w, "  %-15s %s\n", "Fixed dividend", fixed)
	fmt.Fprintf(w, "  %-15s %s\n", "Par value", s.ParValue)
	fmt.Fprintf(w, "  %-15s %s\n", "Dividend yield", s.DividendYield.StringFixed(4))
	fmt.Fprintf(w, "  %-15s %s\n", "P/E ratio", s.PERatio.StringFixed(2))
	fmt.Fprintf(w, "  %-15s %s\n", "VWSP", s.VWSP.StringFixed(2))
}

func stockRow(s domain.Stock) []string {
	fixed := "-"
	if s.FixedDividend.Valid {
		fixed = s.FixedDividend.Decimal.String()
	}
	return []string{
		s.Symbol,
		s.Type.String(),
		s.Price.StringFixed(2),
		strconv.FormatInt(s.LastDividend, 10),
		fixed,
		s.ParValue.String(),
		s.DividendYield.StringFixed(4),
		s.PERatio.StringFixed(2),
		s.VWSP.StringFixed(2),
	}
}

func renderTable(headers []string, rows [][]string) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
