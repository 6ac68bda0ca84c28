package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/aristath/stockdesk/internal/domain"
)

// FakeExchange is an in-memory exchange backend served over HTTP.
// It mirrors the responses of the real exchange, including string enums
// ("Common", "Buy") and {"status": "error"} failure bodies.
type FakeExchange struct {
	mu       sync.Mutex
	server   *httptest.Server
	stocks   []domain.Stock
	trades   []domain.Trade
	clock    func() int64
	index    *decimal.Decimal
	noIndex  bool
	failures map[string]int
	hits     map[string]int
	lastID   string
}

// NewFakeExchange starts a fake exchange. Call Close when done.
func NewFakeExchange() *FakeExchange {
	f := &FakeExchange{
		clock:    func() int64 { return time.Now().Unix() },
		failures: make(map[string]int),
		hits:     make(map[string]int),
	}
	f.server = httptest.NewServer(f.routes())
	return f
}

func (f *FakeExchange) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// browser preflights, as on the real exchange
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(f.track)

	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", f.handleListStocks)
		r.Post("/", f.handleCreateStock)
		r.Get("/{symbol}", f.handleGetStock)
		r.Put("/{symbol}", f.handleUpdateStock)
	})
	r.Route("/trades", func(r chi.Router) {
		r.Get("/", f.handleListTrades)
		r.Post("/", f.handleCreateTrade)
	})
	return r
}

// track counts requests and serves injected failures
func (f *FakeExchange) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimSuffix(r.URL.Path, "/")

		f.mu.Lock()
		f.hits[key]++
		f.lastID = r.Header.Get("X-Request-ID")
		status, fail := f.failures[key]
		delete(f.failures, key)
		f.mu.Unlock()

		if fail {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// URL returns the base URL of the fake exchange
func (f *FakeExchange) URL() string {
	return f.server.URL
}

// Close shuts the server down
func (f *FakeExchange) Close() {
	f.server.Close()
}

// SetClock overrides the timestamp source for new records
func (f *FakeExchange) SetClock(clock func() int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = clock
}

// SetIndex fixes the gbce_index reported with trades instead of computing it
func (f *FakeExchange) SetIndex(index decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = &index
	f.noIndex = false
}

// OmitIndex makes trade responses leave out gbce_index
func (f *FakeExchange) OmitIndex() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noIndex = true
}

// FailNext makes the next request to method+path answer with status and a non-JSON body.
func (f *FakeExchange) FailNext(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = status
}

// Hits returns how many requests reached method+path
func (f *FakeExchange) Hits(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[method+" "+path]
}

// LastRequestID returns the X-Request-ID of the latest request
func (f *FakeExchange) LastRequestID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastID
}

// AddStock registers a stock directly, keeping its timestamp when set
func (f *FakeExchange) AddStock(stock domain.Stock) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if stock.Timestamp == 0 {
		stock.Timestamp = f.clock()
	}
	f.stocks = append(f.stocks, stock.Normalize())
}

// AddTrade records a trade directly
func (f *FakeExchange) AddTrade(trade domain.Trade) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if trade.Timestamp == 0 {
		trade.Timestamp = f.clock()
	}
	f.trades = append(f.trades, trade)
}

// Stocks returns the registered stocks
func (f *FakeExchange) Stocks() []domain.Stock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Stock(nil), f.stocks...)
}

// Trades returns the recorded trades
func (f *FakeExchange) Trades() []domain.Trade {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Trade(nil), f.trades...)
}

func (f *FakeExchange) handleListStocks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]map[string]interface{}, len(f.stocks))
	for i, s := range f.stocks {
		out[i] = f.stockJSON(s)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "stocks": out})
}

func (f *FakeExchange) handleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.find(symbol)
	if i < 0 {
		writeNotFound(w, symbol)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "stock": f.stockJSON(f.stocks[i])})
}

func (f *FakeExchange) handleCreateStock(w http.ResponseWriter, r *http.Request) {
	stock, errs := decodeStock(r)
	if len(errs) > 0 {
		writeErrors(w, errs)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.find(stock.Symbol) >= 0 {
		writeErrors(w, map[string][]string{
			"symbol": {fmt.Sprintf("Stock symbol '%s' is already registered", stock.Symbol)},
		})
		return
	}
	stock.Timestamp = f.clock()
	f.stocks = append(f.stocks, stock)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "ok", "stock": f.stockJSON(stock)})
}

func (f *FakeExchange) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	f.mu.Lock()
	i := f.find(symbol)
	f.mu.Unlock()
	if i < 0 {
		writeNotFound(w, symbol)
		return
	}

	stock, errs := decodeStock(r)
	if len(errs) > 0 {
		writeErrors(w, errs)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stock.Symbol = symbol
	stock.Timestamp = f.stocks[i].Timestamp
	f.stocks[i] = stock
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "stock": f.stockJSON(stock)})
}

func (f *FakeExchange) handleListTrades(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make([]map[string]interface{}, len(f.trades))
	for i, t := range f.trades {
		out[i] = tradeJSON(t)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "trades": out})
}

func (f *FakeExchange) handleCreateTrade(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Symbol    string       `json:"symbol"`
		Price     *json.Number `json:"price"`
		Quantity  *json.Number `json:"quantity"`
		Indicator *json.Number `json:"indicator"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, map[string][]string{"__all__": {"Malformed request body"}})
		return
	}

	f.mu.Lock()
	known := f.find(body.Symbol) >= 0
	f.mu.Unlock()
	if !known {
		writeNotFound(w, body.Symbol)
		return
	}

	errs := make(map[string][]string)
	checkSymbol(errs, body.Symbol)
	price := requireDecimal(errs, "price", body.Price, decimal.Zero, nil)
	quantity := requireInt(errs, "quantity", body.Quantity, 1)
	indicator := requireChoice(errs, "indicator", body.Indicator)
	if len(errs) > 0 {
		writeErrors(w, errs)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	trade := domain.Trade{
		Symbol:    body.Symbol,
		Price:     price,
		Quantity:  quantity,
		Indicator: domain.Indicator(indicator),
		Timestamp: f.clock(),
	}
	f.trades = append(f.trades, trade)

	resp := map[string]interface{}{"status": "ok", "trade": tradeJSON(trade)}
	if !f.noIndex {
		resp["gbce_index"] = json.Number(f.gbceIndex().String())
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (f *FakeExchange) find(symbol string) int {
	for i, s := range f.stocks {
		if s.Symbol == symbol {
			return i
		}
	}
	return -1
}

// gbceIndex is the geometric mean of all stock prices unless fixed by SetIndex.
func (f *FakeExchange) gbceIndex() decimal.Decimal {
	if f.index != nil {
		return *f.index
	}
	prices := make([]float64, 0, len(f.stocks))
	for _, s := range f.stocks {
		if s.Price.IsPositive() {
			prices = append(prices, s.Price.InexactFloat64())
		}
	}
	if len(prices) == 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(stat.GeometricMean(prices, nil)).Round(4)
}

// vwsp is the volume weighted price of the trades on symbol
func (f *FakeExchange) vwsp(symbol string) decimal.Decimal {
	total, volume := decimal.Zero, decimal.Zero
	for _, t := range f.trades {
		if t.Symbol != symbol {
			continue
		}
		q := decimal.NewFromInt(t.Quantity)
		total = total.Add(t.Price.Mul(q))
		volume = volume.Add(q)
	}
	if volume.IsZero() {
		return decimal.Zero
	}
	return total.Div(volume).Round(4)
}

func (f *FakeExchange) stockJSON(s domain.Stock) map[string]interface{} {
	dividend := decimal.NewFromInt(s.LastDividend)
	if s.Type == domain.StockTypePreferred && s.FixedDividend.Valid {
		dividend = s.FixedDividend.Decimal.Mul(s.ParValue)
	}
	yield, pe := decimal.Zero, decimal.Zero
	if s.Price.IsPositive() {
		yield = dividend.Div(s.Price).Round(4)
	}
	if dividend.IsPositive() {
		pe = s.Price.Div(dividend).Round(4)
	}

	out := map[string]interface{}{
		"symbol":         s.Symbol,
		"price":          json.Number(s.Price.String()),
		"type":           s.Type.String(),
		"last_dividend":  s.LastDividend,
		"par_value":      json.Number(s.ParValue.String()),
		"dividend_yield": json.Number(yield.String()),
		"pe_ratio":       json.Number(pe.String()),
		"vwsp":           json.Number(f.vwsp(s.Symbol).String()),
		"timestamp":      s.Timestamp,
		"url":            "/stocks/" + s.Symbol,
	}
	if s.Type == domain.StockTypePreferred && s.FixedDividend.Valid {
		out["fixed_dividend"] = json.Number(s.FixedDividend.Decimal.String())
	}
	return out
}

func tradeJSON(t domain.Trade) map[string]interface{} {
	return map[string]interface{}{
		"symbol":    t.Symbol,
		"price":     json.Number(t.Price.String()),
		"quantity":  t.Quantity,
		"indicator": t.Indicator.String(),
		"timestamp": t.Timestamp,
	}
}

func decodeStock(r *http.Request) (domain.Stock, map[string][]string) {
	var body struct {
		Symbol        string       `json:"symbol"`
		Price         *json.Number `json:"price"`
		Type          *json.Number `json:"type"`
		LastDividend  *json.Number `json:"last_dividend"`
		FixedDividend *json.Number `json:"fixed_dividend"`
		ParValue      *json.Number `json:"par_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return domain.Stock{}, map[string][]string{"__all__": {"Malformed request body"}}
	}

	errs := make(map[string][]string)
	checkSymbol(errs, body.Symbol)
	one := decimal.NewFromInt(1)
	stock := domain.Stock{
		Symbol:       body.Symbol,
		Price:        requireDecimal(errs, "price", body.Price, decimal.Zero, nil),
		Type:         domain.StockType(requireChoice(errs, "type", body.Type)),
		LastDividend: requireInt(errs, "last_dividend", body.LastDividend, 0),
		ParValue:     requireDecimal(errs, "par_value", body.ParValue, decimal.Zero, nil),
	}
	if stock.Type == domain.StockTypePreferred {
		if body.FixedDividend == nil {
			stock.FixedDividend = decimal.NewNullDecimal(decimal.Zero)
		} else {
			stock.FixedDividend = decimal.NewNullDecimal(requireDecimal(errs, "fixed_dividend", body.FixedDividend, decimal.Zero, &one))
		}
	}
	return stock, errs
}

func checkSymbol(errs map[string][]string, symbol string) {
	switch {
	case symbol == "":
		errs["symbol"] = append(errs["symbol"], "This field is required.")
	case len(symbol) < 3 || len(symbol) > 5:
		errs["symbol"] = append(errs["symbol"], "Field must be between 3 and 5 characters long.")
	}
}

func requireDecimal(errs map[string][]string, field string, n *json.Number, min decimal.Decimal, max *decimal.Decimal) decimal.Decimal {
	if n == nil {
		errs[field] = append(errs[field], "This field is required.")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		errs[field] = append(errs[field], "Not a valid float value")
		return decimal.Zero
	}
	if d.LessThan(min) || (max != nil && d.GreaterThan(*max)) {
		if max != nil {
			errs[field] = append(errs[field], fmt.Sprintf("Number must be between %s and %s.", min, max))
		} else {
			errs[field] = append(errs[field], fmt.Sprintf("Number must be at least %s.", min))
		}
	}
	return d
}

func requireInt(errs map[string][]string, field string, n *json.Number, min int64) int64 {
	if n == nil {
		errs[field] = append(errs[field], "This field is required.")
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		errs[field] = append(errs[field], "Not a valid integer value")
		return 0
	}
	if i < min {
		errs[field] = append(errs[field], fmt.Sprintf("Number must be at least %d.", min))
	}
	return i
}

func requireChoice(errs map[string][]string, field string, n *json.Number) int {
	i := requireInt(errs, field, n, 0)
	if i > 1 {
		errs[field] = append(errs[field], "Not a valid choice")
	}
	return int(i)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrors(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"status": "error", "errors": errs})
}

func writeNotFound(w http.ResponseWriter, symbol string) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"status": "error",
		"text":   fmt.Sprintf("Stock '%s' is not found", symbol),
	})
}
