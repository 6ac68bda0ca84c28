package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockdesk/internal/config"
	"github.com/aristath/stockdesk/internal/domain"
	testingpkg "github.com/aristath/stockdesk/internal/testing"
)

type testEnv struct {
	*env
	fake   *testingpkg.FakeExchange
	cfg    *config.Config
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fake := testingpkg.NewFakeExchange()
	t.Cleanup(fake.Close)
	for _, s := range testingpkg.NewStockFixtures() {
		fake.AddStock(s)
	}

	cfg := &config.Config{
		APIURL:      fake.URL(),
		HTTPTimeout: 2 * time.Second,
		CacheTTL:    time.Hour,
		FormMode:    config.FormModeTruthy,
		Location:    time.UTC,
	}
	te := &testEnv{fake: fake, cfg: cfg, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.env = &env{
		out:    te.stdout,
		errOut: te.stderr,
		open: func(bool) (*app, error) {
			return newApp(te.cfg, zerolog.Nop())
		},
	}
	return te
}

func (te *testEnv) run(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	te.stdout.Reset()
	te.stderr.Reset()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return cmd.Execute(context.Background(), fs)
}

func TestCommands_Registered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range commands(defaultEnv()) {
		names[c.Name()] = true
		assert.NotEmpty(t, c.Synopsis())
		assert.NotEmpty(t, c.Usage())
	}
	for _, name := range []string{"stocks", "stock", "add-stock", "update-stock", "trade", "deals"} {
		assert.True(t, names[name], name)
	}
}

func TestStocksCmd(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &stocksCmd{env: te.env})
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())

	out := te.stdout.String()
	for _, symbol := range []string{"TEA", "POP", "ALE", "GIN", "JOE"} {
		assert.Contains(t, out, symbol)
	}
	assert.Less(t, bytes.Index(te.stdout.Bytes(), []byte("TEA")), bytes.Index(te.stdout.Bytes(), []byte("JOE")))
}

func TestStocksCmd_JSON(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &stocksCmd{env: te.env}, "-json")
	require.Equal(t, subcommands.ExitSuccess, status)

	var stocks []domain.Stock
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &stocks))
	assert.Len(t, stocks, 5)
	assert.Equal(t, "TEA", stocks[0].Symbol)
}

func TestStocksCmd_StaleSnapshot(t *testing.T) {
	te := newTestEnv(t)
	te.cfg.CachePath = filepath.Join(t.TempDir(), "snapshots.db")

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stocksCmd{env: te.env}))

	te.fake.Close()
	status := te.run(t, &stocksCmd{env: te.env})
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stderr.String(), "exchange unreachable")
	assert.Contains(t, te.stdout.String(), "GIN")
}

func TestStocksCmd_Cached(t *testing.T) {
	te := newTestEnv(t)

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stocksCmd{env: te.env}, "-cached"),
		"without a cache the listing is fetched")
	assert.Equal(t, 1, te.fake.Hits("GET", "/stocks"))

	te.cfg.CachePath = filepath.Join(t.TempDir(), "snapshots.db")
	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stocksCmd{env: te.env}))
	require.Equal(t, 2, te.fake.Hits("GET", "/stocks"))

	status := te.run(t, &stocksCmd{env: te.env}, "-cached")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Equal(t, 2, te.fake.Hits("GET", "/stocks"), "a fresh snapshot is served without a request")
	assert.Contains(t, te.stderr.String(), "Showing stocks cached at")
	assert.Contains(t, te.stdout.String(), "JOE")
}

func TestStockCmd_KeepsCachedListing(t *testing.T) {
	te := newTestEnv(t)
	te.cfg.CachePath = filepath.Join(t.TempDir(), "snapshots.db")

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stocksCmd{env: te.env}))
	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stockCmd{env: te.env}, "GIN"))

	te.fake.Close()
	status := te.run(t, &stocksCmd{env: te.env}, "-json")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stderr.String(), "exchange unreachable")

	var stocks []domain.Stock
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &stocks))
	got := make([]string, len(stocks))
	for i, s := range stocks {
		got[i] = s.Symbol
	}
	assert.Equal(t, []string{"TEA", "POP", "ALE", "GIN", "JOE"}, got)
}

func TestStockCmd(t *testing.T) {
	te := newTestEnv(t)

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &stockCmd{env: te.env}, "GIN"))
	assert.Contains(t, te.stdout.String(), "Preferred")
	assert.Contains(t, te.stdout.String(), "0.02")

	assert.Equal(t, subcommands.ExitFailure, te.run(t, &stockCmd{env: te.env}, "XXX"))
	assert.Contains(t, te.stderr.String(), "not found")

	assert.Equal(t, subcommands.ExitUsageError, te.run(t, &stockCmd{env: te.env}))
}

func TestAddStockCmd(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &addStockCmd{env: te.env},
		"-symbol", "XYZ", "-type", "preferred", "-price", "12.5",
		"-last-dividend", "3", "-fixed-dividend", "0.05", "-par-value", "100")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stdout.String(), "Added XYZ")
	assert.Len(t, te.fake.Stocks(), 6)
}

func TestAddStockCmd_ZeroDividendIsDisabled(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &addStockCmd{env: te.env},
		"-symbol", "NEW", "-price", "100", "-last-dividend", "0", "-par-value", "100")
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Contains(t, te.stderr.String(), "last_dividend")
	assert.Equal(t, 0, te.fake.Hits("POST", "/stocks"))

	te.cfg.FormMode = config.FormModePresence
	status = te.run(t, &addStockCmd{env: te.env},
		"-symbol", "NEW", "-price", "100", "-last-dividend", "0", "-par-value", "100")
	assert.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
}

func TestAddStockCmd_Rejected(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &addStockCmd{env: te.env},
		"-symbol", "TOOLONG", "-price", "1", "-last-dividend", "1", "-par-value", "1")
	assert.Equal(t, subcommands.ExitFailure, status)
	assert.Contains(t, te.stderr.String(), "symbol: Field must be between 3 and 5 characters long.")
	assert.Len(t, te.fake.Stocks(), 5)
}

func TestAddStockCmd_UnknownType(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &addStockCmd{env: te.env}, "-symbol", "XYZ", "-type", "ordinary")
	assert.Equal(t, subcommands.ExitUsageError, status)
}

func TestUpdateStockCmd(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &updateStockCmd{env: te.env}, "-price", "120", "POP")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stdout.String(), "Updated POP")

	for _, s := range te.fake.Stocks() {
		if s.Symbol == "POP" {
			assert.True(t, decimal.NewFromInt(120).Equal(s.Price))
			assert.Equal(t, int64(8), s.LastDividend, "fields not given are kept")
		}
	}
}

func TestTradeCmd(t *testing.T) {
	te := newTestEnv(t)
	te.fake.SetIndex(decimal.RequireFromString("104.5"))

	status := te.run(t, &tradeCmd{env: te.env}, "-symbol", "GIN", "-quantity", "10", "-price", "50", "buy")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())

	out := te.stdout.String()
	assert.Contains(t, out, "Bought 10 GIN @ 50")
	assert.Contains(t, out, "GBCE All Share Index: 104.50")
	assert.Equal(t, 1, te.fake.Hits("GET", "/stocks/GIN"))
	assert.Len(t, te.fake.Trades(), 1)
}

func TestTradeCmd_DefaultsToStockPrice(t *testing.T) {
	te := newTestEnv(t)

	status := te.run(t, &tradeCmd{env: te.env}, "-symbol", "JOE", "-quantity", "2", "sell")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stdout.String(), "Sold 2 JOE @ 250")
}

func TestTradeCmd_UsageErrors(t *testing.T) {
	te := newTestEnv(t)

	assert.Equal(t, subcommands.ExitUsageError, te.run(t, &tradeCmd{env: te.env}, "-symbol", "GIN", "-quantity", "1"))
	assert.Equal(t, subcommands.ExitUsageError, te.run(t, &tradeCmd{env: te.env}, "-symbol", "GIN", "-quantity", "1", "hold"))
	assert.Equal(t, subcommands.ExitUsageError, te.run(t, &tradeCmd{env: te.env}, "-symbol", "NOPE", "-quantity", "1", "buy"))
	assert.Equal(t, subcommands.ExitUsageError, te.run(t, &tradeCmd{env: te.env}, "-symbol", "GIN", "-quantity", "0", "buy"))
	assert.Empty(t, te.fake.Trades())
}

func TestDealsCmd(t *testing.T) {
	te := newTestEnv(t)
	for _, trade := range testingpkg.NewTradeFixtures() {
		te.fake.AddTrade(trade)
	}

	status := te.run(t, &dealsCmd{env: te.env})
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stdout.String(), "01/01/2021 01:00:00")
	assert.Contains(t, te.stdout.String(), "3 trades, 10 bought, 15 sold")

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &dealsCmd{env: te.env}, "-json"))
	var views []domain.TradeView
	require.NoError(t, json.Unmarshal(te.stdout.Bytes(), &views))
	assert.Len(t, views, 3)
}

func TestDealsCmd_Unreachable(t *testing.T) {
	te := newTestEnv(t)
	te.fake.Close()

	assert.Equal(t, subcommands.ExitFailure, te.run(t, &dealsCmd{env: te.env}))
	assert.Contains(t, te.stderr.String(), "Error loading trades")
}

func TestTradeCmd_KeepsCachedTrades(t *testing.T) {
	te := newTestEnv(t)
	te.cfg.CachePath = filepath.Join(t.TempDir(), "snapshots.db")

	trade := func(symbol, price string) {
		t.Helper()
		status := te.run(t, &tradeCmd{env: te.env}, "-symbol", symbol, "-quantity", "1", "-price", price, "buy")
		require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	}
	trade("GIN", "50")
	trade("TEA", "100")
	require.Equal(t, subcommands.ExitSuccess, te.run(t, &dealsCmd{env: te.env}))
	require.Contains(t, te.stdout.String(), "2 trades")
	trade("POP", "80")

	te.fake.Close()
	status := te.run(t, &dealsCmd{env: te.env})
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Contains(t, te.stderr.String(), "exchange unreachable")
	assert.Contains(t, te.stdout.String(), "2 trades")
	assert.Contains(t, te.stdout.String(), "GIN")
	assert.Contains(t, te.stdout.String(), "TEA")
}

func TestDealsCmd_Cached(t *testing.T) {
	te := newTestEnv(t)
	te.cfg.CachePath = filepath.Join(t.TempDir(), "snapshots.db")
	for _, trade := range testingpkg.NewTradeFixtures() {
		te.fake.AddTrade(trade)
	}

	require.Equal(t, subcommands.ExitSuccess, te.run(t, &dealsCmd{env: te.env}, "-cached"))
	require.Equal(t, 1, te.fake.Hits("GET", "/trades"), "nothing cached yet")

	status := te.run(t, &dealsCmd{env: te.env}, "-cached")
	require.Equal(t, subcommands.ExitSuccess, status, te.stderr.String())
	assert.Equal(t, 1, te.fake.Hits("GET", "/trades"))
	assert.Contains(t, te.stderr.String(), "Showing trades cached at")
	assert.Contains(t, te.stdout.String(), "3 trades, 10 bought, 15 sold")
}

func TestParseStockType(t *testing.T) {
	for in, want := range map[string]string{"": "0", "common": "0", "Preferred": "1", "1": "1"} {
		got, err := parseStockType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseStockType("ordinary")
	assert.Error(t, err)
}
