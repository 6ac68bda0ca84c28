package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/aristath/stockdesk/internal/clientdata"
	"github.com/aristath/stockdesk/internal/clients/exchange"
	"github.com/aristath/stockdesk/internal/collections"
	"github.com/aristath/stockdesk/internal/config"
	"github.com/aristath/stockdesk/internal/controller"
	"github.com/aristath/stockdesk/internal/database"
	"github.com/aristath/stockdesk/internal/events"
	"github.com/aristath/stockdesk/internal/forms"
	"github.com/aristath/stockdesk/pkg/logger"
)

// app holds the wired collaborators shared by every subcommand
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	client    *exchange.Client
	events    *events.Manager
	stocks    *collections.Registry
	trades    *collections.TradeLog
	db        *database.DB           // nil when the snapshot cache is disabled
	snapshots *clientdata.Repository // nil when the snapshot cache is disabled
	closers   []io.Closer
}

// env carries the process streams and the app factory, replaced in tests
type env struct {
	out    io.Writer
	errOut io.Writer
	// open builds the app; tui routes logs to the log file instead of stderr
	open func(tui bool) (*app, error)
}

func defaultEnv() *env {
	e := &env{out: os.Stdout, errOut: os.Stderr}
	e.open = func(tui bool) (*app, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}

		var closers []io.Closer
		logCfg := logger.Config{Level: cfg.LogLevel, Pretty: true, Output: e.errOut}
		if tui {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("failed to open log file: %w", err)
			}
			closers = append(closers, f)
			logCfg = logger.Config{Level: cfg.LogLevel, Output: f}
		}
		log := logger.New(logCfg)
		logger.SetGlobalLogger(log)

		a, err := newApp(cfg, log)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, err
		}
		a.closers = append(a.closers, closers...)
		return a, nil
	}
	return e
}

// newApp wires the exchange client, the collections and the optional snapshot cache.
func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	client := exchange.NewClient(cfg.APIURL, cfg.HTTPTimeout, log)
	em := events.NewManager(events.NewBus(), log)

	a := &app{
		cfg:    cfg,
		log:    log,
		client: client,
		events: em,
		stocks: collections.NewRegistry(client, em, log),
		trades: collections.NewTradeLog(client, em, log),
	}

	if cfg.CachePath != "" {
		db, err := database.New(database.Config{
			Path:    cfg.CachePath,
			Profile: database.ProfileCache,
			Name:    "snapshots",
		})
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(clientdata.Schema); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = clientdata.TTLSnapshot
		}
		a.snapshots = clientdata.NewRepository(db.Conn())
		a.stocks.SetSnapshotStore(a.snapshots, ttl)
		a.trades.SetSnapshotStore(a.snapshots, ttl)
		a.closers = append(a.closers, db)

		log.Debug().Str("path", db.Path()).Msg("Snapshot cache enabled")
	}

	return a, nil
}

// controller builds a controller rendering to r
func (a *app) controller(r controller.Renderer) *controller.Controller {
	return controller.New(controller.Deps{
		Stocks:    a.stocks,
		Trades:    a.trades,
		Renderer:  r,
		Validator: forms.NewValidator(a.cfg.FormMode),
		Events:    a.events,
		Location:  a.cfg.Location,
		Log:       a.log,
	})
}

// Close releases the cache database and the log file
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close resource")
		}
	}
}
