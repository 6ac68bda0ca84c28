package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/subcommands"

	"github.com/aristath/stockdesk/internal/clientdata"
	"github.com/aristath/stockdesk/internal/scheduler"
	"github.com/aristath/stockdesk/internal/ui"
)

// cleanupInterval is how often expired snapshots are purged while the terminal view runs
const cleanupInterval = 10 * time.Minute

type tuiCmd struct {
	env *env
}

func (*tuiCmd) Name() string     { return "tui" }
func (*tuiCmd) Synopsis() string { return "open the interactive stock table" }
func (*tuiCmd) Usage() string {
	return `tui

  Opens the full screen view: the stock table with the add-stock, buy, sell
  and deals dialogs. Logs go to STOCKDESK_LOG_FILE.
`
}

func (*tuiCmd) SetFlags(*flag.FlagSet) {}

func (c *tuiCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.env.open(true)
	if err != nil {
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if a.snapshots != nil {
		sched := scheduler.New(a.log)
		if err := sched.Every(cleanupInterval, clientdata.NewCleanupJob(a.snapshots, a.log)); err != nil {
			a.log.Error().Err(err).Msg("Failed to schedule snapshot cleanup")
		}
		sched.Start()
		defer sched.Stop()
	}

	renderer := ui.NewRenderer()
	unsubscribe := renderer.Subscribe(a.events.Bus())
	defer unsubscribe()

	ctrl := a.controller(renderer)
	model := ui.NewModel(ctx, ctrl, renderer, a.client.BaseURL())

	a.log.Info().Str("api_url", a.client.BaseURL()).Msg("Starting terminal view")
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		a.log.Error().Err(err).Msg("Terminal view failed")
		fmt.Fprintln(c.env.errOut, "Error:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
