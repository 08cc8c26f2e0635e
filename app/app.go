// Package app hosts the Tk application window and its update loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tk "modernc.org/tk9.0"

	"github.com/soocke/sigdesk-go/config"
	"github.com/soocke/sigdesk-go/debug"
	"github.com/soocke/sigdesk-go/ui/presenter"
	"github.com/soocke/sigdesk-go/ui/theme"
)

const tick = 100 * time.Millisecond

type app struct {
	width, height int
	logger        *slog.Logger
	container     *Container
	ctx           context.Context
	cancel        context.CancelFunc
	afterID       string
}

// NewApp builds the container and configures the root window.
func NewApp(title string, width, height int, cfgs *config.Store, logger *slog.Logger) (*app, error) {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := BuildContainer(ctx, cfgs, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	a := &app{width: width, height: height, logger: logger, container: c, ctx: ctx, cancel: cancel}
	tk.App.WmTitle(title)
	tk.WmProtocol(tk.App, "WM_DELETE_WINDOW", a.exitHandler)
	tk.WmGeometry(tk.App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a, nil
}

// Start builds the UI, loads the remembered person and blocks in the Tk loop.
func (a *app) Start() {
	c := a.container
	cfg := c.Config.Snapshot()
	theme.SetDark(cfg.DarkMode)
	c.RootView.Build(cfg.NPP, c.Handlers(a.exitHandler))
	c.Loop = presenter.NewLoop(c.History, c.Crop, c.Notice, a.scheduleUpdate)
	if cfg.Debug {
		debug.StartStatsLogger(a.ctx, 5*time.Second, a.logger, map[string]debug.Gauge{
			"fetch_cache": c.Fetcher.CacheLen,
			"history_len": func() int { return c.Store.History().Len() },
		})
	}
	if cfg.NPP != "" {
		c.History.Load(cfg.NPP)
	}
	a.scheduleUpdate()
	tk.App.Wait()
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		tk.TclAfterCancel(a.afterID)
	}
	a.cancel()
	tk.Destroy(tk.App)
}

func (a *app) scheduleUpdate() {
	// TclAfter keeps every widget update on Tk's event loop thread.
	a.afterID = tk.TclAfter(tick, func() { a.container.Loop.Tick() })
}
