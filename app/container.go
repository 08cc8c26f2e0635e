package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soocke/sigdesk-go/capture"
	"github.com/soocke/sigdesk-go/config"
	"github.com/soocke/sigdesk-go/domain/backend"
	"github.com/soocke/sigdesk-go/domain/crop"
	"github.com/soocke/sigdesk-go/domain/fetch"
	"github.com/soocke/sigdesk-go/domain/signature"
	"github.com/soocke/sigdesk-go/domain/transparency"
	"github.com/soocke/sigdesk-go/ui/model"
	"github.com/soocke/sigdesk-go/ui/presenter"
	"github.com/soocke/sigdesk-go/ui/view"
)

// Container assembles services, models, views and presenters.
type Container struct {
	Config  *config.Store
	Logger  *slog.Logger
	Notices *model.NoticeModel
	Busy    *model.BusyModel
	Form    *model.FormModel

	Fetcher *fetch.Fetcher
	Backend *backend.Client
	Store   *signature.Store
	Screen  *capture.Screen

	RootView   *view.RootView
	CropDialog *view.CropDialog
	Selection  view.SelectionOverlay

	// Presenters
	History *presenter.HistoryPresenter
	Crop    *presenter.CropPresenter
	Capture *presenter.CapturePresenter
	Notice  *presenter.NoticePresenter
	Loop    *presenter.Loop
}

// BuildContainer constructs all components. No Tk widgets are created here;
// RootView.Build runs once the window exists.
func BuildContainer(ctx context.Context, cfgs *config.Store, logger *slog.Logger) (*Container, error) {
	cfg := cfgs.Snapshot()
	c := &Container{Config: cfgs, Logger: logger}
	c.Notices = &model.NoticeModel{}
	c.Busy = &model.BusyModel{}

	var err error
	c.Fetcher, err = fetch.New(fetch.Options{
		RelayURL:  cfg.RelayURL,
		BaseURL:   cfg.StorageBaseURL,
		Token:     cfg.Token,
		MaxBytes:  cfg.MaxImageBytes,
		CacheSize: cfg.CacheSize,
		Notifier:  c.Notices,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher: %w", err)
	}
	c.Backend, err = backend.New(backend.Options{APIURL: cfg.APIURL, Token: cfg.Token, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("backend client: %w", err)
	}
	c.Store = signature.NewStore(signature.Options{
		Backend:     c.Backend,
		Resolver:    c.Fetcher,
		Notifier:    c.Notices,
		Settings:    cfg.Transparency,
		AutoCrop:    cfg.AutoCrop,
		Concurrency: cfg.FetchConcurrency,
		Logger:      logger,
	})
	cfgs.OnTransparencyChange(func(ts transparency.Settings, autoCrop bool) {
		c.Store.SetSettings(ts, autoCrop)
		// entries keyed by the old settings are unreachable now
		c.Fetcher.Purge()
	})
	c.Form = model.NewFormModel(c.Store)
	c.Form.SetNPP(cfg.NPP)
	c.Screen = capture.NewScreen(logger)

	// Views
	c.RootView = view.NewRootView(logger)
	c.Selection = view.NewSelectionOverlay(cfgs, logger)
	c.CropDialog = view.NewCropDialog(view.CropHandlers{
		Adjust:      func(g crop.Geometry) { c.Crop.Adjust(g) },
		Geometry:    func() crop.Geometry { return c.Crop.Geometry() },
		SetSettings: func(ts transparency.Settings) { c.Crop.SetSettings(ts) },
		Apply:       func() { c.Crop.Apply() },
		Cancel:      func() { c.Crop.Cancel() },
	}, logger)

	// Presenters
	c.History = presenter.NewHistoryPresenter(ctx, c.Store, c.RootView, c.Busy, c.Notices, logger)
	c.Crop = presenter.NewCropPresenter(c.CropDialog, cfgs, c.Notices, logger, func(out crop.Outcome) {
		c.History.Create(signature.FromPNG(out.PNG))
	})
	c.Capture = presenter.NewCapturePresenter(c.Screen, c.Selection.ActiveRect, c.Crop, c.Notices)
	c.Notice = presenter.NewNoticePresenter(c.Notices, c.RootView)
	return c, nil
}

// Handlers returns the root form callbacks. exit closes the application.
func (c *Container) Handlers(exit func()) view.RootHandlers {
	return view.RootHandlers{
		Load: func(npp string) {
			c.Form.SetNPP(npp)
			c.Config.SetNPP(npp)
			if npp == "" {
				c.Notices.Notify(model.ErrNoPerson.Error())
				return
			}
			c.History.Load(npp)
		},
		OpenFile:     c.Crop.OpenFile,
		Capture:      c.Capture.Capture,
		SelectRegion: c.Selection.OpenOrFocus,
		Submit:       c.submit,
		Exit:         exit,
		Use:          c.History.Select,
		Delete:       c.History.Delete,
	}
}

func (c *Container) submit() {
	c.Form.SetNPP(c.RootView.NPP())
	sub, err := c.Form.Submit()
	if err != nil {
		c.Notices.Notify(err.Error())
		return
	}
	if c.Logger != nil {
		c.Logger.Info("signature.submit", "npp", sub.NPP, "file", sub.File.Name, "bytes", len(sub.File.Data))
	}
	c.Notices.Notify(fmt.Sprintf("Signature %s attached for NPP %s", sub.File.Name, sub.NPP))
}
