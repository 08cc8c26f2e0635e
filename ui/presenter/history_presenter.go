package presenter

import (
	"context"
	"log/slog"

	"github.com/soocke/sigdesk-go/domain/signature"
	"github.com/soocke/sigdesk-go/ui/model"
)

// HistoryStore is the subset of the signature store driven by the history panel.
type HistoryStore interface {
	Load(ctx context.Context, npp string) signature.History
	Select(entry signature.Image) error
	SetActive(img signature.Image)
	Create(ctx context.Context, img signature.Image) error
	Delete(ctx context.Context, entry signature.Image) error
	History() signature.History
	Active() (signature.Image, bool)
}

// HistoryView renders the history list and the form's active signature.
type HistoryView interface {
	RenderHistory(entries []signature.Image, activeRef string)
	SetActiveSignature(img signature.Image, ok bool)
	SetHistoryBusy(busy bool)
}

// Notifier receives operator messages.
type Notifier interface{ Notify(msg string) }

type historyResult struct {
	op  string
	err error
}

// HistoryPresenter runs store operations off the Tk thread and applies their
// results to the view on Tick.
type HistoryPresenter struct {
	ctx     context.Context
	store   HistoryStore
	view    HistoryView
	busy    *model.BusyModel
	notices Notifier
	logger  *slog.Logger
	results chan historyResult
}

// NewHistoryPresenter wires the presenter. ctx bounds every store call.
func NewHistoryPresenter(ctx context.Context, store HistoryStore, view HistoryView, busy *model.BusyModel, notices Notifier, logger *slog.Logger) *HistoryPresenter {
	if busy == nil {
		busy = &model.BusyModel{}
	}
	return &HistoryPresenter{ctx: ctx, store: store, view: view, busy: busy, notices: notices, logger: logger, results: make(chan historyResult, 4)}
}

// Busy reports whether an operation is in flight.
func (p *HistoryPresenter) Busy() bool { return p != nil && p.busy.Busy() }

func (p *HistoryPresenter) run(op string, f func(ctx context.Context) error) {
	if !p.busy.TryStart() {
		p.notify("Please wait for the current signature operation to finish")
		return
	}
	if p.view != nil {
		p.view.SetHistoryBusy(true)
	}
	go func() {
		err := f(p.ctx)
		p.results <- historyResult{op: op, err: err}
	}()
}

// Load fetches the signatures of npp.
func (p *HistoryPresenter) Load(npp string) {
	if p == nil || p.store == nil {
		return
	}
	p.run("load", func(ctx context.Context) error {
		p.store.Load(ctx, npp)
		return nil
	})
}

// Select activates the entry at index i of the rendered history.
func (p *HistoryPresenter) Select(i int) {
	if p == nil || p.store == nil {
		return
	}
	h := p.store.History()
	if i < 0 || i >= len(h.Entries) {
		return
	}
	if err := p.store.Select(h.Entries[i]); err != nil {
		p.notify(err.Error())
	}
	p.refresh()
}

// Delete removes the entry at index i on the backend.
func (p *HistoryPresenter) Delete(i int) {
	if p == nil || p.store == nil {
		return
	}
	h := p.store.History()
	if i < 0 || i >= len(h.Entries) {
		return
	}
	entry := h.Entries[i]
	p.run("delete", func(ctx context.Context) error { return p.store.Delete(ctx, entry) })
}

// Create stores img for the loaded person. Without a person the image only
// becomes the form's active signature.
func (p *HistoryPresenter) Create(img signature.Image) {
	if p == nil || p.store == nil {
		return
	}
	if p.store.History().PersonID == "" {
		p.store.SetActive(img)
		p.refresh()
		return
	}
	p.run("create", func(ctx context.Context) error { return p.store.Create(ctx, img) })
}

// Tick drains finished operations. Call from the Tk thread.
func (p *HistoryPresenter) Tick() {
	if p == nil {
		return
	}
	for {
		select {
		case res := <-p.results:
			p.busy.Done()
			if res.err != nil {
				if p.logger != nil {
					p.logger.Warn("history operation failed", "op", res.op, "error", res.err)
				}
				p.notify(res.err.Error())
			}
			if p.view != nil {
				p.view.SetHistoryBusy(false)
			}
			p.refresh()
		default:
			return
		}
	}
}

func (p *HistoryPresenter) refresh() {
	if p.view == nil {
		return
	}
	active, ok := p.store.Active()
	ref := ""
	if ok {
		ref = active.SourceRef
	}
	p.view.RenderHistory(p.store.History().Entries, ref)
	p.view.SetActiveSignature(active, ok)
}

func (p *HistoryPresenter) notify(msg string) {
	if p.notices != nil {
		p.notices.Notify(msg)
	}
}
