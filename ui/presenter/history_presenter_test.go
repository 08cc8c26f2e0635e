package presenter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/soocke/sigdesk-go/domain/signature"
	"github.com/soocke/sigdesk-go/ui/model"
)

type mockStore struct {
	mu        sync.Mutex
	history   signature.History
	active    *signature.Image
	loadCalls int
	deleteErr error
	created   []signature.Image
	gate      chan struct{}
}

func (s *mockStore) Load(ctx context.Context, npp string) signature.History {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadCalls++
	s.history = signature.History{PersonID: npp, Entries: []signature.Image{
		{SourceRef: "https://cdn/a.png", Original: "a.png", ProcessedData: "data:a"},
		{SourceRef: "https://cdn/b.png", Original: "b.png", ProcessedData: "data:b"},
	}}
	e := s.history.Entries[0]
	s.active = &e
	return s.history
}

func (s *mockStore) Select(entry signature.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.history.Find(entry.SourceRef); !ok {
		return signature.ErrUnknownEntry
	}
	s.active = &entry
	return nil
}

func (s *mockStore) SetActive(img signature.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &img
}

func (s *mockStore) Create(ctx context.Context, img signature.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, img)
	return nil
}

func (s *mockStore) Delete(ctx context.Context, entry signature.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteErr
}

func (s *mockStore) History() signature.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history
}

func (s *mockStore) Active() (signature.Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return signature.Image{}, false
	}
	return *s.active, true
}

type mockHistoryView struct {
	rendered  int
	entries   []signature.Image
	activeRef string
	busy      []bool
	activeOK  bool
}

func (v *mockHistoryView) RenderHistory(entries []signature.Image, activeRef string) {
	v.rendered++
	v.entries = entries
	v.activeRef = activeRef
}
func (v *mockHistoryView) SetActiveSignature(img signature.Image, ok bool) { v.activeOK = ok }
func (v *mockHistoryView) SetHistoryBusy(b bool)                        { v.busy = append(v.busy, b) }

// tickUntil drives tick until cond holds or the deadline passes.
func tickUntil(t *testing.T, tick func(), cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		tick()
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}

func TestHistoryPresenter_LoadRendersOnTick(t *testing.T) {
	store := &mockStore{}
	view := &mockHistoryView{}
	p := NewHistoryPresenter(context.Background(), store, view, &model.BusyModel{}, &mockNotices{}, nil)
	p.Load("42")
	if len(view.busy) != 1 || !view.busy[0] {
		t.Fatalf("view should be marked busy immediately")
	}
	tickUntil(t, p.Tick, func() bool { return view.rendered > 0 })
	if len(view.entries) != 2 || view.activeRef != "https://cdn/a.png" || !view.activeOK {
		t.Fatalf("unexpected render: %+v", view)
	}
	if p.Busy() || view.busy[len(view.busy)-1] {
		t.Fatalf("busy not cleared after load")
	}
}

func TestHistoryPresenter_RejectsConcurrentOps(t *testing.T) {
	store := &mockStore{gate: make(chan struct{})}
	view := &mockHistoryView{}
	n := &mockNotices{}
	p := NewHistoryPresenter(context.Background(), store, view, &model.BusyModel{}, n, nil)
	p.Load("1")
	p.Load("1")
	if len(n.msgs) != 1 {
		t.Fatalf("second op should be rejected with a notice, got %v", n.msgs)
	}
	close(store.gate)
	tickUntil(t, p.Tick, func() bool { return !p.Busy() })
	if store.loadCalls != 1 {
		t.Fatalf("expected one load, got %d", store.loadCalls)
	}
}

func TestHistoryPresenter_SelectAndDeleteError(t *testing.T) {
	store := &mockStore{}
	view := &mockHistoryView{}
	n := &mockNotices{}
	p := NewHistoryPresenter(context.Background(), store, view, nil, n, nil)
	p.Load("1")
	tickUntil(t, p.Tick, func() bool { return view.rendered > 0 })

	p.Select(1)
	if view.activeRef != "https://cdn/b.png" {
		t.Fatalf("select not rendered, active=%q", view.activeRef)
	}
	store.deleteErr = errors.New("Gagal menghapus")
	p.Delete(1)
	tickUntil(t, p.Tick, func() bool { return !p.Busy() })
	if len(n.msgs) != 1 || n.msgs[0] != "Gagal menghapus" {
		t.Fatalf("operator error not surfaced verbatim: %v", n.msgs)
	}
	p.Select(9)
	p.Delete(-1)
}

func TestHistoryPresenter_CreateWithoutPersonOnlyActivates(t *testing.T) {
	store := &mockStore{}
	view := &mockHistoryView{}
	p := NewHistoryPresenter(context.Background(), store, view, nil, nil, nil)
	img := signature.FromPNG([]byte{1})
	p.Create(img)
	if len(store.created) != 0 {
		t.Fatalf("nothing should be uploaded without a person")
	}
	if act, ok := store.Active(); !ok || act.ProcessedData != img.ProcessedData {
		t.Fatalf("image not activated")
	}
}
