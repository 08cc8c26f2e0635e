package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/soocke/sigdesk-go/domain/backend"
	"github.com/soocke/sigdesk-go/domain/fetch"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

var (
	// ErrBusy is returned when a create or delete is already in flight.
	ErrBusy = errors.New("signature: another operation is in progress")
	// ErrNoPerson is returned for operations that need a loaded person.
	ErrNoPerson = errors.New("signature: no person loaded")
	// ErrUnknownEntry is returned when selecting an entry outside the history.
	ErrUnknownEntry = errors.New("signature: entry not in history")
)

// Backend is the subset of the backend client the store calls.
type Backend interface {
	List(ctx context.Context, npp string) (backend.Listing, error)
	Delete(ctx context.Context, npp, path string) error
	Upload(ctx context.Context, npp string, file backend.FilePart) (string, error)
}

// Resolver turns a locator into a processed signature.
type Resolver interface {
	Normalize(locator string) string
	Processed(ctx context.Context, locator string, s transparency.Settings, autoCrop bool) fetch.Result
}

// Options configures a Store.
type Options struct {
	Backend     Backend
	Resolver    Resolver
	Notifier    fetch.Notifier
	Settings    transparency.Settings
	AutoCrop    bool
	Concurrency int
	Logger      *slog.Logger
}

// Store keeps the signature history of the current person and the active
// signature of the form.
type Store struct {
	backend  Backend
	resolver Resolver
	notifier fetch.Notifier
	log      *slog.Logger
	workers  int

	mu       sync.Mutex
	settings transparency.Settings
	autoCrop bool
	history  History
	active   *Image
	busy     bool
}

// NewStore returns an empty store.
func NewStore(opts Options) *Store {
	n := opts.Notifier
	if n == nil {
		n = fetch.LogNotifier{Log: opts.Logger}
	}
	w := opts.Concurrency
	if w <= 0 {
		w = 4
	}
	return &Store{
		backend:  opts.Backend,
		resolver: opts.Resolver,
		notifier: n,
		log:      opts.Logger,
		workers:  w,
		settings: opts.Settings,
		autoCrop: opts.AutoCrop,
	}
}

// SetSettings replaces the settings used for subsequent loads.
func (s *Store) SetSettings(ts transparency.Settings, autoCrop bool) {
	s.mu.Lock()
	s.settings, s.autoCrop = ts, autoCrop
	s.mu.Unlock()
}

// History returns a copy of the current history.
func (s *Store) History() History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return History{PersonID: s.history.PersonID, Entries: append([]Image(nil), s.history.Entries...)}
}

// Active returns the active signature, if any.
func (s *Store) Active() (Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Image{}, false
	}
	return *s.active, true
}

// Busy reports whether a mutating operation is in flight.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Select makes entry the active signature. entry must belong to the history.
func (s *Store) Select(entry Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.history.Find(entry.SourceRef)
	if !ok {
		return ErrUnknownEntry
	}
	s.active = &e
	return nil
}

// SetActive makes img the active signature without touching the history, as
// when a freshly cropped signature is bound to the form before it is stored.
func (s *Store) SetActive(img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img.IsZero() {
		s.active = nil
		return
	}
	s.active = &img
}

// Load replaces the history with the signatures stored for personID and picks
// the default active signature: the primary entry, else the first entry that
// loaded, else none. Backend failures yield an empty history and a notice.
func (s *Store) Load(ctx context.Context, personID string) History {
	s.mu.Lock()
	if s.history.PersonID != personID {
		s.history = History{PersonID: personID}
		s.active = nil
	}
	s.mu.Unlock()

	h, primary := s.fetchHistory(ctx, personID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.PersonID != personID {
		// person switched while loading
		return h
	}
	s.history = h
	s.active = defaultActive(h, primary)
	return History{PersonID: h.PersonID, Entries: append([]Image(nil), h.Entries...)}
}

// reload refreshes the history of person unless another person was loaded in
// the meantime.
func (s *Store) reload(ctx context.Context, person string) {
	h, primary := s.fetchHistory(ctx, person)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.PersonID != person {
		return
	}
	s.history = h
	s.active = defaultActive(h, primary)
}

// Create uploads img for the loaded person and appends it to the history. When
// the backend does not return the new locator the history is reloaded.
func (s *Store) Create(ctx context.Context, img Image) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.releaseBusy()

	person := s.History().PersonID
	if person == "" {
		return ErrNoPerson
	}
	part, err := img.FilePart()
	if err != nil {
		return &backend.OperatorError{Op: "create", Err: err}
	}
	loc, err := s.backend.Upload(ctx, person, part)
	if err != nil {
		s.logOp("create", person, err)
		return err
	}
	if loc == "" {
		s.reload(ctx, person)
		return nil
	}
	entry := Image{SourceRef: s.resolver.Normalize(loc), Original: loc, ProcessedData: img.ProcessedData}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.PersonID != person {
		// another person was loaded during the upload
		return nil
	}
	if _, dup := s.history.Find(entry.SourceRef); !dup {
		s.history.Entries = append(s.history.Entries, entry)
	}
	s.active = &entry
	return nil
}

// Delete removes entry on the backend, keyed by its original locator, then
// reloads the history. Nothing changes locally unless the backend confirms.
func (s *Store) Delete(ctx context.Context, entry Image) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.releaseBusy()

	person := s.History().PersonID
	if person == "" {
		return ErrNoPerson
	}
	if !entry.Stored() {
		return &backend.OperatorError{Op: "delete", Err: fmt.Errorf("%w: not stored", ErrUnknownEntry)}
	}
	if err := s.backend.Delete(ctx, person, entry.Original); err != nil {
		s.logOp("delete", person, err)
		return err
	}
	prevActive, hadActive := s.Active()
	h, _ := s.fetchHistory(ctx, person)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.history.PersonID != person {
		return nil
	}
	s.history = h
	switch {
	case !hadActive:
	case prevActive.SourceRef == entry.SourceRef:
		s.active = nil
	default:
		if e, ok := h.Find(prevActive.SourceRef); ok {
			s.active = &e
		} else if prevActive.Stored() {
			s.active = nil
		}
	}
	return nil
}

type loaded struct {
	index int
	img   Image
}

// fetchHistory lists, normalizes, de-duplicates and resolves all signatures of
// personID concurrently. The result is sorted primary first, then by listing
// order, regardless of completion order.
func (s *Store) fetchHistory(ctx context.Context, personID string) (History, string) {
	h := History{PersonID: personID}
	if personID == "" {
		return h, ""
	}
	listing, err := s.backend.List(ctx, personID)
	if err != nil {
		if s.log != nil {
			s.log.Warn("signature.list", "npp", personID, "error", err)
		}
		if backend.IsSchemaError(err) {
			s.notifier.Notify("Signature list has an unexpected format")
		} else {
			s.notifier.Notify("Signature list could not be loaded")
		}
		return h, ""
	}

	originals := map[string]string{}
	var order []string
	add := func(loc string) {
		n := s.resolver.Normalize(loc)
		if n == "" {
			return
		}
		if _, seen := originals[n]; seen {
			return
		}
		originals[n] = loc
		order = append(order, n)
	}
	add(listing.Primary)
	for _, l := range listing.History {
		add(l)
	}
	primary := s.resolver.Normalize(listing.Primary)
	if len(order) == 0 {
		return h, primary
	}

	s.mu.Lock()
	settings, autoCrop := s.settings, s.autoCrop
	s.mu.Unlock()

	p := pool.NewWithResults[loaded]().WithMaxGoroutines(s.workers)
	for i, loc := range order {
		p.Go(func() loaded {
			res := s.resolver.Processed(ctx, loc, settings, autoCrop)
			return loaded{index: i, img: Image{
				SourceRef:     loc,
				Original:      originals[loc],
				ProcessedData: res.Data,
				Fallback:      res.Fallback,
			}}
		})
	}
	results := p.Wait()
	sort.Slice(results, func(a, b int) bool {
		pa, pb := results[a].img.SourceRef == primary, results[b].img.SourceRef == primary
		if pa != pb {
			return pa
		}
		return results[a].index < results[b].index
	})
	h.Entries = make([]Image, 0, len(results))
	for _, r := range results {
		h.Entries = append(h.Entries, r.img)
	}
	if s.log != nil {
		s.log.Info("signature.history", "npp", personID, "entries", len(h.Entries))
	}
	return h, primary
}

func defaultActive(h History, primary string) *Image {
	if primary != "" {
		if e, ok := h.Find(primary); ok && !e.Fallback {
			return &e
		}
	}
	for _, e := range h.Entries {
		if !e.Fallback {
			return &e
		}
	}
	return nil
}

func (s *Store) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Store) releaseBusy() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Store) logOp(op, person string, err error) {
	if s.log != nil {
		s.log.Error("signature."+op, "npp", person, "error", err)
	}
}
