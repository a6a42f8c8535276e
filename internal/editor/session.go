package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardboard/internal/cards"
	"cardboard/internal/container"
	"cardboard/internal/history"
	"cardboard/internal/model"
	"cardboard/internal/persist"
	"cardboard/internal/selection"
)

// PageStore loads and saves page-level state. It is optional; without one the
// title and description live only in memory and history.
type PageStore interface {
	LoadPage(ctx context.Context, pageID string) (model.Page, error)
	SavePage(ctx context.Context, p model.Page) error
}

type Options struct {
	Backend      persist.Backend
	Beacon       persist.Beacon
	Pages        PageStore
	Debounce     time.Duration
	HistoryLimit int
	Logger       *slog.Logger
	Now          func() time.Time
	NewID        func() string
}

// Session is one open editor on one page. It owns the card store, the undo
// history, the selection, and the persistence coordinator, and routes every
// mutation through them in that order. Safe for concurrent use; the
// coordinator's background writes read state through the same lock.
type Session struct {
	id     string
	logger *slog.Logger

	mu        sync.Mutex
	store     *cards.Store
	hist      *history.Manager
	sel       *selection.Manager
	coord     *persist.Coordinator
	pages     PageStore
	page      model.Page
	pageRev   uint64
	pageDirty bool
	drag      *dragState
	closed    bool
}

type dragState struct {
	cardID string
	before []model.Card
	rev    uint64
}

// Open loads pageID from opts.Backend and returns a session with empty
// history and selection.
func Open(ctx context.Context, pageID string, opts Options) (*Session, error) {
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return nil, errors.New("editor: missing page id")
	}
	if opts.Backend == nil {
		return nil, errors.New("editor: missing backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loaded, err := opts.Backend.LoadCards(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("loading cards for %s: %w", pageID, err)
	}
	page := model.Page{ID: pageID}
	if opts.Pages != nil {
		p, err := opts.Pages.LoadPage(ctx, pageID)
		if err != nil {
			return nil, fmt.Errorf("loading page %s: %w", pageID, err)
		}
		page = p
	}

	s := &Session{
		id:    uuid.NewString(),
		pages: opts.Pages,
		page:  page,
		sel:   selection.New(),
	}
	s.logger = logger.With("component", "editor", "page", pageID, "session", s.id)

	var storeOpts []cards.Option
	if opts.Now != nil {
		storeOpts = append(storeOpts, cards.WithClock(opts.Now))
	}
	if opts.NewID != nil {
		storeOpts = append(storeOpts, cards.WithIDs(opts.NewID))
	}
	s.store = cards.New(pageID, storeOpts...)
	s.store.Load(loaded)

	var histOpts []history.Option
	if opts.HistoryLimit > 0 {
		histOpts = append(histOpts, history.WithLimit(opts.HistoryLimit))
	}
	s.hist = history.New(source{s}, histOpts...)

	s.coord = persist.New(persist.Options{
		PageID:   pageID,
		Backend:  opts.Backend,
		Beacon:   opts.Beacon,
		Snapshot: s.snapshot,
		Debounce: opts.Debounce,
		Logger:   logger,
		Now:      opts.Now,
	})
	s.coord.SetBaseline(loaded)
	s.store.Subscribe(s.onChange)

	for _, p := range container.Validate(loaded) {
		s.logger.Warn("loaded page violates ordering invariants", "code", p.Code, "card", p.CardID, "container", p.Container, "msg", p.Message)
	}
	s.logger.Debug("opened", "cards", len(loaded))
	return s, nil
}

// source exposes the session state to the history manager. Its methods run
// with s.mu held.
type source struct{ s *Session }

func (src source) Snapshot() history.Snapshot {
	return history.Snapshot{Cards: src.s.store.Snapshot(), Page: src.s.page}
}

func (src source) Restore(snap history.Snapshot) {
	if snap.Page != src.s.page {
		src.s.page = snap.Page
		src.s.pageRev++
		src.s.pageDirty = true
	}
	src.s.store.Restore(snap.Cards)
}

func (src source) Revision() uint64 { return src.s.store.Revision() + src.s.pageRev }

func (s *Session) snapshot() []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

func (s *Session) onChange(ch cards.Change) {
	switch ch.Op {
	case cards.OpDelete:
		s.sel.Remove(ch.Removed...)
	case cards.OpRestore:
		s.sel.Retain(s.store.Has)
	}
	s.coord.Notify()
}

func (s *Session) ID() string     { return s.id }
func (s *Session) PageID() string { return s.store.PageID() }

func (s *Session) Page() model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// do runs one undoable mutation.
func (s *Session) do(fn func() (cards.Result, error)) (cards.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cards.Result{}, ErrClosed
	}
	var res cards.Result
	err := s.hist.Do(func() error {
		var err error
		res, err = fn()
		return err
	})
	if err != nil {
		s.logger.Debug("mutation rejected", "err", err)
	}
	return res, err
}

var ErrClosed = errors.New("editor: session closed")

func (s *Session) Insert(card model.Card, containerID string, index int) (cards.Result, error) {
	return s.do(func() (cards.Result, error) { return s.store.Insert(card, containerID, index) })
}

// Add appends an empty card of type t to containerID.
func (s *Session) Add(t model.CardType, containerID string) (cards.Result, error) {
	return s.Insert(model.Card{Type: t, Visible: true, Size: model.CardSizeMedium}, containerID, -1)
}

func (s *Session) Move(cardID, targetID string, newIndex int) (cards.Result, error) {
	return s.do(func() (cards.Result, error) { return s.store.Move(cardID, targetID, newIndex) })
}

func (s *Session) Delete(cardID string) (cards.Result, error) {
	return s.do(func() (cards.Result, error) { return s.store.Delete(cardID) })
}

func (s *Session) Update(cardID string, patch model.CardPatch) (cards.Result, error) {
	return s.do(func() (cards.Result, error) { return s.store.Update(cardID, patch) })
}

func (s *Session) Duplicate(cardID string) (cards.Result, error) {
	return s.do(func() (cards.Result, error) { return s.store.Duplicate(cardID) })
}

// SetPage edits the page title or description as one undoable step.
func (s *Session) SetPage(patch model.PagePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.hist.Do(func() error {
		next := s.page
		if patch.Title != nil {
			next.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			next.Description = strings.TrimSpace(*patch.Description)
		}
		if next == s.page {
			return nil
		}
		next.UpdatedAt = time.Now().UTC()
		s.page = next
		s.pageRev++
		s.pageDirty = true
		return nil
	})
}

// Undo and Redo report whether anything changed. Both are no-ops during a
// drag and after Close.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.hist.Undo()
}

func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.hist.Redo()
}

func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

func (s *Session) Cards() []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Cards()
}

func (s *Session) CardsIn(containerID string) []model.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CardsIn(containerID)
}

func (s *Session) Containers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Containers()
}

func (s *Session) Get(cardID string) (model.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(cardID)
}

func (s *Session) CanAcceptDrop(cardID, targetID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.CanAcceptDrop(cardID, targetID)
}

// Status reports the save indicator state. It does not take the session lock
// so it is safe to call from an OnStatus callback.
func (s *Session) Status() (persist.Status, error) { return s.coord.Status() }

// OnStatus registers fn for save status changes. fn may run while a mutation
// holds the session lock and must not call mutating session methods.
func (s *Session) OnStatus(fn func(persist.Status, error)) { s.coord.OnStatus(fn) }

// Flush writes pending card and page changes now.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.savePage(ctx); err != nil {
		return err
	}
	return s.coord.Flush(ctx)
}

func (s *Session) savePage(ctx context.Context) error {
	s.mu.Lock()
	if !s.pageDirty || s.pages == nil {
		s.mu.Unlock()
		return nil
	}
	p := s.page
	s.mu.Unlock()

	if err := s.pages.SavePage(ctx, p); err != nil {
		return fmt.Errorf("saving page %s: %w", p.ID, err)
	}
	s.mu.Lock()
	if s.page == p {
		s.pageDirty = false
	}
	s.mu.Unlock()
	return nil
}

// Unload hands the current state to the beacon without waiting for the
// backend. Use it when the process is about to exit.
func (s *Session) Unload() {
	s.mu.Lock()
	if s.drag != nil {
		s.endDragLocked()
	}
	s.mu.Unlock()
	s.coord.FlushOnUnload()
}

// Close ends a drag in progress, flushes, and stops background writes. The
// selection is cleared.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.drag != nil {
		s.endDragLocked()
	}
	s.sel.ExitSelectMode()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)
	s.coord.Close()
	if err != nil {
		s.logger.Warn("close flush failed", "err", err)
	}
	return err
}
