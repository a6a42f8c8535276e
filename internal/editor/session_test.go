package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"cardboard/internal/cards"
	"cardboard/internal/container"
	"cardboard/internal/model"
	"cardboard/internal/persist"
)

type memBackend struct {
	mu    sync.Mutex
	cards map[string]model.Card
	pages map[string]model.Page
}

func newMemBackend(seed ...model.Card) *memBackend {
	b := &memBackend{cards: map[string]model.Card{}, pages: map[string]model.Page{}}
	for _, c := range seed {
		b.cards[c.ID] = c
	}
	return b
}

func (b *memBackend) LoadCards(ctx context.Context, pageID string) ([]model.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []model.Card
	for _, c := range b.cards {
		if c.PageID == pageID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (b *memBackend) UpsertCards(ctx context.Context, pageID string, cs []model.Card) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range cs {
		c.PageID = pageID
		b.cards[c.ID] = c.Clone()
	}
	return nil
}

func (b *memBackend) DeleteCard(ctx context.Context, pageID, cardID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cards, cardID)
	return nil
}

func (b *memBackend) LoadPage(ctx context.Context, pageID string) (model.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.pages[pageID]; ok {
		return p, nil
	}
	return model.Page{ID: pageID, Title: "Untitled"}, nil
}

func (b *memBackend) SavePage(ctx context.Context, p model.Page) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages[p.ID] = p
	return nil
}

func (b *memBackend) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cards)
}

func openTest(t *testing.T, b *memBackend) *Session {
	t.Helper()
	s, err := Open(context.Background(), "page-1", Options{
		Backend:  b,
		Pages:    b,
		Debounce: time.Hour,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func ids(cs []model.Card) string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return strings.Join(out, ",")
}

func mustInsert(t *testing.T, s *Session, id string, typ model.CardType, containerID string) {
	t.Helper()
	if _, err := s.Insert(model.Card{ID: id, Type: typ, Visible: true}, containerID, -1); err != nil {
		t.Fatalf("Insert %s: %v", id, err)
	}
}

func TestOpen_StartsWithEmptyHistory(t *testing.T) {
	now := time.Now().UTC()
	b := newMemBackend(model.Card{ID: "card-a", PageID: "page-1", Type: model.CardTypeText, SortKey: "i", Content: model.TextContent{}, CreatedAt: now, UpdatedAt: now})
	s := openTest(t, b)

	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("fresh session should have no history")
	}
	if got := ids(s.CardsIn(container.Canvas)); got != "card-a" {
		t.Fatalf("unexpected cards: %s", got)
	}
	if s.Page().Title != "Untitled" {
		t.Fatalf("expected page loaded, got %+v", s.Page())
	}
}

func TestSession_UndoRedoInsert(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "card-a", model.CardTypeLink, "")
	mustInsert(t, s, "card-b", model.CardTypeLink, "")

	if !s.Undo() {
		t.Fatalf("expected undo")
	}
	if got := ids(s.CardsIn("")); got != "card-a" {
		t.Fatalf("after undo got %s", got)
	}
	if !s.Redo() {
		t.Fatalf("expected redo")
	}
	if got := ids(s.CardsIn("")); got != "card-a,card-b" {
		t.Fatalf("after redo got %s", got)
	}

	s.Undo()
	mustInsert(t, s, "card-c", model.CardTypeLink, "")
	if s.CanRedo() {
		t.Fatalf("new mutation must drop the redo stack")
	}
}

func TestSession_RejectedMutationRecordsNothing(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "dd-1", model.CardTypeDropdown, "")
	mustInsert(t, s, "dd-2", model.CardTypeDropdown, "")
	before := ids(s.Cards())

	_, err := s.Move("dd-2", "dd-1", 0)
	var inv cards.InvariantViolationError
	if !errors.As(err, &inv) {
		t.Fatalf("expected InvariantViolationError, got %v", err)
	}
	if ids(s.Cards()) != before {
		t.Fatalf("state changed on rejected move")
	}
	s.Undo()
	if got := ids(s.Cards()); got != "dd-1" {
		t.Fatalf("undo should revert the last insert only, got %s", got)
	}
}

func TestSession_SelectionFollowsDeletesAndUndo(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "card-a", model.CardTypeLink, "")
	mustInsert(t, s, "card-b", model.CardTypeLink, "")

	s.EnterSelectMode()
	s.Toggle("card-a")
	s.Toggle("card-b")
	if _, err := s.Delete("card-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := strings.Join(s.Selected(), ","); got != "card-b" {
		t.Fatalf("deleted card should leave selection, got %s", got)
	}

	s.Undo() // brings card-a back, unselected
	s.Undo() // removes card-b
	if got := s.Selected(); len(got) != 0 {
		t.Fatalf("selection must not reference missing cards, got %v", got)
	}
}

func TestSession_RangeClickAndBulkDelete(t *testing.T) {
	s := openTest(t, newMemBackend())
	for _, id := range []string{"card-a", "card-b", "card-c", "card-d"} {
		mustInsert(t, s, id, model.CardTypeText, "")
	}
	s.EnterSelectMode()
	s.Click("card-d", false)
	s.Click("card-b", true)
	if got := strings.Join(s.Selected(), ","); got != "card-b,card-c,card-d" {
		t.Fatalf("unexpected range: %s", got)
	}

	if _, err := s.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}
	if got := ids(s.Cards()); got != "card-a" {
		t.Fatalf("unexpected cards: %s", got)
	}
	if len(s.Selected()) != 0 {
		t.Fatalf("bulk delete should clear selection")
	}
	s.Undo()
	if got := ids(s.Cards()); got != "card-a,card-b,card-c,card-d" {
		t.Fatalf("bulk delete should undo as one step, got %s", got)
	}
}

func TestSession_DragIsOneUndoStep(t *testing.T) {
	s := openTest(t, newMemBackend())
	for _, id := range []string{"card-a", "card-b", "card-c"} {
		mustInsert(t, s, id, model.CardTypeText, "")
	}
	past, _ := s.hist.Depth()

	if err := s.BeginDrag("card-a"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	for _, idx := range []int{1, 2, 1, 2} {
		if _, err := s.DragOver("", idx); err != nil {
			t.Fatalf("DragOver: %v", err)
		}
	}
	if s.Undo() {
		t.Fatalf("undo must be a no-op during a drag")
	}
	s.EndDrag()

	if got := ids(s.Cards()); got != "card-b,card-c,card-a" {
		t.Fatalf("unexpected order after drag: %s", got)
	}
	if now, _ := s.hist.Depth(); now != past+1 {
		t.Fatalf("expected exactly one new step, got %d -> %d", past, now)
	}
	s.Undo()
	if got := ids(s.Cards()); got != "card-a,card-b,card-c" {
		t.Fatalf("undo should revert the whole drag, got %s", got)
	}
}

func TestSession_CancelDragRestoresPosition(t *testing.T) {
	s := openTest(t, newMemBackend())
	for _, id := range []string{"card-a", "card-b", "card-c"} {
		mustInsert(t, s, id, model.CardTypeText, "")
	}
	past, _ := s.hist.Depth()

	_ = s.BeginDrag("card-b")
	_, _ = s.DragOver("", 2)
	s.CancelDrag()

	if got := ids(s.Cards()); got != "card-a,card-b,card-c" {
		t.Fatalf("cancel should restore order, got %s", got)
	}
	if now, _ := s.hist.Depth(); now != past {
		t.Fatalf("cancelled drag must not add history")
	}
	if _, ok := s.Dragging(); ok {
		t.Fatalf("drag should be over")
	}
}

func TestSession_CancelDragRestoresRebalancedSiblings(t *testing.T) {
	now := time.Now().UTC()
	var seed []model.Card
	for _, id := range []string{"card-a", "card-b", "card-c"} {
		seed = append(seed, model.Card{ID: id, PageID: "page-1", Type: model.CardTypeText, Visible: true, SortKey: "i", Content: model.TextContent{}, CreatedAt: now, UpdatedAt: now})
	}
	s := openTest(t, newMemBackend(seed...))
	keys := func() map[string]string {
		out := map[string]string{}
		for _, c := range s.Cards() {
			out[c.ID] = c.SortKey
		}
		return out
	}
	before := keys()

	if err := s.BeginDrag("card-c"); err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}
	if _, err := s.DragOver("", 1); err != nil {
		t.Fatalf("DragOver: %v", err)
	}
	rewritten := 0
	for id, k := range keys() {
		if id != "card-c" && k != before[id] {
			rewritten++
		}
	}
	if rewritten == 0 {
		t.Fatalf("expected duplicate keys to force a sibling rebalance")
	}
	s.CancelDrag()

	after := keys()
	for id, k := range before {
		if after[id] != k {
			t.Fatalf("cancel should restore %s to %q, got %q", id, k, after[id])
		}
	}
	if s.CanUndo() {
		t.Fatalf("cancelled drag must not add history")
	}
}

func TestSession_ClosedRejectsUndoAndDrag(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "card-a", model.CardTypeText, "")
	mustInsert(t, s, "card-b", model.CardTypeText, "")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if s.Undo() {
		t.Fatalf("undo after close should be a no-op")
	}
	if s.Redo() {
		t.Fatalf("redo after close should be a no-op")
	}
	if got := ids(s.Cards()); got != "card-a,card-b" {
		t.Fatalf("closed session changed: %s", got)
	}
	if err := s.BeginDrag("card-a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from BeginDrag, got %v", err)
	}
	if _, err := s.DragOver("", 1); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from DragOver, got %v", err)
	}
}

func TestSession_NestAndUnnest(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "card-a", model.CardTypeText, "")
	mustInsert(t, s, "dd-1", model.CardTypeDropdown, "")
	mustInsert(t, s, "card-b", model.CardTypeText, "")

	if _, err := s.Nest("card-a", "dd-1"); err != nil {
		t.Fatalf("Nest: %v", err)
	}
	if got := ids(s.CardsIn("dd-1")); got != "card-a" {
		t.Fatalf("expected card-a in dropdown, got %s", got)
	}
	if _, err := s.Nest("card-a", ""); err != nil {
		t.Fatalf("unnest: %v", err)
	}
	if got := ids(s.CardsIn("")); got != "dd-1,card-a,card-b" {
		t.Fatalf("unnest should land right after the dropdown, got %s", got)
	}
}

func TestSession_SetPageIsUndoable(t *testing.T) {
	b := newMemBackend()
	s := openTest(t, b)
	if err := s.SetPage(model.PagePatch{Title: model.StringPtr("Links")}); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	if s.Page().Title != "Links" {
		t.Fatalf("title not set")
	}
	s.Undo()
	if s.Page().Title != "Untitled" {
		t.Fatalf("undo should restore title, got %q", s.Page().Title)
	}
	s.Redo()
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if b.pages["page-1"].Title != "Links" {
		t.Fatalf("page not saved: %+v", b.pages)
	}
}

func TestSession_DebouncedWriteReachesBackend(t *testing.T) {
	b := newMemBackend()
	s, err := Open(context.Background(), "page-1", Options{
		Backend:  b,
		Debounce: 20 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close(context.Background())

	mustInsert(t, s, "card-a", model.CardTypeLink, "")
	if st, _ := s.Status(); st != persist.StatusPending && st != persist.StatusSaving && st != persist.StatusSaved {
		t.Fatalf("unexpected status %q", st)
	}
	deadline := time.Now().Add(2 * time.Second)
	for b.len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("debounced write never happened")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_CloseFlushes(t *testing.T) {
	b := newMemBackend()
	s, err := Open(context.Background(), "page-1", Options{Backend: b, Debounce: time.Hour, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustInsert(t, s, "card-a", model.CardTypeLink, "")
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if b.len() != 1 {
		t.Fatalf("close should flush, backend has %d", b.len())
	}
	if _, err := s.Add(model.CardTypeText, ""); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if st, _ := s.Status(); st != persist.StatusSaved {
		t.Fatalf("expected saved, got %q", st)
	}
}

func TestSession_UnloadUsesBeacon(t *testing.T) {
	var got []persist.Payload
	b := newMemBackend()
	s, err := Open(context.Background(), "page-1", Options{
		Backend:  b,
		Beacon:   persist.BeaconFunc(func(p persist.Payload) { got = append(got, p) }),
		Debounce: time.Hour,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	mustInsert(t, s, "card-a", model.CardTypeLink, "")
	s.Unload()
	if len(got) != 1 || len(got[0].Cards) != 1 {
		t.Fatalf("expected one beacon with one card, got %+v", got)
	}
	if b.len() != 0 {
		t.Fatalf("unload must not write through the backend")
	}
}

func TestUndoPreview_ShowsWhatComesBack(t *testing.T) {
	s := openTest(t, newMemBackend())
	if s.UndoPreview() != "" {
		t.Fatalf("no preview without history")
	}
	if _, err := s.Insert(model.Card{ID: "card-a", Type: model.CardTypeText, Visible: true, Content: model.TextContent{Markdown: "hello"}}, "", -1); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := s.Delete("card-a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := s.UndoPreview(); !strings.Contains(got, "+ - text: hello") {
		t.Fatalf("unexpected preview: %q", got)
	}
}

func TestOutline_IndentsNestedCards(t *testing.T) {
	s := openTest(t, newMemBackend())
	mustInsert(t, s, "dd-1", model.CardTypeDropdown, "")
	mustInsert(t, s, "card-a", model.CardTypeLink, "dd-1")
	want := "- dropdown\n  - link\n"
	if got := Outline(s.Cards()); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
