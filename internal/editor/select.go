package editor

import (
	"cardboard/internal/cards"
	"cardboard/internal/container"
	"cardboard/internal/model"
)

func (s *Session) SelectMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.SelectMode()
}

func (s *Session) EnterSelectMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.EnterSelectMode()
}

func (s *Session) ExitSelectMode() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.ExitSelectMode()
}

func (s *Session) Toggle(cardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.Has(cardID) {
		s.sel.Toggle(cardID)
	}
}

// Click selects cardID; with shift held it selects the range from the last
// selected card in display order.
func (s *Session) Click(cardID string, shift bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.store.Has(cardID) {
		return
	}
	s.sel.ClickWithRange(cardID, shift, s.orderedIDsLocked())
}

func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.SelectAll(s.orderedIDsLocked())
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Clear()
}

func (s *Session) IsSelected(cardID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.IsSelected(cardID)
}

// Selected returns the selected card IDs in display order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.SelectedIn(s.orderedIDsLocked())
}

func (s *Session) orderedIDsLocked() []string {
	all := s.store.Cards()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	return ids
}

// DeleteSelected deletes every selected card as one undo step and clears the
// selection.
func (s *Session) DeleteSelected() (cards.Result, error) {
	ids := s.Selected()
	res, err := s.do(func() (cards.Result, error) { return s.store.DeleteMany(ids) })
	if err == nil {
		s.ClearSelection()
	}
	return res, err
}

// MoveSelected appends every selected card to targetID as one undo step.
func (s *Session) MoveSelected(targetID string) (cards.Result, error) {
	ids := s.Selected()
	res, err := s.do(func() (cards.Result, error) { return s.store.MoveMany(ids, targetID) })
	if err == nil {
		s.ClearSelection()
	}
	return res, err
}

func (s *Session) SetSelectedVisible(visible bool) (cards.Result, error) {
	ids := s.Selected()
	res, err := s.do(func() (cards.Result, error) { return s.store.SetVisibleMany(ids, visible) })
	if err == nil {
		s.ClearSelection()
	}
	return res, err
}

// BeginDrag pauses history so the whole drag becomes one undo step.
func (s *Session) BeginDrag(cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	c, ok := s.store.Get(cardID)
	if !ok {
		return cards.StaleReferenceError{Kind: "card", ID: cardID}
	}
	if s.drag != nil {
		s.endDragLocked()
	}
	s.drag = &dragState{cardID: c.ID, before: s.store.Snapshot(), rev: s.store.Revision()}
	s.hist.Pause()
	return nil
}

// DragOver moves the dragged card to a hover position. Rejected targets leave
// the card where it is.
func (s *Session) DragOver(targetID string, index int) (cards.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cards.Result{}, ErrClosed
	}
	if s.drag == nil {
		return cards.Result{}, cards.InvariantViolationError{Op: "drag", Reason: "no drag in progress"}
	}
	return s.store.Move(s.drag.cardID, targetID, index)
}

// EndDrag commits the drag as a single undo step.
func (s *Session) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endDragLocked()
}

func (s *Session) endDragLocked() {
	if s.drag == nil {
		return
	}
	s.drag = nil
	s.hist.Resume()
}

// CancelDrag puts the page back the way it was when the drag started,
// including any sibling keys a rebalance rewrote along the way.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return
	}
	d := *s.drag
	if s.store.Revision() != d.rev {
		s.store.Restore(d.before)
	}
	s.drag = nil
	s.hist.Cancel()
}

func (s *Session) Dragging() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return "", false
	}
	return s.drag.cardID, true
}

// Nest moves cardID to the end of dropdownID, or back to the canvas right
// after its dropdown when dropdownID is empty.
func (s *Session) Nest(cardID, dropdownID string) (cards.Result, error) {
	return s.do(func() (cards.Result, error) {
		if dropdownID != "" {
			return s.store.Move(cardID, dropdownID, -1)
		}
		c, ok := s.store.Get(cardID)
		if !ok {
			return cards.Result{}, cards.StaleReferenceError{Kind: "card", ID: cardID}
		}
		parent := c.Parent()
		if parent == "" {
			return s.store.Move(cardID, container.Canvas, indexIn(s.store.CardsIn(container.Canvas), cardID))
		}
		return s.store.Move(cardID, container.Canvas, indexIn(s.store.CardsIn(container.Canvas), parent)+1)
	})
}

func indexIn(list []model.Card, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}
