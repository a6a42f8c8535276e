package cards

import (
	"fmt"

	"cardboard/internal/container"
	"cardboard/internal/model"
)

// DeleteMany deletes ids as one atomic mutation. Any unknown ID rejects the
// whole call.
func (s *Store) DeleteMany(ids []string) (Result, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return s.result(container.Canvas, ""), nil
	}
	for _, id := range ids {
		if !s.Has(id) {
			return Result{}, StaleReferenceError{Kind: "card", ID: id}
		}
	}
	work := s.working()
	var touched []string
	for _, id := range ids {
		_, t, err := s.deleteIn(&work, id)
		if err != nil {
			return Result{}, err
		}
		for _, x := range t {
			touched = appendUnique(touched, x)
		}
	}
	removed := map[string]bool{}
	for _, id := range ids {
		removed[id] = true
	}
	live := touched[:0]
	for _, id := range touched {
		if !removed[id] {
			live = append(live, id)
		}
	}
	ch := Change{Op: OpDelete, Container: container.Canvas, Touched: live, Removed: ids}
	return s.commit(work, ch, Result{Container: container.Canvas}), nil
}

// MoveMany appends ids to targetID in their current display order.
func (s *Store) MoveMany(ids []string, targetID string) (Result, error) {
	ids = dedupe(ids)
	targetID = container.Normalize(targetID)
	if !container.Exists(targetID, s.cards) {
		return Result{}, StaleReferenceError{Kind: "container", ID: targetID}
	}
	want := map[string]bool{}
	for _, id := range ids {
		if !s.Has(id) {
			return Result{}, StaleReferenceError{Kind: "card", ID: id}
		}
		if !container.CanAcceptDrop(id, targetID, s.cards) {
			return Result{}, InvariantViolationError{Op: "move", CardID: id, Reason: "dropdowns cannot be nested"}
		}
		want[id] = true
	}
	if len(ids) == 0 {
		return s.result(targetID, ""), nil
	}

	work := s.working()
	now := s.now()
	var touched []string
	for _, c := range s.Cards() {
		if !want[c.ID] {
			continue
		}
		i := indexOf(work, c.ID)
		work[i].ParentID = parentPtr(targetID)
		work[i].UpdatedAt = now
		changed, err := place(work, c.ID, targetID, -1)
		if err != nil {
			return Result{}, fmt.Errorf("move %s: %w", c.ID, err)
		}
		touched = appendUnique(touched, c.ID)
		for _, id := range changed {
			touched = appendUnique(touched, id)
		}
	}
	ch := Change{Op: OpMove, Container: targetID, Touched: touched}
	return s.commit(work, ch, Result{Container: targetID}), nil
}

// SetVisibleMany sets the visibility flag on every card in ids.
func (s *Store) SetVisibleMany(ids []string, visible bool) (Result, error) {
	ids = dedupe(ids)
	for _, id := range ids {
		if !s.Has(id) {
			return Result{}, StaleReferenceError{Kind: "card", ID: id}
		}
	}
	if len(ids) == 0 {
		return s.result(container.Canvas, ""), nil
	}
	work := s.working()
	now := s.now()
	for _, id := range ids {
		i := indexOf(work, id)
		next := work[i].Clone()
		next.Visible = visible
		next.UpdatedAt = now
		work[i] = next
	}
	ch := Change{Op: OpUpdate, Container: container.Canvas, Touched: ids}
	return s.commit(work, ch, Result{Container: container.Canvas}), nil
}

// Snapshot returns a deep copy of the raw card set, suitable for Restore.
func (s *Store) Snapshot() []model.Card {
	return model.CloneCards(s.cards)
}
