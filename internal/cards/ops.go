package cards

import (
	"fmt"
	"strings"

	"cardboard/internal/container"
	"cardboard/internal/model"
)

// Insert adds card to containerID at index (index < 0 or past the end
// appends). An empty card ID gets a fresh one. Dropdowns only go on the canvas.
func (s *Store) Insert(card model.Card, containerID string, index int) (Result, error) {
	containerID = container.Normalize(containerID)
	card.ID = strings.TrimSpace(card.ID)
	if card.ID == "" {
		card.ID = s.newID()
	}
	if _, ok := model.ParseCardType(string(card.Type)); !ok {
		return Result{}, InvariantViolationError{Op: "insert", CardID: card.ID, Reason: fmt.Sprintf("unknown card type %q", card.Type)}
	}
	if s.Has(card.ID) {
		return Result{}, InvariantViolationError{Op: "insert", CardID: card.ID, Reason: "card id already exists"}
	}
	if !container.Exists(containerID, s.cards) {
		return Result{}, StaleReferenceError{Kind: "container", ID: containerID}
	}
	if card.Type.IsContainer() && containerID != container.Canvas {
		return Result{}, InvariantViolationError{Op: "insert", CardID: card.ID, Reason: "dropdowns cannot be nested"}
	}
	if card.Content == nil {
		empty, err := model.EmptyContent(card.Type)
		if err != nil {
			return Result{}, err
		}
		card.Content = empty
	} else if card.Content.CardType() != card.Type {
		return Result{}, InvariantViolationError{Op: "insert", CardID: card.ID, Reason: fmt.Sprintf("%s content on a %s card", card.Content.CardType(), card.Type)}
	}

	now := s.now()
	card = card.Clone()
	card.PageID = s.pageID
	card.ParentID = parentPtr(containerID)
	card.SortKey = ""
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	work := append(s.working(), card)
	changed, err := place(work, card.ID, containerID, index)
	if err != nil {
		return Result{}, fmt.Errorf("insert %s: %w", card.ID, err)
	}
	ch := Change{Op: OpInsert, Container: containerID, Touched: appendUnique(changed, card.ID)}
	return s.commit(work, ch, Result{Container: containerID, CardID: card.ID}), nil
}

// Move places cardID at newIndex of targetID. newIndex counts positions in the
// target with the moved card excluded. Reorders and cross-container moves are
// the same operation.
func (s *Store) Move(cardID, targetID string, newIndex int) (Result, error) {
	cardID = strings.TrimSpace(cardID)
	targetID = container.Normalize(targetID)
	i := indexOf(s.cards, cardID)
	if i < 0 {
		return Result{}, StaleReferenceError{Kind: "card", ID: cardID}
	}
	if !container.Exists(targetID, s.cards) {
		return Result{}, StaleReferenceError{Kind: "container", ID: targetID}
	}
	if !container.CanAcceptDrop(cardID, targetID, s.cards) {
		return Result{}, InvariantViolationError{Op: "move", CardID: cardID, Reason: "dropdowns cannot be nested"}
	}

	from := container.Of(s.cards[i])
	work := s.working()
	work[i].ParentID = parentPtr(targetID)
	changed, err := place(work, cardID, targetID, newIndex)
	if err != nil {
		return Result{}, fmt.Errorf("move %s: %w", cardID, err)
	}
	if from == targetID && len(changed) == 0 {
		return s.result(targetID, cardID), nil
	}
	now := s.now()
	for _, id := range appendUnique(changed, cardID) {
		work[indexOf(work, id)].UpdatedAt = now
	}
	ch := Change{Op: OpMove, Container: targetID, Touched: appendUnique(changed, cardID)}
	return s.commit(work, ch, Result{Container: targetID, CardID: cardID}), nil
}

// Delete removes cardID. Children of a deleted dropdown pop out onto the canvas
// at the dropdown's position, keeping their relative order. The result lists
// the container the card was in.
func (s *Store) Delete(cardID string) (Result, error) {
	cardID = strings.TrimSpace(cardID)
	if !s.Has(cardID) {
		return Result{}, StaleReferenceError{Kind: "card", ID: cardID}
	}
	work := s.working()
	from, touched, err := s.deleteIn(&work, cardID)
	if err != nil {
		return Result{}, err
	}
	ch := Change{Op: OpDelete, Container: from, Touched: touched, Removed: []string{cardID}}
	return s.commit(work, ch, Result{Container: from, CardID: cardID}), nil
}

func (s *Store) deleteIn(work *[]model.Card, cardID string) (string, []string, error) {
	i := indexOf(*work, cardID)
	if i < 0 {
		return "", nil, StaleReferenceError{Kind: "card", ID: cardID}
	}
	victim := (*work)[i]
	from := container.Of(victim)

	var children []model.Card
	at := 0
	if victim.Type.IsContainer() {
		children = container.CardsIn(victim.ID, *work)
		for j, c := range container.CardsIn(container.Canvas, *work) {
			if c.ID == victim.ID {
				at = j
				break
			}
		}
	}
	*work = append((*work)[:i:i], (*work)[i+1:]...)

	now := s.now()
	var touched []string
	for n, child := range children {
		j := indexOf(*work, child.ID)
		(*work)[j].ParentID = nil
		(*work)[j].UpdatedAt = now
		changed, err := place(*work, child.ID, container.Canvas, at+n)
		if err != nil {
			return "", nil, fmt.Errorf("delete %s: pop out %s: %w", cardID, child.ID, err)
		}
		touched = appendUnique(touched, child.ID)
		for _, id := range changed {
			touched = appendUnique(touched, id)
		}
	}
	return from, touched, nil
}

// Update shallow-merges patch into cardID. Keys and parents are never touched.
func (s *Store) Update(cardID string, patch model.CardPatch) (Result, error) {
	cardID = strings.TrimSpace(cardID)
	i := indexOf(s.cards, cardID)
	if i < 0 {
		return Result{}, StaleReferenceError{Kind: "card", ID: cardID}
	}
	cur := s.cards[i]
	if patch.IsEmpty() {
		return s.result(container.Of(cur), cardID), nil
	}
	if patch.Content != nil && patch.Content.CardType() != cur.Type {
		return Result{}, InvariantViolationError{Op: "update", CardID: cardID, Reason: fmt.Sprintf("%s content on a %s card", patch.Content.CardType(), cur.Type)}
	}

	next := cur.Clone()
	if patch.Content != nil {
		next.Content = model.CloneContent(patch.Content)
	}
	if patch.Visible != nil {
		next.Visible = *patch.Visible
	}
	if patch.Size != nil {
		next.Size = *patch.Size
	}
	if patch.Position != nil {
		next.Position = *patch.Position
	}
	next.UpdatedAt = s.now()

	work := s.working()
	work[i] = next
	from := container.Of(cur)
	ch := Change{Op: OpUpdate, Container: from, Touched: []string{cardID}}
	return s.commit(work, ch, Result{Container: from, CardID: cardID}), nil
}

// Duplicate clones cardID with a new ID directly after the source. A
// duplicated dropdown gets copies of its children.
func (s *Store) Duplicate(cardID string) (Result, error) {
	cardID = strings.TrimSpace(cardID)
	i := indexOf(s.cards, cardID)
	if i < 0 {
		return Result{}, StaleReferenceError{Kind: "card", ID: cardID}
	}
	src := s.cards[i]
	from := container.Of(src)
	pos := 0
	for j, c := range container.CardsIn(from, s.cards) {
		if c.ID == src.ID {
			pos = j
			break
		}
	}

	now := s.now()
	dup := src.Clone()
	dup.ID = s.newID()
	dup.SortKey = ""
	dup.CreatedAt = now
	dup.UpdatedAt = now

	work := append(s.working(), dup)
	changed, err := place(work, dup.ID, from, pos+1)
	if err != nil {
		return Result{}, fmt.Errorf("duplicate %s: %w", cardID, err)
	}
	touched := appendUnique(changed, dup.ID)

	if src.Type.IsContainer() {
		for _, child := range container.CardsIn(src.ID, s.cards) {
			cp := child.Clone()
			cp.ID = s.newID()
			cp.ParentID = model.StringPtr(dup.ID)
			cp.CreatedAt = now
			cp.UpdatedAt = now
			work = append(work, cp)
			touched = append(touched, cp.ID)
		}
	}

	ch := Change{Op: OpDuplicate, Container: from, Touched: touched}
	return s.commit(work, ch, Result{Container: from, CardID: dup.ID}), nil
}

func appendUnique(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
