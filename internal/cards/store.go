package cards

import (
	"strings"
	"time"

	"cardboard/internal/container"
	"cardboard/internal/model"
	"cardboard/internal/rank"
)

// Op names the mutation that produced a Change.
type Op string

const (
	OpInsert    Op = "insert"
	OpMove      Op = "move"
	OpDelete    Op = "delete"
	OpUpdate    Op = "update"
	OpDuplicate Op = "duplicate"
	OpRestore   Op = "restore"
)

// Change is delivered to subscribers after every successful mutation.
type Change struct {
	Op        Op
	Container string
	// Touched lists cards that were created or rewritten.
	Touched []string
	// Removed lists cards that no longer exist.
	Removed []string
}

// Result is returned by every mutation: the affected container, its new
// ordered list, and the primary card (the new card for insert and duplicate).
type Result struct {
	Container string
	Cards     []model.Card
	CardID    string
}

// Store is the authoritative ordered card collection of one page. Mutations
// are atomic: they either succeed fully or return an error with the store
// untouched. Not safe for concurrent use.
type Store struct {
	pageID string
	cards  []model.Card
	rev    uint64

	now   func() time.Time
	newID func() string
	subs  []func(Change)
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDs(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func New(pageID string, opts ...Option) *Store {
	s := &Store{
		pageID: strings.TrimSpace(pageID),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  model.NewCardID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) PageID() string { return s.pageID }

// Revision increases on every committed mutation, Load and Restore.
func (s *Store) Revision() uint64 { return s.rev }

// Subscribe registers fn for Change notifications.
func (s *Store) Subscribe(fn func(Change)) {
	if fn != nil {
		s.subs = append(s.subs, fn)
	}
}

func (s *Store) emit(ch Change) {
	for _, fn := range s.subs {
		fn(ch)
	}
}

// Load hydrates the store without notifying subscribers.
func (s *Store) Load(cards []model.Card) {
	s.cards = model.CloneCards(cards)
	s.rev++
}

// Restore replaces the whole state, typically from a history snapshot.
func (s *Store) Restore(cards []model.Card) {
	before := map[string]bool{}
	for _, c := range s.cards {
		before[c.ID] = true
	}
	s.cards = model.CloneCards(cards)
	s.rev++

	touched := make([]string, 0, len(s.cards))
	for _, c := range s.cards {
		delete(before, c.ID)
		touched = append(touched, c.ID)
	}
	removed := make([]string, 0, len(before))
	for id := range before {
		removed = append(removed, id)
	}
	s.emit(Change{Op: OpRestore, Container: container.Canvas, Touched: touched, Removed: removed})
}

// Cards returns a deep copy of every card in display order. Cards whose
// parent is missing are appended at the end.
func (s *Store) Cards() []model.Card {
	out := container.Flatten(s.cards)
	if len(out) < len(s.cards) {
		seen := make(map[string]bool, len(out))
		for _, c := range out {
			seen[c.ID] = true
		}
		for _, c := range s.cards {
			if !seen[c.ID] {
				out = append(out, c)
			}
		}
	}
	return model.CloneCards(out)
}

func (s *Store) Len() int { return len(s.cards) }

func (s *Store) CardsIn(containerID string) []model.Card {
	return model.CloneCards(container.CardsIn(containerID, s.cards))
}

func (s *Store) Containers() []string { return container.AllIDs(s.cards) }

func (s *Store) Get(id string) (model.Card, bool) {
	i := indexOf(s.cards, strings.TrimSpace(id))
	if i < 0 {
		return model.Card{}, false
	}
	return s.cards[i].Clone(), true
}

func (s *Store) Has(id string) bool { return indexOf(s.cards, strings.TrimSpace(id)) >= 0 }

func (s *Store) CanAcceptDrop(cardID, targetID string) bool {
	return container.CanAcceptDrop(cardID, targetID, s.cards)
}

// commit swaps in the working set and notifies subscribers.
func (s *Store) commit(work []model.Card, ch Change, res Result) Result {
	s.cards = work
	s.rev++
	res.Cards = model.CloneCards(container.CardsIn(res.Container, s.cards))
	s.emit(ch)
	return res
}

func (s *Store) result(containerID, cardID string) Result {
	containerID = container.Normalize(containerID)
	return Result{
		Container: containerID,
		Cards:     model.CloneCards(container.CardsIn(containerID, s.cards)),
		CardID:    cardID,
	}
}

func indexOf(cards []model.Card, id string) int {
	for i := range cards {
		if cards[i].ID == id {
			return i
		}
	}
	return -1
}

// working returns a shallow copy of the card slice. Mutations replace card
// values and pointers instead of writing through them, so the live slice is
// never observed half-updated.
func (s *Store) working() []model.Card {
	return append(make([]model.Card, 0, len(s.cards)+1), s.cards...)
}

// place assigns keys so cardID (already parented to containerID in work)
// lands at index within its container. index < 0 appends. Returns the IDs whose
// keys changed.
func place(work []model.Card, cardID, containerID string, index int) ([]string, error) {
	siblings := container.CardsIn(containerID, work)
	if index < 0 || index >= len(siblings) {
		index = len(siblings)
	}
	plan, err := rank.Plan(container.Entries(siblings), cardID, index)
	if err != nil {
		return nil, err
	}
	changed := make([]string, 0, len(plan.KeyByID))
	for id, key := range plan.KeyByID {
		i := indexOf(work, id)
		if i < 0 {
			continue
		}
		work[i].SortKey = key
		changed = append(changed, id)
	}
	return changed, nil
}

func parentPtr(containerID string) *string {
	if containerID == container.Canvas {
		return nil
	}
	return model.StringPtr(containerID)
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
