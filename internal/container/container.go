package container

import (
	"sort"
	"strings"

	"cardboard/internal/model"
	"cardboard/internal/rank"
)

// Canvas is the ID of the top-level container.
const Canvas = "canvas"

// Normalize maps "" and "canvas" (any case) to Canvas.
func Normalize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.EqualFold(id, Canvas) {
		return Canvas
	}
	return id
}

// Of returns the container that holds c.
func Of(c model.Card) string {
	if p := c.Parent(); p != "" {
		return p
	}
	return Canvas
}

// CardsIn returns the cards of a container sorted by key, then ID.
func CardsIn(containerID string, all []model.Card) []model.Card {
	containerID = Normalize(containerID)
	out := make([]model.Card, 0, len(all))
	for _, c := range all {
		if Of(c) == containerID {
			out = append(out, c)
		}
	}
	SortCards(out)
	return out
}

func SortCards(cards []model.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return rank.Compare(entry(cards[i]), entry(cards[j])) < 0
	})
}

// Entries projects a container's cards onto the key planner's view.
func Entries(cards []model.Card) []rank.Entry {
	out := make([]rank.Entry, len(cards))
	for i := range cards {
		out[i] = entry(cards[i])
	}
	return out
}

func entry(c model.Card) rank.Entry {
	return rank.Entry{ID: c.ID, Key: c.SortKey}
}

func find(id string, all []model.Card) (model.Card, bool) {
	for _, c := range all {
		if c.ID == id {
			return c, true
		}
	}
	return model.Card{}, false
}

// Exists reports whether containerID names the canvas or a live dropdown.
func Exists(containerID string, all []model.Card) bool {
	containerID = Normalize(containerID)
	if containerID == Canvas {
		return true
	}
	c, ok := find(containerID, all)
	return ok && c.Type.IsContainer()
}

// CanAcceptDrop reports whether cardID may be dropped into targetID.
// Dropdowns only live on the canvas, and the target must still exist.
func CanAcceptDrop(cardID, targetID string, all []model.Card) bool {
	c, ok := find(strings.TrimSpace(cardID), all)
	if !ok {
		return false
	}
	targetID = Normalize(targetID)
	if !Exists(targetID, all) {
		return false
	}
	if c.Type.IsContainer() && targetID != Canvas {
		return false
	}
	return true
}

// AllIDs returns the canvas followed by every dropdown in canvas order.
func AllIDs(all []model.Card) []string {
	out := []string{Canvas}
	for _, c := range CardsIn(Canvas, all) {
		if c.Type.IsContainer() {
			out = append(out, c.ID)
		}
	}
	return out
}

// Flatten returns cards in display order: canvas order, with each dropdown's
// children directly after it.
func Flatten(all []model.Card) []model.Card {
	out := make([]model.Card, 0, len(all))
	for _, c := range CardsIn(Canvas, all) {
		out = append(out, c)
		if c.Type.IsContainer() {
			out = append(out, CardsIn(c.ID, all)...)
		}
	}
	return out
}
