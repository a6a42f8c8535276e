package container

import (
	"fmt"

	"cardboard/internal/model"
	"cardboard/internal/rank"
)

type ProblemCode string

const (
	ProblemDanglingParent  ProblemCode = "dangling_parent"
	ProblemParentNotDrop   ProblemCode = "parent_not_dropdown"
	ProblemNestedDropdown  ProblemCode = "nested_dropdown"
	ProblemDuplicateKey    ProblemCode = "duplicate_sort_key"
	ProblemInvalidKey      ProblemCode = "invalid_sort_key"
	ProblemDuplicateCardID ProblemCode = "duplicate_card_id"
)

type Problem struct {
	Code      ProblemCode `json:"code"`
	CardID    string      `json:"cardId"`
	Container string      `json:"container,omitempty"`
	Message   string      `json:"message"`
}

// Validate audits the ordering and nesting invariants of a card set.
func Validate(all []model.Card) []Problem {
	var out []Problem
	byID := map[string]model.Card{}
	for _, c := range all {
		if _, dup := byID[c.ID]; dup {
			out = append(out, Problem{Code: ProblemDuplicateCardID, CardID: c.ID, Message: "card id appears more than once"})
			continue
		}
		byID[c.ID] = c
	}

	keysByContainer := map[string]map[string]string{}
	for _, c := range all {
		if pid := c.Parent(); pid != "" {
			p, ok := byID[pid]
			switch {
			case !ok:
				out = append(out, Problem{Code: ProblemDanglingParent, CardID: c.ID, Container: pid, Message: fmt.Sprintf("parent %s does not exist", pid)})
			case !p.Type.IsContainer():
				out = append(out, Problem{Code: ProblemParentNotDrop, CardID: c.ID, Container: pid, Message: fmt.Sprintf("parent %s is a %s card", pid, p.Type)})
			}
			if c.Type.IsContainer() {
				out = append(out, Problem{Code: ProblemNestedDropdown, CardID: c.ID, Container: pid, Message: "dropdown nested inside another container"})
			}
		}

		cid := Of(c)
		key := rank.Normalize(c.SortKey)
		if err := rank.Validate(key); err != nil {
			out = append(out, Problem{Code: ProblemInvalidKey, CardID: c.ID, Container: cid, Message: err.Error()})
			continue
		}
		if keysByContainer[cid] == nil {
			keysByContainer[cid] = map[string]string{}
		}
		if other, ok := keysByContainer[cid][key]; ok {
			out = append(out, Problem{Code: ProblemDuplicateKey, CardID: c.ID, Container: cid, Message: fmt.Sprintf("sort key %q also used by %s", key, other)})
			continue
		}
		keysByContainer[cid][key] = c.ID
	}
	return out
}
