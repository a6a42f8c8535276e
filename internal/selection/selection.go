package selection

import (
	"sort"
	"strings"
)

// Manager tracks select mode and the set of selected card IDs. It holds IDs
// only; the editor keeps it in step with the card store through Remove and
// Retain. Not safe for concurrent use.
type Manager struct {
	selectMode   bool
	selected     map[string]bool
	lastSelected string
}

func New() *Manager {
	return &Manager{selected: map[string]bool{}}
}

func (m *Manager) SelectMode() bool { return m.selectMode }

func (m *Manager) EnterSelectMode() { m.selectMode = true }

// ExitSelectMode leaves select mode and always clears the selection.
func (m *Manager) ExitSelectMode() {
	m.selectMode = false
	m.Clear()
}

// Toggle flips membership of id and makes it the range anchor.
func (m *Manager) Toggle(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if m.selected[id] {
		delete(m.selected, id)
	} else {
		m.selected[id] = true
	}
	m.lastSelected = id
}

// ClickWithRange unions the inclusive range between the anchor and id into the
// selection when shiftHeld is set and the anchor is present in orderedIDs.
// Otherwise it behaves like Toggle.
func (m *Manager) ClickWithRange(id string, shiftHeld bool, orderedIDs []string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if !shiftHeld || m.lastSelected == "" {
		m.Toggle(id)
		return
	}
	from, to := -1, -1
	for i, oid := range orderedIDs {
		if oid == m.lastSelected {
			from = i
		}
		if oid == id {
			to = i
		}
	}
	if from < 0 || to < 0 {
		m.Toggle(id)
		return
	}
	if from > to {
		from, to = to, from
	}
	for _, oid := range orderedIDs[from : to+1] {
		m.selected[oid] = true
	}
	m.lastSelected = id
}

func (m *Manager) IsSelected(id string) bool { return m.selected[strings.TrimSpace(id)] }

func (m *Manager) Len() int { return len(m.selected) }

func (m *Manager) LastSelected() string { return m.lastSelected }

// Selected returns the selected IDs sorted lexically.
func (m *Manager) Selected() []string {
	out := make([]string, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SelectedIn returns the selected IDs in the order they appear in ordered.
func (m *Manager) SelectedIn(ordered []string) []string {
	out := make([]string, 0, len(m.selected))
	for _, id := range ordered {
		if m.selected[id] {
			out = append(out, id)
		}
	}
	return out
}

func (m *Manager) SelectAll(ordered []string) {
	for _, id := range ordered {
		if id = strings.TrimSpace(id); id != "" {
			m.selected[id] = true
		}
	}
	if len(ordered) > 0 {
		m.lastSelected = ordered[len(ordered)-1]
	}
}

func (m *Manager) Clear() {
	m.selected = map[string]bool{}
	m.lastSelected = ""
}

// Remove drops ids from the selection, e.g. after the cards were deleted.
func (m *Manager) Remove(ids ...string) {
	for _, id := range ids {
		id = strings.TrimSpace(id)
		delete(m.selected, id)
		if m.lastSelected == id {
			m.lastSelected = ""
		}
	}
}

// Retain keeps only the IDs for which live reports true.
func (m *Manager) Retain(live func(id string) bool) {
	for id := range m.selected {
		if !live(id) {
			delete(m.selected, id)
		}
	}
	if m.lastSelected != "" && !live(m.lastSelected) {
		m.lastSelected = ""
	}
}
