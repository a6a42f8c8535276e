package history

import (
	"errors"

	"cardboard/internal/model"
)

const DefaultLimit = 100

// Snapshot is an immutable deep copy of the editable state.
type Snapshot struct {
	Cards []model.Card
	Page  model.Page
}

func (s Snapshot) clone() Snapshot {
	return Snapshot{Cards: model.CloneCards(s.Cards), Page: s.Page}
}

// Source is the state the manager records. Revision must change whenever the
// state does.
type Source interface {
	Snapshot() Snapshot
	Restore(Snapshot)
	Revision() uint64
}

// Manager keeps linear undo/redo stacks of snapshots. Not safe for concurrent
// use.
type Manager struct {
	src   Source
	limit int

	past   []Snapshot
	future []Snapshot

	pauseDepth int
	pausedAt   *Snapshot
	pausedRev  uint64
}

type Option func(*Manager)

// WithLimit bounds the undo depth; the oldest step is dropped first.
func WithLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.limit = n
		}
	}
}

func New(src Source, opts ...Option) *Manager {
	m := &Manager{src: src, limit: DefaultLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do runs fn as one undoable step. A failing fn must leave the source
// untouched; nothing is recorded in that case, nor when fn changed nothing.
func (m *Manager) Do(fn func() error) error {
	if fn == nil {
		return errors.New("history: nil mutation")
	}
	if m.Paused() {
		return fn()
	}
	pre := m.src.Snapshot()
	rev := m.src.Revision()
	if err := fn(); err != nil {
		return err
	}
	if m.src.Revision() != rev {
		m.push(pre)
	}
	return nil
}

func (m *Manager) push(s Snapshot) {
	m.past = append(m.past, s)
	if over := len(m.past) - m.limit; over > 0 {
		m.past = append([]Snapshot(nil), m.past[over:]...)
	}
	m.future = nil
}

// Pause starts a burst. Pauses nest; the outermost Resume records the whole
// burst as a single step.
func (m *Manager) Pause() {
	if m.pauseDepth == 0 {
		s := m.src.Snapshot()
		m.pausedAt = &s
		m.pausedRev = m.src.Revision()
	}
	m.pauseDepth++
}

func (m *Manager) Resume() {
	if m.pauseDepth == 0 {
		return
	}
	m.pauseDepth--
	if m.pauseDepth > 0 {
		return
	}
	pre := m.pausedAt
	m.pausedAt = nil
	if pre != nil && m.src.Revision() != m.pausedRev {
		m.push(*pre)
	}
}

// Cancel ends a burst like Resume but never records it. The caller is
// expected to have put the source back the way it was.
func (m *Manager) Cancel() {
	if m.pauseDepth == 0 {
		return
	}
	m.pauseDepth--
	if m.pauseDepth == 0 {
		m.pausedAt = nil
	}
}

func (m *Manager) Paused() bool { return m.pauseDepth > 0 }

func (m *Manager) CanUndo() bool { return !m.Paused() && len(m.past) > 0 }

func (m *Manager) CanRedo() bool { return !m.Paused() && len(m.future) > 0 }

// Undo restores the previous step. It is a no-op when there is nothing to undo
// or while a burst is in progress.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	prev := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, m.src.Snapshot())
	m.src.Restore(prev.clone())
	return true
}

func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	next := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.past = append(m.past, m.src.Snapshot())
	m.src.Restore(next.clone())
	return true
}

// Clear empties both stacks, e.g. once the initial load has completed.
func (m *Manager) Clear() {
	m.past = nil
	m.future = nil
}

// Peek returns the snapshot Undo would restore.
func (m *Manager) Peek() (Snapshot, bool) {
	if len(m.past) == 0 {
		return Snapshot{}, false
	}
	return m.past[len(m.past)-1].clone(), true
}

func (m *Manager) Depth() (past, future int) { return len(m.past), len(m.future) }
