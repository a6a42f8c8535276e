package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"cardboard/internal/container"
	"cardboard/internal/editor"
	"cardboard/internal/model"
	"cardboard/internal/persist"
)

const statusTick = 250 * time.Millisecond

type statusTickMsg struct{}

type flushDoneMsg struct{ err error }

// Model is the Bubble Tea editor over one session. The session is the source
// of truth; the model only keeps the cursor and view state.
type Model struct {
	s    *editor.Session
	keys keyMap
	help help.Model

	width  int
	height int

	cursorID    string
	adding      bool
	showPreview bool
	showHelp    bool
	message     string
	messageErr  bool
}

func New(s *editor.Session) Model {
	m := Model{s: s, keys: defaultKeyMap(), help: help.New()}
	if rows := s.Cards(); len(rows) > 0 {
		m.cursorID = rows[0].ID
	}
	return m
}

func (m Model) Init() tea.Cmd { return tickStatus() }

func tickStatus() tea.Cmd {
	return tea.Tick(statusTick, func(time.Time) tea.Msg { return statusTickMsg{} })
}

func (m Model) rows() []model.Card { return m.s.Cards() }

func (m Model) cursor(rows []model.Card) int {
	for i, c := range rows {
		if c.ID == m.cursorID {
			return i
		}
	}
	return 0
}

func (m Model) current() (model.Card, bool) {
	rows := m.rows()
	if len(rows) == 0 {
		return model.Card{}, false
	}
	return rows[m.cursor(rows)], true
}

func (m *Model) setErr(err error) {
	m.message = err.Error()
	m.messageErr = true
}

func (m *Model) setMsg(format string, args ...any) {
	m.message = fmt.Sprintf(format, args...)
	m.messageErr = false
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case statusTickMsg:
		return m, tickStatus()
	case flushDoneMsg:
		if msg.err != nil {
			m.setErr(msg.err)
		} else {
			m.setMsg("saved")
		}
		return m, nil
	case tea.KeyMsg:
		if m.adding {
			return m.updateAdding(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.message = ""
	_, grabbed := m.s.Dragging()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if grabbed {
			m.s.EndDrag()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if grabbed {
			m.dragStep(-1)
			return m, nil
		}
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		if grabbed {
			m.dragStep(1)
			return m, nil
		}
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Grab):
		if grabbed {
			m.s.EndDrag()
			m.setMsg("dropped")
			return m, nil
		}
		if c, ok := m.current(); ok {
			if err := m.s.BeginDrag(c.ID); err != nil {
				m.setErr(err)
			}
		}
	case key.Matches(msg, m.keys.Cancel):
		switch {
		case grabbed:
			m.s.CancelDrag()
			m.setMsg("move cancelled")
		case m.s.SelectMode():
			m.s.ExitSelectMode()
		}

	case grabbed:
		// Everything below edits the page; finish the move first.
		m.setMsg("drop the card first (m or space)")

	case key.Matches(msg, m.keys.Select):
		if m.s.SelectMode() {
			m.s.ExitSelectMode()
		} else {
			m.s.EnterSelectMode()
		}
	case key.Matches(msg, m.keys.Toggle):
		if c, ok := m.current(); ok {
			if !m.s.SelectMode() {
				m.s.EnterSelectMode()
			}
			m.s.Click(c.ID, false)
		}
	case key.Matches(msg, m.keys.Range):
		if c, ok := m.current(); ok {
			if !m.s.SelectMode() {
				m.s.EnterSelectMode()
			}
			m.s.Click(c.ID, true)
		}

	case key.Matches(msg, m.keys.Delete):
		m.delete()
	case key.Matches(msg, m.keys.Duplicate):
		if c, ok := m.current(); ok {
			res, err := m.s.Duplicate(c.ID)
			if err != nil {
				m.setErr(err)
			} else {
				m.cursorID = res.CardID
			}
		}
	case key.Matches(msg, m.keys.Nest):
		m.nest()
	case key.Matches(msg, m.keys.Unnest):
		if c, ok := m.current(); ok && c.Parent() != "" {
			if _, err := m.s.Nest(c.ID, ""); err != nil {
				m.setErr(err)
			}
		}
	case key.Matches(msg, m.keys.Hide):
		m.toggleHidden()
	case key.Matches(msg, m.keys.Add):
		m.adding = true

	case key.Matches(msg, m.keys.Undo):
		if !m.s.Undo() {
			m.setMsg("nothing to undo")
		}
		m.keepCursor()
	case key.Matches(msg, m.keys.Redo):
		if !m.s.Redo() {
			m.setMsg("nothing to redo")
		}
		m.keepCursor()

	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
	case key.Matches(msg, m.keys.Save):
		s := m.s
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return flushDoneMsg{err: s.Flush(ctx)}
		}
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	rows := m.rows()
	if len(rows) == 0 {
		return
	}
	i := m.cursor(rows) + delta
	if i < 0 {
		i = 0
	}
	if i >= len(rows) {
		i = len(rows) - 1
	}
	m.cursorID = rows[i].ID
}

// keepCursor moves the cursor to the first row when its card disappeared.
func (m *Model) keepCursor() {
	if _, ok := m.s.Get(m.cursorID); ok {
		return
	}
	m.cursorID = ""
	if rows := m.rows(); len(rows) > 0 {
		m.cursorID = rows[0].ID
	}
}

// dragStep moves the grabbed card one visual row. Crossing a dropdown edge
// enters or leaves it.
func (m *Model) dragStep(delta int) {
	id, _ := m.s.Dragging()
	c, ok := m.s.Get(id)
	if !ok {
		return
	}
	from := container.Of(c)
	siblings := m.s.CardsIn(from)
	idx := indexOf(siblings, id)

	var err error
	if parent := c.Parent(); parent != "" {
		canvas := m.s.CardsIn(container.Canvas)
		at := indexOf(canvas, parent)
		switch {
		case delta < 0 && idx == 0:
			_, err = m.s.DragOver(container.Canvas, at)
		case delta > 0 && idx == len(siblings)-1:
			_, err = m.s.DragOver(container.Canvas, at+1)
		default:
			_, err = m.s.DragOver(parent, idx+delta)
		}
	} else {
		target := idx + delta
		if target < 0 || target >= len(siblings) {
			return
		}
		next := siblings[target]
		switch {
		case next.Type.IsContainer() && !c.Type.IsContainer() && delta > 0:
			_, err = m.s.DragOver(next.ID, 0)
		case next.Type.IsContainer() && !c.Type.IsContainer():
			_, err = m.s.DragOver(next.ID, -1)
		default:
			_, err = m.s.DragOver(container.Canvas, target)
		}
	}
	if err != nil {
		m.setErr(err)
	}
}

func indexOf(list []model.Card, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) delete() {
	if m.s.SelectMode() && len(m.s.Selected()) > 0 {
		n := len(m.s.Selected())
		if _, err := m.s.DeleteSelected(); err != nil {
			m.setErr(err)
			return
		}
		m.setMsg("deleted %d cards (u to undo)", n)
		m.keepCursor()
		return
	}
	c, ok := m.current()
	if !ok {
		return
	}
	rows := m.rows()
	i := m.cursor(rows)
	if _, err := m.s.Delete(c.ID); err != nil {
		m.setErr(err)
		return
	}
	rows = m.rows()
	switch {
	case len(rows) == 0:
		m.cursorID = ""
	case i < len(rows):
		m.cursorID = rows[i].ID
	default:
		m.cursorID = rows[len(rows)-1].ID
	}
}

// nest moves the current card into the nearest dropdown above it on the
// canvas.
func (m *Model) nest() {
	c, ok := m.current()
	if !ok || c.Parent() != "" || c.Type.IsContainer() {
		return
	}
	canvas := m.s.CardsIn(container.Canvas)
	for i := indexOf(canvas, c.ID) - 1; i >= 0; i-- {
		if canvas[i].Type.IsContainer() {
			if _, err := m.s.Nest(c.ID, canvas[i].ID); err != nil {
				m.setErr(err)
			}
			return
		}
	}
	m.setMsg("no dropdown above")
}

func (m *Model) toggleHidden() {
	if m.s.SelectMode() && len(m.s.Selected()) > 0 {
		first, _ := m.s.Get(m.s.Selected()[0])
		if _, err := m.s.SetSelectedVisible(!first.Visible); err != nil {
			m.setErr(err)
		}
		return
	}
	c, ok := m.current()
	if !ok {
		return
	}
	v := !c.Visible
	if _, err := m.s.Update(c.ID, model.CardPatch{Visible: &v}); err != nil {
		m.setErr(err)
	}
}

// updateAdding handles the card type picker: a digit picks a type, anything
// else closes the picker.
func (m Model) updateAdding(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.adding = false
	types := model.CardTypes()
	s := msg.String()
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return m, nil
	}
	n := int(s[0] - '0')
	if n == 0 {
		n = 10
	}
	if n > len(types) {
		return m, nil
	}
	t := types[n-1]

	target, index := container.Canvas, -1
	if c, ok := m.current(); ok {
		parent := container.Of(c)
		switch {
		case t.IsContainer() && parent != container.Canvas:
			target = container.Canvas
			index = indexOf(m.s.CardsIn(container.Canvas), parent) + 1
		case c.Type.IsContainer() && !t.IsContainer():
			target = c.ID
			index = 0
		default:
			target = parent
			index = indexOf(m.s.CardsIn(parent), c.ID) + 1
		}
	}
	res, err := m.s.Insert(model.Card{Type: t, Visible: true, Size: model.CardSizeMedium}, target, index)
	if err != nil {
		m.setErr(err)
		return m, nil
	}
	m.cursorID = res.CardID
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	page := m.s.Page()
	title := page.Title
	if strings.TrimSpace(title) == "" {
		title = page.ID
	}
	b.WriteString(styleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(m.statusView())
	b.WriteString("\n\n")

	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(styleMuted.Render("(empty page: press a to add a card)"))
		b.WriteString("\n")
	}
	cur := m.cursor(rows)
	grabbedID, grabbed := m.s.Dragging()
	selectMode := m.s.SelectMode()
	for i, c := range rows {
		b.WriteString(m.rowView(c, i == cur, grabbed && c.ID == grabbedID, selectMode))
		b.WriteString("\n")
	}

	if m.adding {
		b.WriteString("\n")
		b.WriteString(m.pickerView())
		b.WriteString("\n")
	}
	if m.showPreview {
		if pv := m.previewView(rows, cur); pv != "" {
			b.WriteString("\n")
			b.WriteString(pv)
			b.WriteString("\n")
		}
	}
	if m.message != "" {
		b.WriteString("\n")
		if m.messageErr {
			b.WriteString(styleWarn.Render(m.message))
		} else {
			b.WriteString(styleMuted.Render(m.message))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) rowView(c model.Card, isCursor, isGrabbed, selectMode bool) string {
	var prefix strings.Builder
	if isCursor {
		prefix.WriteString("> ")
	} else {
		prefix.WriteString("  ")
	}
	if selectMode {
		if m.s.IsSelected(c.ID) {
			prefix.WriteString("[x] ")
		} else {
			prefix.WriteString("[ ] ")
		}
	}
	if c.Parent() != "" {
		prefix.WriteString("    ")
	}
	if isGrabbed {
		prefix.WriteString("≡ ")
	}
	label := editor.Label(c)
	line := prefix.String() + label

	if m.width > 0 {
		line = xansi.Truncate(line, m.width, "…")
	}
	switch {
	case isGrabbed:
		return styleGrabbed.Render(line)
	case isCursor:
		return styleCursor.Render(line)
	case !c.Visible:
		return styleHidden.Render(line)
	case c.Type.IsContainer():
		return styleDropdown.Render(line)
	}
	return line
}

func (m Model) statusView() string {
	st, err := m.s.Status()
	var out string
	switch st {
	case persist.StatusSaved:
		out = styleOK.Render("● saved")
	case persist.StatusPending:
		out = stylePending.Render("○ unsaved changes")
	case persist.StatusSaving:
		out = stylePending.Render("… saving")
	case persist.StatusUnsaved:
		msg := "! not saved"
		if err != nil {
			var we persist.WriteError
			if errors.As(err, &we) {
				msg += ": " + we.Err.Error()
			} else {
				msg += ": " + err.Error()
			}
		}
		out = styleWarn.Render(msg)
	}
	var flags []string
	if m.s.CanUndo() {
		flags = append(flags, "undo")
	}
	if m.s.CanRedo() {
		flags = append(flags, "redo")
	}
	if m.s.SelectMode() {
		flags = append(flags, fmt.Sprintf("%d selected", len(m.s.Selected())))
	}
	if len(flags) > 0 {
		out += styleMuted.Render("  " + strings.Join(flags, " · "))
	}
	return out
}

func (m Model) pickerView() string {
	var parts []string
	for i, t := range model.CardTypes() {
		parts = append(parts, fmt.Sprintf("%d %s", (i+1)%10, t))
	}
	return styleMuted.Render("add: " + strings.Join(parts, "  "))
}

func (m Model) previewView(rows []model.Card, cur int) string {
	width := m.width - 4
	if width < 20 {
		width = 60
	}
	var body string
	if len(rows) > 0 {
		c := rows[cur]
		if t, ok := c.Content.(model.TextContent); ok {
			body = renderMarkdown(t.Markdown, width)
		}
		if body == "" {
			body = editor.Label(c)
		}
	}
	if undo := m.s.UndoPreview(); undo != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", styleMuted.Render("undo would change:"), strings.TrimRight(undo, "\n"))
	}
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return stylePreview.Width(width).Render(body)
}

// Run opens the editor full screen and returns when the user quits or ctx is
// cancelled. The caller owns the session and must close or unload it
// afterwards.
func Run(ctx context.Context, s *editor.Session) error {
	applyColorProfilePreference()
	applyThemePreference()
	_, err := tea.NewProgram(New(s), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
