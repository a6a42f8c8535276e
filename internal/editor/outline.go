package editor

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"cardboard/internal/container"
	"cardboard/internal/model"
)

// Label is a one-line human description of a card.
func Label(c model.Card) string {
	var s string
	switch v := c.Content.(type) {
	case model.LinkContent:
		s = firstNonEmpty(v.Title, v.URL)
	case model.TextContent:
		s = firstLine(v.Markdown)
	case model.ImageContent:
		s = firstNonEmpty(v.Alt, v.URL)
	case model.VideoContent:
		s = v.URL
	case model.GalleryContent:
		s = fmt.Sprintf("%d images", len(v.Images))
	case model.AudioContent:
		s = firstNonEmpty(v.Title, v.URL)
	case model.GameContent:
		s = firstNonEmpty(v.Name, v.URL)
	case model.SocialIconsContent:
		nets := make([]string, 0, len(v.Links))
		for _, l := range v.Links {
			nets = append(nets, l.Network)
		}
		s = strings.Join(nets, ", ")
	case model.DropdownContent:
		s = v.Title
	case model.EmailCollectionContent:
		s = v.Heading
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return string(c.Type)
	}
	return string(c.Type) + ": " + s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Outline renders cards as an indented list in display order. Hidden cards
// are marked.
func Outline(all []model.Card) string {
	var b strings.Builder
	for _, c := range container.Flatten(all) {
		if c.Parent() != "" {
			b.WriteString("  ")
		}
		b.WriteString("- ")
		b.WriteString(Label(c))
		if !c.Visible {
			b.WriteString(" (hidden)")
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// UndoPreview returns a line diff between the current outline and the one
// Undo would restore, or "" when there is nothing to undo. Lines are prefixed
// with "+ " for what comes back and "- " for what goes away.
func (s *Session) UndoPreview() string {
	s.mu.Lock()
	prev, ok := s.hist.Peek()
	cur := s.store.Snapshot()
	s.mu.Unlock()
	if !ok {
		return ""
	}
	return lineDiff(Outline(cur), Outline(prev.Cards))
}

func lineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix)
			out.WriteString(line)
		}
	}
	return out.String()
}
