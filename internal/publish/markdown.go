package publish

import (
	"bytes"
	"fmt"
	"strings"

	"cardboard/internal/container"
	"cardboard/internal/model"
)

type RenderOptions struct {
	IncludeHidden bool
}

// RenderPageMarkdown renders a page the way a visitor sees it: canvas cards in
// order, each dropdown as a section holding its nested cards.
func RenderPageMarkdown(page model.Page, cards []model.Card, opt RenderOptions) string {
	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	title := strings.TrimSpace(page.Title)
	if title == "" {
		title = page.ID
	}
	writeLn("# " + title)
	writeLn("")
	if d := strings.TrimSpace(page.Description); d != "" {
		writeLn(d)
		writeLn("")
	}

	shown := func(c model.Card) bool { return c.Visible || opt.IncludeHidden }
	for _, c := range container.CardsIn(container.Canvas, cards) {
		if !shown(c) {
			continue
		}
		if !c.Type.IsContainer() {
			writeCard(writeLn, c)
			continue
		}
		dd, _ := c.Content.(model.DropdownContent)
		heading := strings.TrimSpace(dd.Title)
		if heading == "" {
			heading = "More"
		}
		writeLn("## " + heading)
		writeLn("")
		for _, child := range container.CardsIn(c.ID, cards) {
			if shown(child) {
				writeCard(writeLn, child)
			}
		}
	}
	return strings.TrimRight(buf.String(), "\n") + "\n"
}

func writeCard(writeLn func(string), c model.Card) {
	if !c.Visible {
		writeLn("<!-- hidden -->")
	}
	switch v := c.Content.(type) {
	case model.LinkContent:
		writeLn(mdLink(v.Title, v.URL))
	case model.TextContent:
		if md := strings.TrimSpace(v.Markdown); md != "" {
			writeLn(md)
		}
	case model.ImageContent:
		writeLn(fmt.Sprintf("![%s](%s)", v.Alt, v.URL))
	case model.VideoContent:
		writeLn(mdLink("Video", v.URL))
	case model.GalleryContent:
		for _, img := range v.Images {
			writeLn(fmt.Sprintf("![%s](%s)", img.Alt, img.URL))
		}
	case model.AudioContent:
		label := v.Title
		if a := strings.TrimSpace(v.Artist); a != "" {
			label += " by " + a
		}
		writeLn(mdLink(label, v.URL))
	case model.GameContent:
		writeLn(mdLink(v.Name, v.URL))
	case model.SocialIconsContent:
		for _, l := range v.Links {
			writeLn("- " + mdLink(l.Network, l.URL))
		}
	case model.EmailCollectionContent:
		heading := strings.TrimSpace(v.Heading)
		if heading == "" {
			heading = "Subscribe"
		}
		writeLn("> **" + heading + "**")
	default:
		writeLn(fmt.Sprintf("<!-- %s card -->", c.Type))
	}
	writeLn("")
}

func mdLink(label, url string) string {
	label = strings.TrimSpace(label)
	url = strings.TrimSpace(url)
	if label == "" {
		label = url
	}
	if url == "" {
		return label
	}
	return fmt.Sprintf("[%s](%s)", label, url)
}
