package publish

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cardboard/internal/model"
)

func testCards() []model.Card {
	dd := "c-dd"
	return []model.Card{
		{ID: "c-link", Type: model.CardTypeLink, SortKey: "a", Visible: true, Content: model.LinkContent{Title: "Home", URL: "https://example.com"}},
		{ID: dd, Type: model.CardTypeDropdown, SortKey: "b", Visible: true, Content: model.DropdownContent{Title: "Socials"}},
		{ID: "c-text", Type: model.CardTypeText, SortKey: "a", ParentID: &dd, Visible: true, Content: model.TextContent{Markdown: "Some **markdown**."}},
		{ID: "c-hidden", Type: model.CardTypeGame, SortKey: "c", Visible: false, Content: model.GameContent{Name: "Secret", URL: "https://game"}},
	}
}

func TestRenderPageMarkdown_OrderAndNesting(t *testing.T) {
	t.Parallel()

	md := RenderPageMarkdown(model.Page{ID: "page-1", Title: "Links", Description: "About me"}, testCards(), RenderOptions{})
	for _, want := range []string{"# Links", "About me", "[Home](https://example.com)", "## Socials", "Some **markdown**."} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in:\n%s", want, md)
		}
	}
	if strings.Index(md, "[Home]") > strings.Index(md, "## Socials") {
		t.Fatalf("canvas order not kept:\n%s", md)
	}
	if strings.Contains(md, "Secret") {
		t.Fatalf("hidden card should be left out:\n%s", md)
	}
}

func TestRenderPageMarkdown_IncludeHidden(t *testing.T) {
	t.Parallel()

	md := RenderPageMarkdown(model.Page{ID: "page-1"}, testCards(), RenderOptions{IncludeHidden: true})
	if !strings.Contains(md, "# page-1") {
		t.Fatalf("untitled page should fall back to its id:\n%s", md)
	}
	if !strings.Contains(md, "<!-- hidden -->\n[Secret](https://game)") {
		t.Fatalf("hidden card should be marked:\n%s", md)
	}
}

func TestWritePage_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	page := model.Page{ID: "page-1", Title: "Links"}
	res, err := WritePage(page, testCards(), dir, WriteOptions{})
	if err != nil {
		t.Fatalf("WritePage: %v", err)
	}
	want := filepath.Join(dir, "pages", "page-1.md")
	if len(res.Written) != 1 || res.Written[0] != want {
		t.Fatalf("unexpected written: %#v", res.Written)
	}
	if b, err := os.ReadFile(want); err != nil || !strings.Contains(string(b), "# Links") {
		t.Fatalf("unexpected file: %q %v", b, err)
	}
	if _, err := WritePage(page, testCards(), dir, WriteOptions{}); err == nil {
		t.Fatalf("expected error without overwrite")
	}
	if _, err := WritePage(page, testCards(), dir, WriteOptions{Overwrite: true}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}
