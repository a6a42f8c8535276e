package model

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestCardJSON_ContentFollowsCardType(t *testing.T) {
	parent := "card-dd"
	in := Card{
		ID:        "card-1",
		PageID:    "page-1",
		Type:      CardTypeGallery,
		ParentID:  &parent,
		SortKey:   "i",
		Size:      CardSizeWide,
		Content:   GalleryContent{Images: []ImageContent{{URL: "https://x/1.png"}, {URL: "https://x/2.png", Alt: "two"}}},
		Visible:   true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC),
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"cardType":"gallery"`, `"parentContainerId":"card-dd"`, `"isVisible":true`, `"images":[`} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("expected %s in %s", want, b)
		}
	}

	var out Card
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestCardJSON_CanvasCardOmitsParent(t *testing.T) {
	b, err := json.Marshal(Card{ID: "card-1", Type: CardTypeLink})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "parentContainerId") {
		t.Fatalf("expected no parent field: %s", b)
	}
	if !strings.Contains(string(b), `"content":{"url":""`) {
		t.Fatalf("expected empty link content: %s", b)
	}
}

func TestDecodeContent_UnknownType(t *testing.T) {
	if _, err := DecodeContent(CardType("hologram"), json.RawMessage(`{}`)); err == nil {
		t.Fatalf("expected error for unknown card type")
	}
}

func TestClone_SharesNoMutableState(t *testing.T) {
	parent := "card-dd"
	c := Card{ID: "card-1", Type: CardTypeSocialIcons, ParentID: &parent, Content: SocialIconsContent{Links: []SocialLink{{Network: "gh", URL: "u"}}}}
	cp := c.Clone()
	*cp.ParentID = "other"
	cp.Content.(SocialIconsContent).Links[0].URL = "changed"
	if c.Parent() != "card-dd" {
		t.Fatalf("parent aliased")
	}
	if c.Content.(SocialIconsContent).Links[0].URL != "u" {
		t.Fatalf("content aliased")
	}
}
