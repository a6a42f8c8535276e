package model

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type CardType string

const (
	CardTypeLink            CardType = "link"
	CardTypeText            CardType = "text"
	CardTypeImage           CardType = "image"
	CardTypeVideo           CardType = "video"
	CardTypeGallery         CardType = "gallery"
	CardTypeAudio           CardType = "audio"
	CardTypeGame            CardType = "game"
	CardTypeSocialIcons     CardType = "social-icons"
	CardTypeDropdown        CardType = "dropdown"
	CardTypeEmailCollection CardType = "email-collection"
)

// CardTypes lists every known card type in display order.
func CardTypes() []CardType {
	return []CardType{
		CardTypeLink,
		CardTypeText,
		CardTypeImage,
		CardTypeVideo,
		CardTypeGallery,
		CardTypeAudio,
		CardTypeGame,
		CardTypeSocialIcons,
		CardTypeDropdown,
		CardTypeEmailCollection,
	}
}

func ParseCardType(s string) (CardType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range CardTypes() {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsContainer reports whether cards of this type can hold nested cards.
func (t CardType) IsContainer() bool { return t == CardTypeDropdown }

type CardSize string

const (
	CardSizeSmall  CardSize = "small"
	CardSizeMedium CardSize = "medium"
	CardSizeLarge  CardSize = "large"
	CardSizeWide   CardSize = "wide"
)

type GridPosition struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

type Card struct {
	ID     string   `json:"id"`
	PageID string   `json:"pageId"`
	Type   CardType `json:"cardType"`

	// ParentID is nil for cards on the canvas; otherwise the ID of a dropdown card.
	ParentID *string `json:"parentContainerId,omitempty"`
	SortKey  string  `json:"sortKey"`

	Size     CardSize     `json:"size,omitempty"`
	Position GridPosition `json:"position"`
	Content  Content      `json:"-"`
	Visible  bool         `json:"isVisible"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Parent returns the parent container ID or "" for top-level cards.
func (c Card) Parent() string {
	if c.ParentID == nil {
		return ""
	}
	return strings.TrimSpace(*c.ParentID)
}

// Clone returns a deep copy that shares no mutable memory with c.
func (c Card) Clone() Card {
	out := c
	if c.ParentID != nil {
		pid := *c.ParentID
		out.ParentID = &pid
	}
	out.Content = CloneContent(c.Content)
	return out
}

func CloneCards(in []Card) []Card {
	if in == nil {
		return nil
	}
	out := make([]Card, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// CardPatch is a shallow update. Nil fields are left untouched.
type CardPatch struct {
	Content  Content       `json:"-"`
	Visible  *bool         `json:"isVisible,omitempty"`
	Size     *CardSize     `json:"size,omitempty"`
	Position *GridPosition `json:"position,omitempty"`
}

func (p CardPatch) IsEmpty() bool {
	return p.Content == nil && p.Visible == nil && p.Size == nil && p.Position == nil
}

// Page is the page-level editable state that travels with card history.
type Page struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PagePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func NewCardID() string {
	return "card-" + strings.ToLower(ulid.Make().String())
}

func NewPageID() string {
	return "page-" + strings.ToLower(ulid.Make().String())
}

func StringPtr(s string) *string { return &s }
