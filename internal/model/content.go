package model

import (
	"encoding/json"
	"fmt"
)

// Content is the per-type payload of a card. The ordering engine never looks
// inside it; only the card type tag is used to pick the concrete shape.
type Content interface {
	CardType() CardType
}

type LinkContent struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type TextContent struct {
	Markdown string `json:"markdown"`
}

type ImageContent struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

type VideoContent struct {
	URL      string `json:"url"`
	Autoplay bool   `json:"autoplay"`
}

type GalleryContent struct {
	Images []ImageContent `json:"images"`
}

type AudioContent struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

type GameContent struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type SocialLink struct {
	Network string `json:"network"`
	URL     string `json:"url"`
}

type SocialIconsContent struct {
	Links []SocialLink `json:"links"`
}

type DropdownContent struct {
	Title     string `json:"title"`
	Collapsed bool   `json:"collapsed"`
}

type EmailCollectionContent struct {
	Heading        string `json:"heading"`
	ButtonLabel    string `json:"buttonLabel"`
	SuccessMessage string `json:"successMessage,omitempty"`
}

func (LinkContent) CardType() CardType            { return CardTypeLink }
func (TextContent) CardType() CardType            { return CardTypeText }
func (ImageContent) CardType() CardType           { return CardTypeImage }
func (VideoContent) CardType() CardType           { return CardTypeVideo }
func (GalleryContent) CardType() CardType         { return CardTypeGallery }
func (AudioContent) CardType() CardType           { return CardTypeAudio }
func (GameContent) CardType() CardType            { return CardTypeGame }
func (SocialIconsContent) CardType() CardType     { return CardTypeSocialIcons }
func (DropdownContent) CardType() CardType        { return CardTypeDropdown }
func (EmailCollectionContent) CardType() CardType { return CardTypeEmailCollection }

// EmptyContent returns the zero payload for a card type.
func EmptyContent(t CardType) (Content, error) {
	switch t {
	case CardTypeLink:
		return LinkContent{}, nil
	case CardTypeText:
		return TextContent{}, nil
	case CardTypeImage:
		return ImageContent{}, nil
	case CardTypeVideo:
		return VideoContent{}, nil
	case CardTypeGallery:
		return GalleryContent{Images: []ImageContent{}}, nil
	case CardTypeAudio:
		return AudioContent{}, nil
	case CardTypeGame:
		return GameContent{}, nil
	case CardTypeSocialIcons:
		return SocialIconsContent{Links: []SocialLink{}}, nil
	case CardTypeDropdown:
		return DropdownContent{}, nil
	case CardTypeEmailCollection:
		return EmailCollectionContent{}, nil
	default:
		return nil, fmt.Errorf("unknown card type: %q", t)
	}
}

func CloneContent(c Content) Content {
	switch v := c.(type) {
	case GalleryContent:
		imgs := make([]ImageContent, len(v.Images))
		copy(imgs, v.Images)
		return GalleryContent{Images: imgs}
	case SocialIconsContent:
		links := make([]SocialLink, len(v.Links))
		copy(links, v.Links)
		return SocialIconsContent{Links: links}
	default:
		// Remaining variants are plain value structs.
		return c
	}
}

// DecodeContent parses raw JSON into the payload shape for t.
func DecodeContent(t CardType, raw json.RawMessage) (Content, error) {
	empty, err := EmptyContent(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return empty, nil
	}
	var out Content
	switch t {
	case CardTypeLink:
		var v LinkContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeText:
		var v TextContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeImage:
		var v ImageContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeVideo:
		var v VideoContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeGallery:
		var v GalleryContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeAudio:
		var v AudioContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeGame:
		var v GameContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeSocialIcons:
		var v SocialIconsContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeDropdown:
		var v DropdownContent
		err = json.Unmarshal(raw, &v)
		out = v
	case CardTypeEmailCollection:
		var v EmailCollectionContent
		err = json.Unmarshal(raw, &v)
		out = v
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	return out, nil
}

// cardAlias drops Card's methods so the custom codec does not recurse.
type cardAlias Card

type cardJSON struct {
	cardAlias
	Content json.RawMessage `json:"content"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	content := c.Content
	if content == nil {
		empty, err := EmptyContent(c.Type)
		if err == nil {
			content = empty
		}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	return json.Marshal(cardJSON{cardAlias: cardAlias(c), Content: raw})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var j cardJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*c = Card(j.cardAlias)
	content, err := DecodeContent(c.Type, j.Content)
	if err != nil {
		return err
	}
	c.Content = content
	return nil
}
