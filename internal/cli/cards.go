package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cardboard/internal/cards"
	"cardboard/internal/container"
	"cardboard/internal/editor"
	"cardboard/internal/model"
)

func newCardsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"card"},
		Short:   "List and edit the cards of the current page",
	}
	cmd.AddCommand(newCardsListCmd(app))
	cmd.AddCommand(newCardsShowCmd(app))
	cmd.AddCommand(newCardsAddCmd(app))
	cmd.AddCommand(newCardsMoveCmd(app))
	cmd.AddCommand(newCardsRmCmd(app))
	cmd.AddCommand(newCardsDupCmd(app))
	cmd.AddCommand(newCardsSetCmd(app))
	return cmd
}

type cardRows []model.Card

func (cardRows) Header() []string {
	return []string{"ID", "CONTAINER", "KEY", "VISIBLE", "CARD"}
}

func (r cardRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, c := range r {
		label := editor.Label(c)
		if c.Parent() != "" {
			label = "  " + label
		}
		out = append(out, []string{c.ID, container.Of(c), c.SortKey, fmt.Sprint(c.Visible), label})
	}
	return out
}

func newCardsListCmd(app *App) *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cards in display order",
		RunE: func(cmd *cobra.Command, args []string) error {
			pageID, err := app.pageID()
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.backend()
			if err != nil {
				return writeErr(cmd, err)
			}
			all, err := b.LoadCards(cmd.Context(), pageID)
			if err != nil {
				return writeErr(cmd, err)
			}
			var out []model.Card
			if cmd.Flags().Changed("in") {
				out = container.CardsIn(in, all)
			} else {
				out = container.Flatten(all)
			}
			if out == nil {
				out = []model.Card{}
			}
			return writeData(cmd, app, out, cardRows(out))
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "Only list one container (canvas or a dropdown id)")
	return cmd
}

func newCardsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show one card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageID, err := app.pageID()
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.backend()
			if err != nil {
				return writeErr(cmd, err)
			}
			all, err := b.LoadCards(cmd.Context(), pageID)
			if err != nil {
				return writeErr(cmd, err)
			}
			for _, c := range all {
				if c.ID == strings.TrimSpace(args[0]) {
					return writeData(cmd, app, c, cardRows{c})
				}
			}
			return writeErr(cmd, cards.StaleReferenceError{Kind: "card", ID: args[0]})
		},
	}
}

// contentFlags are the common content fields settable from the command line.
type contentFlags struct {
	text        string
	url         string
	title       string
	contentJSON string
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "Markdown (text cards), heading (email-collection)")
	cmd.Flags().StringVar(&f.url, "url", "", "URL (link, image, video, audio, game)")
	cmd.Flags().StringVar(&f.title, "title", "", "Title (link, audio, dropdown), name (game), alt text (image)")
	cmd.Flags().StringVar(&f.contentJSON, "content", "", "Full content as JSON (overrides the other content flags)")
}

func (f contentFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"text", "url", "title", "content"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// apply returns base with the flags that were set applied.
func (f contentFlags) apply(cmd *cobra.Command, t model.CardType, base model.Content) (model.Content, error) {
	if cmd.Flags().Changed("content") {
		return model.DecodeContent(t, []byte(f.contentJSON))
	}
	if base == nil {
		empty, err := model.EmptyContent(t)
		if err != nil {
			return nil, err
		}
		base = empty
	}
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	switch v := base.(type) {
	case model.LinkContent:
		set("url", &v.URL, f.url)
		set("title", &v.Title, f.title)
		return v, nil
	case model.TextContent:
		set("text", &v.Markdown, f.text)
		return v, nil
	case model.ImageContent:
		set("url", &v.URL, f.url)
		set("title", &v.Alt, f.title)
		return v, nil
	case model.VideoContent:
		set("url", &v.URL, f.url)
		return v, nil
	case model.AudioContent:
		set("url", &v.URL, f.url)
		set("title", &v.Title, f.title)
		return v, nil
	case model.GameContent:
		set("url", &v.URL, f.url)
		set("title", &v.Name, f.title)
		return v, nil
	case model.DropdownContent:
		set("title", &v.Title, f.title)
		return v, nil
	case model.EmailCollectionContent:
		set("text", &v.Heading, f.text)
		return v, nil
	default:
		if f.changed(cmd) {
			return nil, fmt.Errorf("%s cards only accept --content", t)
		}
		return base, nil
	}
}

func newCardsAddCmd(app *App) *cobra.Command {
	var typ, in string
	var index int
	var hidden bool
	var cf contentFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card",
		Example: strings.TrimSpace(`
cardboard cards add --type link --url https://example.com --title Example
cardboard cards add --type dropdown --title Socials
cardboard cards add --type text --text "hello" --in card-01j... --index 0
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := model.ParseCardType(typ)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown card type %q (one of: %s)", typ, cardTypeList()))
			}
			content, err := cf.apply(cmd, t, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			var res cards.Result
			err = app.mutate(cmd.Context(), func(s *editor.Session) error {
				var err error
				res, err = s.Insert(model.Card{Type: t, Content: content, Visible: !hidden, Size: model.CardSizeMedium}, in, index)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeResult(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Card type")
	cmd.Flags().StringVar(&in, "in", "", "Container: canvas (default) or a dropdown id")
	cmd.Flags().IntVar(&index, "index", -1, "Position in the container (default: end)")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "Create the card hidden")
	cf.register(cmd)
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func cardTypeList() string {
	var names []string
	for _, t := range model.CardTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

// writeResult prints the primary card and the affected container.
func writeResult(cmd *cobra.Command, app *App, res cards.Result) error {
	var primary any
	for _, c := range res.Cards {
		if c.ID == res.CardID {
			primary = c
		}
	}
	return writeOut(cmd, app, envelope{
		Data: primary,
		Meta: map[string]any{
			"container": res.Container,
			"order":     cardIDs(res.Cards),
		},
	})
}

func cardIDs(cs []model.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func newCardsMoveCmd(app *App) *cobra.Command {
	var to string
	var index int

	cmd := &cobra.Command{
		Use:   "move <card-id> [card-id...]",
		Short: "Move cards to a position in a container",
		Long: strings.TrimSpace(`
Move one card to --index of --to (canvas or a dropdown id). The index counts
positions with the moved card left out, so --index 0 always means "first".

With several card ids the cards are appended to --to in display order as a
single step.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res cards.Result
			err := app.mutate(cmd.Context(), func(s *editor.Session) error {
				var err error
				if len(args) == 1 {
					res, err = s.Move(args[0], to, index)
					return err
				}
				if err := selectIDs(s, args); err != nil {
					return err
				}
				res, err = s.MoveSelected(to)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeResult(cmd, app, res)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target container: canvas (default) or a dropdown id")
	cmd.Flags().IntVar(&index, "index", -1, "Position in the target (default: end)")
	return cmd
}

// selectIDs puts ids into a fresh selection, failing on unknown cards.
func selectIDs(s *editor.Session, ids []string) error {
	s.EnterSelectMode()
	for _, id := range ids {
		if _, ok := s.Get(id); !ok {
			return cards.StaleReferenceError{Kind: "card", ID: id}
		}
		if !s.IsSelected(id) {
			s.Toggle(id)
		}
	}
	return nil
}

func newCardsRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <card-id> [card-id...]",
		Aliases: []string{"delete"},
		Short:   "Delete cards (cards inside a deleted dropdown move to the canvas)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res cards.Result
			err := app.mutate(cmd.Context(), func(s *editor.Session) error {
				if err := selectIDs(s, args); err != nil {
					return err
				}
				var err error
				res, err = s.DeleteSelected()
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{"deleted": args},
				Meta: map[string]any{"canvas": cardIDs(res.Cards)},
			})
		},
	}
}

func newCardsDupCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "dup <card-id>",
		Aliases: []string{"duplicate"},
		Short:   "Duplicate a card right after itself",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res cards.Result
			err := app.mutate(cmd.Context(), func(s *editor.Session) error {
				var err error
				res, err = s.Duplicate(args[0])
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeResult(cmd, app, res)
		},
	}
}

func newCardsSetCmd(app *App) *cobra.Command {
	var visible bool
	var size string
	var col, row int
	var cf contentFlags

	cmd := &cobra.Command{
		Use:   "set <card-id>",
		Short: "Update a card's content, visibility, size or grid position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res cards.Result
			err := app.mutate(cmd.Context(), func(s *editor.Session) error {
				c, ok := s.Get(args[0])
				if !ok {
					return cards.StaleReferenceError{Kind: "card", ID: args[0]}
				}
				var patch model.CardPatch
				if cf.changed(cmd) {
					content, err := cf.apply(cmd, c.Type, c.Content)
					if err != nil {
						return err
					}
					patch.Content = content
				}
				if cmd.Flags().Changed("visible") {
					patch.Visible = &visible
				}
				if cmd.Flags().Changed("size") {
					sz := model.CardSize(strings.ToLower(strings.TrimSpace(size)))
					switch sz {
					case model.CardSizeSmall, model.CardSizeMedium, model.CardSizeLarge, model.CardSizeWide:
					default:
						return fmt.Errorf("unknown size %q (small|medium|large|wide)", size)
					}
					patch.Size = &sz
				}
				if cmd.Flags().Changed("col") || cmd.Flags().Changed("row") {
					pos := c.Position
					if cmd.Flags().Changed("col") {
						pos.Col = col
					}
					if cmd.Flags().Changed("row") {
						pos.Row = row
					}
					patch.Position = &pos
				}
				if patch.IsEmpty() {
					return errors.New("cards set: nothing to change")
				}
				var err error
				res, err = s.Update(c.ID, patch)
				return err
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeResult(cmd, app, res)
		},
	}
	cmd.Flags().BoolVar(&visible, "visible", true, "Show or hide the card (--visible=false hides)")
	cmd.Flags().StringVar(&size, "size", "", "Card size (small|medium|large|wide)")
	cmd.Flags().IntVar(&col, "col", 0, "Grid column")
	cmd.Flags().IntVar(&row, "row", 0, "Grid row")
	cf.register(cmd)
	return cmd
}
