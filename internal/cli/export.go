package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cardboard/internal/container"
	"cardboard/internal/format"
	"cardboard/internal/model"
	"cardboard/internal/store"
)

// exportedNode is one canvas card with its nested cards, in display order.
type exportedNode struct {
	Card     model.Card   `json:"card"`
	Children []model.Card `json:"children,omitempty"`
}

type exportedPage struct {
	Page  model.Page     `json:"page"`
	Cards []exportedNode `json:"cards"`
}

func newExportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the current page as a nested document (yaml unless --format is given)",
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
			page := model.Page{ID: pageID}
			if st, ok := b.(store.Store); ok {
				p, err := st.LoadPage(cmd.Context(), pageID)
				var nf store.NotFoundError
				switch {
				case err == nil:
					page = p
				case !errors.As(err, &nf):
					return writeErr(cmd, err)
				}
			}

			doc := exportedPage{Page: page, Cards: []exportedNode{}}
			for _, c := range container.CardsIn(container.Canvas, all) {
				node := exportedNode{Card: c}
				if c.Type.IsContainer() {
					node.Children = container.CardsIn(c.ID, all)
				}
				doc.Cards = append(doc.Cards, node)
			}

			f := app.Format
			if !cmd.Flags().Changed("format") {
				f = "yaml"
			}
			return format.Write(cmd.OutOrStdout(), doc, f, app.PrettyJSON)
		},
	}
}
