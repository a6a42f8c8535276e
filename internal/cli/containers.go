package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cardboard/internal/container"
	"cardboard/internal/editor"
	"cardboard/internal/model"
)

type containerInfo struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Cards []string `json:"cards"`
}

type containerRows []containerInfo

func (containerRows) Header() []string { return []string{"CONTAINER", "TITLE", "CARDS"} }

func (r containerRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, c := range r {
		out = append(out, []string{c.ID, c.Title, fmt.Sprint(len(c.Cards))})
	}
	return out
}

func newContainersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "containers",
		Short: "List drop targets (canvas, then dropdowns in canvas order)",
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
			byID := map[string]model.Card{}
			for _, c := range all {
				byID[c.ID] = c
			}
			var out []containerInfo
			for _, id := range container.AllIDs(all) {
				info := containerInfo{ID: id, Title: id, Cards: cardIDs(container.CardsIn(id, all))}
				if c, ok := byID[id]; ok {
					info.Title = editor.Label(c)
				}
				out = append(out, info)
			}
			return writeData(cmd, app, out, containerRows(out))
		},
	}
}
