package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cardboard/internal/docs"
	"cardboard/internal/model"
	"cardboard/internal/publish"
	"cardboard/internal/store"
)

func newPublishCmd(app *App) *cobra.Command {
	var to string
	var includeHidden, overwrite bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Render the current page to a markdown file",
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
			res, err := publish.WritePage(page, all, to, publish.WriteOptions{
				IncludeHidden: includeHidden,
				Overwrite:     overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: res})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Output directory")
	cmd.Flags().BoolVar(&includeHidden, "include-hidden", false, "Include hidden cards (marked with a comment)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newDocsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in help topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, envelope{
					Data:  docs.Topics(),
					Hints: []string{"cardboard docs <topic>"},
				})
			}
			body, ok := docs.Get(args[0])
			if !ok {
				return writeErr(cmd, errors.New("unknown topic: "+args[0]))
			}
			_, err := cmd.OutOrStdout().Write([]byte(body))
			return err
		},
	}
}
