package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cardboard/internal/container"
	"cardboard/internal/editor"
	"cardboard/internal/format"
	"cardboard/internal/model"
	"cardboard/internal/store"
)

func newPagesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "Create, list and inspect pages",
	}
	cmd.AddCommand(newPagesCreateCmd(app))
	cmd.AddCommand(newPagesListCmd(app))
	cmd.AddCommand(newPagesShowCmd(app))
	cmd.AddCommand(newPagesUseCmd(app))
	cmd.AddCommand(newPagesSetCmd(app))
	return cmd
}

func newPagesCreateCmd(app *App) *cobra.Command {
	var title string
	var use bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a page",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := st.CreatePage(cmd.Context(), title)
			if err != nil {
				return writeErr(cmd, err)
			}
			if use {
				if err := usePage(app, p.ID); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, envelope{Data: p})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Page title")
	cmd.Flags().BoolVar(&use, "use", false, "Make the new page current")
	return cmd
}

func usePage(app *App, pageID string) error {
	cfg := app.cfg
	cfg.Page = pageID
	if cfg.Dir == "" {
		cfg.Dir = app.Dir
	}
	if err := store.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	app.cfg = cfg
	app.Page = pageID
	return nil
}

type pageRows []store.PageSummary

func (pageRows) Header() []string { return []string{"ID", "TITLE", "CARDS", "UPDATED"} }

func (r pageRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, p := range r {
		out = append(out, []string{p.ID, p.Title, fmt.Sprint(p.Cards), p.UpdatedAt.Format("2006-01-02 15:04")})
	}
	return out
}

func newPagesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			pages, err := st.ListPages(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, pages, pageRows(pages))
		},
	}
}

func newPagesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [page-id]",
		Short: "Show a page with its outline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				app.Page = args[0]
			}
			pageID, err := app.pageID()
			if err != nil {
				return writeErr(cmd, err)
			}
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := st.LoadPage(cmd.Context(), pageID)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.backend()
			if err != nil {
				return writeErr(cmd, err)
			}
			cards, err := b.LoadCards(cmd.Context(), pageID)
			if err != nil {
				return writeErr(cmd, err)
			}
			ordered := container.Flatten(cards)
			return writeData(cmd, app, map[string]any{
				"page":    p,
				"outline": strings.Split(strings.TrimRight(editor.Outline(ordered), "\n"), "\n"),
				"cards":   ordered,
			}, cardRows(ordered))
		},
	}
}

func newPagesUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <page-id>",
		Short: "Make a page current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			p, err := st.LoadPage(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := usePage(app, p.ID); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: p})
		},
	}
}

func newPagesSetCmd(app *App) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the current page's title or description",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.PagePatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if patch.Title == nil && patch.Description == nil {
				return writeErr(cmd, errors.New("pages set: nothing to change (use --title or --description)"))
			}
			var p model.Page
			err := app.mutate(cmd.Context(), func(s *editor.Session) error {
				if err := s.SetPage(patch); err != nil {
					return err
				}
				p = s.Page()
				return nil
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: p})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Page title")
	cmd.Flags().StringVar(&description, "description", "", "Page description")
	return cmd
}

var _ format.Table = pageRows(nil)
