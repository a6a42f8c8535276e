package cli

import (
	"github.com/spf13/cobra"

	"cardboard/internal/store"
)

func newInitCmd(app *App) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			// Listing pages opens the database and runs migrations.
			if _, err := st.ListPages(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}

			if global {
				cfg := app.cfg
				cfg.Dir = st.Dir
				if err := store.SaveConfig(cfg); err != nil {
					return writeErr(cmd, err)
				}
			}
			return writeOut(cmd, app, envelope{
				Data: map[string]any{
					"dir":        st.Dir,
					"sqlitePath": st.SQLitePath(),
				},
				Hints: []string{"cardboard pages create --title ... --use"},
			})
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "Record this dir as the default store in the config file")
	return cmd
}
