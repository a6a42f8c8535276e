package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cardboard/internal/store"
)

var errDoctorIssuesFound = errors.New("doctor: errors found")

type issueRows []store.DoctorIssue

func (issueRows) Header() []string { return []string{"LEVEL", "CODE", "PAGE", "CARD", "MESSAGE"} }

func (r issueRows) Rows() [][]string {
	out := make([][]string, 0, len(r))
	for _, it := range r {
		out = append(out, []string{string(it.Level), it.Code, it.PageID, it.CardID, it.Message})
	}
	return out
}

func newDoctorCmd(app *App) *cobra.Command {
	var fail, all bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check stored pages for ordering and nesting problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			pageID := app.Page
			if all {
				pageID = ""
			}
			report, err := st.Doctor(cmd.Context(), pageID)
			if err != nil {
				return writeErr(cmd, err)
			}

			if app.Format == "table" {
				if err := writeData(cmd, app, report, issueRows(report.Issues)); err != nil {
					return err
				}
			} else if err := writeOut(cmd, app, envelope{
				Data: report,
				Meta: map[string]any{
					"issues":    len(report.Issues),
					"hasErrors": report.HasErrors(),
				},
				Hints: []string{"cardboard recover"},
			}); err != nil {
				return err
			}

			if fail && report.HasErrors() {
				return errDoctorIssuesFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if errors are found")
	cmd.Flags().BoolVar(&all, "all", false, "Check every page, not just the current one")
	return cmd
}

func newRecoverCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Replay unload flushes left in the spool into the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			sp, err := st.Spool(app.logger)
			if err != nil {
				return writeErr(cmd, err)
			}
			b, err := app.backend()
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := sp.Replay(cmd.Context(), app.Page, b)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, envelope{Data: map[string]any{"replayed": n}})
		},
	}
}
