package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cardboard/internal/editor"
	"cardboard/internal/format"
	"cardboard/internal/persist"
	"cardboard/internal/remote"
	"cardboard/internal/store"
)

type App struct {
	Dir        string
	Page       string
	Remote     string
	Format     string
	PrettyJSON bool
	Verbose    bool

	cfg    store.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "cardboard",
		Short:        "Card page builder: ordering, undo history, and persistence (CLI + TUI)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Create a page and make it current
  cardboard pages create --title "My links" --use

  # Add cards
  cardboard cards add --type link --url https://example.com
  cardboard cards add --type dropdown --title Socials

  # Open the interactive editor
  cardboard edit

  # Direct card lookup (shortcut for: cardboard cards show <card-id>)
  cardboard card-01j...
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.setup(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("CARDBOARD_DIR", ""), "Path to the store dir (default: nearest .cardboard or config dir)")
	cmd.PersistentFlags().StringVar(&app.Page, "page", envOr("CARDBOARD_PAGE", ""), "Page id (default: page from config)")
	cmd.PersistentFlags().StringVar(&app.Remote, "remote", envOr("CARDBOARD_REMOTE", ""), "Base URL of a `cardboard serve` backend (default: local store)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("CARDBOARD_FORMAT", "json"), "Output format (json|edn|yaml|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newPagesCmd(app))
	cmd.AddCommand(newCardsCmd(app))
	cmd.AddCommand(newContainersCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newRecoverCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// setup resolves flags > env > config file and builds the logger.
func (app *App) setup(cmd *cobra.Command) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, fmt.Errorf("loading config: %w", err))
	}
	app.cfg = cfg
	if app.Dir == "" {
		app.Dir = cfg.Dir
	}
	if app.Page == "" {
		app.Page = cfg.Page
	}
	if app.Remote == "" {
		app.Remote = cfg.Remote
	}

	level := slog.LevelWarn
	if app.Verbose {
		level = slog.LevelDebug
	}
	var w io.Writer = cmd.ErrOrStderr()
	app.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return nil
}

func (app *App) store() (store.Store, error) {
	if app.Dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return store.Store{}, err
		}
		app.Dir = d
	}
	return store.Store{Dir: app.Dir}, nil
}

// backend is the remote service when --remote is set, the local store
// otherwise.
func (app *App) backend() (persist.Backend, error) {
	if app.Remote != "" {
		return remote.NewClient(app.Remote, remote.WithLogger(app.logger))
	}
	return app.store()
}

func (app *App) pageID() (string, error) {
	if p := strings.TrimSpace(app.Page); p != "" {
		return p, nil
	}
	return "", errors.New("no current page; run `cardboard pages create --title ... --use` or pass --page")
}

// openSession opens the current page. Local sessions also load and save the
// page record; remote sessions only carry cards.
func (app *App) openSession(ctx context.Context, beacon persist.Beacon) (*editor.Session, error) {
	pageID, err := app.pageID()
	if err != nil {
		return nil, err
	}
	b, err := app.backend()
	if err != nil {
		return nil, err
	}
	opts := editor.Options{
		Backend:      b,
		Beacon:       beacon,
		Debounce:     app.cfg.Debounce,
		HistoryLimit: app.cfg.HistoryLimit,
		Logger:       app.logger,
	}
	if st, ok := b.(store.Store); ok {
		if _, err := st.EnsurePage(ctx, pageID, ""); err != nil {
			return nil, err
		}
		opts.Pages = st
	}
	return editor.Open(ctx, pageID, opts)
}

// mutate opens a session, applies fn, and flushes before returning.
func (app *App) mutate(ctx context.Context, fn func(s *editor.Session) error) error {
	s, err := app.openSession(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		_ = s.Close(ctx)
		return err
	}
	return s.Close(ctx)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

type envelope struct {
	Data  any            `json:"data"`
	Meta  map[string]any `json:"meta,omitempty"`
	Hints []string       `json:"_hints,omitempty"`
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

// writeData writes data in an envelope, or tbl when --format table is set.
func writeData(cmd *cobra.Command, app *App, data any, tbl format.Table) error {
	if tbl != nil && strings.EqualFold(strings.TrimSpace(app.Format), "table") {
		return format.WriteTable(cmd.OutOrStdout(), tbl)
	}
	return writeOut(cmd, app, envelope{Data: data})
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
