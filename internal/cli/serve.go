package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cardboard/internal/web"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP for remote editors",
		Long: strings.TrimSpace(`
Serve the local store as the backing service for editors started with
--remote. Endpoints:

  GET    /healthz
  GET    /api/pages/{pageID}/cards
  PUT    /api/pages/{pageID}/cards
  DELETE /api/pages/{pageID}/cards/{cardID}
  POST   /api/pages/{pageID}/beacon
`),
		Example: strings.TrimSpace(`
cardboard serve --addr 127.0.0.1:7788
cardboard --remote http://127.0.0.1:7788 cards list
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := app.store()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := st.Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			listen := strings.TrimSpace(addr)
			if listen == "" {
				listen = app.cfg.Listen
			}
			srv, err := web.NewServer(web.ServerConfig{Addr: listen, Backend: st, Logger: app.logger})
			if err != nil {
				return writeErr(cmd, err)
			}

			_ = writeOut(cmd, app, envelope{
				Data:  map[string]any{"addr": listen, "dir": st.Dir},
				Hints: []string{"cardboard --remote http://" + listen + " edit"},
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: listen from config, 127.0.0.1:7788)")
	return cmd
}
