package cli

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cardboard/internal/editor"
	"cardboard/internal/persist"
	"cardboard/internal/remote"
	"cardboard/internal/tui"
)

func newEditCmd(app *App) *cobra.Command {
	var closeTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the interactive card editor for the current page",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			pageID, err := app.pageID()
			if err != nil {
				return writeErr(cmd, err)
			}
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
			// Leftovers from an earlier unload go in before the page loads.
			if n, err := sp.Replay(ctx, pageID, b); err != nil {
				app.logger.Warn("spool replay failed", "page", pageID, "err", err)
			} else if n > 0 {
				app.logger.Info("spool replayed", "page", pageID, "payloads", n)
			}

			beacons := persist.Beacons{sp}
			var wait func()
			if c, ok := b.(*remote.Client); ok {
				rb := c.Beacon(2 * time.Second)
				beacons = append(beacons, rb)
				wait = rb.Wait
			}

			s, err := app.openSession(ctx, beacons)
			if err != nil {
				return writeErr(cmd, err)
			}

			// A closed terminal sends SIGHUP, which bubbletea does not handle.
			hup, stop := signal.NotifyContext(ctx, syscall.SIGHUP)
			defer stop()
			runErr := tui.Run(hup, s)

			finishSession(hup, s, closeTimeout, wait, app.logger)
			if runErr != nil {
				return writeErr(cmd, runErr)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&closeTimeout, "close-timeout", 5*time.Second, "How long to wait for the final save on exit")
	return cmd
}

// finishSession ends an editor session. When ctx was cancelled (the terminal
// went away) the state goes straight to the unload beacons; otherwise it is
// saved, falling back to the beacons when the save fails. wait, when set,
// blocks until beacon sends are done.
func finishSession(ctx context.Context, s *editor.Session, timeout time.Duration, wait func(), logger *slog.Logger) {
	unload := func() {
		s.Unload()
		if wait != nil {
			wait()
		}
	}
	if ctx.Err() != nil {
		logger.Warn("editor interrupted; spooling", "page", s.PageID(), "err", context.Cause(ctx))
		unload()
		return
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Close(closeCtx); err != nil {
		// The spool keeps the state; `cardboard recover` or the next edit
		// replays it.
		logger.Warn("save on exit failed; spooling", "page", s.PageID(), "err", err)
		unload()
	}
}
