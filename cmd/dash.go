package cmd

import (
	"context"
	"os"

	"github.com/grovetools/livesync/errors"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/prefs"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/grovetools/livesync/tui"
	"github.com/grovetools/livesync/tui/dashboard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newDashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Open the terminal dashboard",
		Long: `Show the event feed, the task table and the health of the push
channel and every poller. Polling slows down while the terminal window
is not focused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
				return errors.New(errors.ErrCodeInvalidInput, "the dashboard needs a terminal; use 'livesync run' or 'livesync status'")
			}

			cfg, cfgPath, opts, err := setup(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLogger("dash")
			tui.InitializeTUI()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			vis := visibility.NewToggle(true)
			eng, err := newEngine(cfg, vis)
			if err != nil {
				return err
			}

			if stopWatch, err := watchConfig(ctx, cfgPath, opts, logger); err != nil {
				logger.WithError(err).Warn("Config hot reload disabled")
			} else {
				defer stopWatch()
			}

			done := make(chan error, 1)
			go func() { done <- eng.Start(ctx) }()

			runErr := dashboard.Run(ctx, dashboard.Options{
				Backend:    eng,
				Visibility: vis,
				Prefs:      prefs.Default(),
				Logger:     logger,
			})
			cancel()
			if err := <-done; err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
}
