package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grovetools/livesync/internal/pidfile"
	"github.com/grovetools/livesync/internal/server"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/paths"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd() *cobra.Command {
	var inspect bool
	var socket string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync engine headless",
		Long: `Connect the push channel and the pollers and log detections until
interrupted. With --inspect the state is served on a local Unix socket
for 'livesync status' and 'livesync ctl'.`,
		Example: `# log detections
livesync run
# serve the inspect API on the default socket
livesync run --inspect`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, opts, err := setup(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewLogger("livesync")

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			eng, err := newEngine(cfg, visibility.Always)
			if err != nil {
				return err
			}

			stopWatch, err := watchConfig(ctx, cfgPath, opts, logger)
			if err != nil {
				logger.WithError(err).Warn("Config hot reload disabled")
			} else {
				defer stopWatch()
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return eng.Start(ctx) })

			if inspect || cfg.Inspect.Enabled {
				if socket == "" {
					socket = cfg.InspectSocket()
				}
				pidPath := paths.PidFilePath()
				if err := pidfile.Acquire(pidPath); err != nil {
					return fmt.Errorf("failed to start inspect server: %w", err)
				}
				defer func() {
					if err := pidfile.Release(pidPath); err != nil {
						logger.Errorf("Failed to release pidfile: %v", err)
					}
				}()

				srv := server.New(eng, logging.NewLogger("inspect"))
				l, err := server.Listen(socket)
				if err != nil {
					return err
				}
				logger.WithFields(logrus.Fields{
					"socket": socket,
					"pid":    os.Getpid(),
				}).Info("Inspect server listening")

				g.Go(func() error { return srv.Serve(l) })
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "Serve the inspect API on a Unix socket")
	cmd.Flags().StringVar(&socket, "socket", "", "Inspect socket path (default from config)")
	return cmd
}
